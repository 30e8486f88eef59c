// Package calls provides the paged call log tab.
package calls

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fono-labs/fono-dash/internal/api"
	"github.com/fono-labs/fono-dash/internal/app"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/ui/components"
	"github.com/fono-labs/fono-dash/internal/ui/styles"
)

// statusFilters is the cycle order of the f key.
var statusFilters = []string{
	api.StatusAll,
	string(models.StatusMissed),
	string(models.StatusNoAnswer),
	string(models.StatusRecovered),
	string(models.StatusCompleted),
	string(models.StatusInProgress),
}

// nextStatusFilter returns the filter after current, wrapping to "all".
func nextStatusFilter(current string) string {
	for i, f := range statusFilters {
		if f == current {
			return statusFilters[(i+1)%len(statusFilters)]
		}
	}
	return statusFilters[1]
}

// filterLabel names a status filter for the title line.
func filterLabel(status string) string {
	if status == "" || status == api.StatusAll {
		return "All calls"
	}
	return models.CallStatus(status).Label()
}

// keyMap defines the key bindings specific to the calls tab.
type keyMap struct {
	Filter   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	CallBack key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter status"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "n", "pgdown"),
			key.WithHelp("]/n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "p", "pgup"),
			key.WithHelp("[/p", "prev page"),
		),
		CallBack: key.NewBinding(
			key.WithKeys("c", "enter"),
			key.WithHelp("c/enter", "call back"),
		),
	}
}

// Model represents the calls tab state.
type Model struct {
	state   *app.State
	table   table.Model
	spinner components.LoadingSpinner
	keys    keyMap
	width   int
	height  int
}

// New creates a new calls model.
func New(state *app.State) *Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	// d is the global date filter key.
	t.KeyMap.HalfPageDown.SetKeys("ctrl+d")

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state:   state,
		table:   t,
		spinner: components.NewSpinner("Loading calls..."),
		keys:    defaultKeyMap(),
	}
}

// Init initializes the calls tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages for the calls tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case app.SnapshotMsg:
		m.updateTableData()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	snap := m.state.Snapshot()

	switch {
	case key.Matches(msg, m.keys.Filter):
		status := nextStatusFilter(snap.StatusFilter)
		return func() tea.Msg { return app.SetStatusFilterMsg{Status: status} }

	case key.Matches(msg, m.keys.NextPage):
		if snap.Page >= snap.TotalPages {
			return nil
		}
		page := snap.Page + 1
		return func() tea.Msg { return app.SetPageMsg{Page: page} }

	case key.Matches(msg, m.keys.PrevPage):
		if snap.Page <= 1 {
			return nil
		}
		page := snap.Page - 1
		return func() tea.Msg { return app.SetPageMsg{Page: page} }

	case key.Matches(msg, m.keys.CallBack):
		call, ok := m.state.SelectedCall()
		if !ok {
			return nil
		}
		phone := call.CallerNumber
		return func() tea.Msg { return app.CallBackMsg{Phone: phone} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.state.SetSelectedCallIndex(m.table.Cursor())
	return cmd
}

// updateTableData rebuilds the rows from the current page of calls.
func (m *Model) updateTableData() {
	calls := m.state.Snapshot().Calls
	rows := make([]table.Row, 0, len(calls))
	for i := range calls {
		rows = append(rows, callRow(&calls[i]))
	}
	m.table.SetRows(rows)

	cursor := m.state.GetSelectedCallIndex()
	if cursor >= len(rows) {
		cursor = max(len(rows)-1, 0)
	}
	m.table.SetCursor(cursor)
	m.state.SetSelectedCallIndex(cursor)
}

// callRow formats one call for the table.
func callRow(c *models.CallRecord) table.Row {
	when := "-"
	if t, ok := c.CreatedTime(); ok {
		when = t.Local().Format("Jan 2 3:04 PM")
	}

	duration := "-"
	if c.Duration != nil {
		duration = models.FormatDuration(c.DurationSeconds())
	}

	recording := ""
	if c.HasRecording() {
		recording = "●"
	}

	return table.Row{
		when,
		models.FormatPhone(c.CallerNumber),
		c.Status.Label(),
		duration,
		recording,
	}
}

func columns(width int) []table.Column {
	callerWidth := min(max(width-60, 16), 24)
	return []table.Column{
		{Title: "Time", Width: 16},
		{Title: "Caller", Width: callerWidth},
		{Title: "Status", Width: 12},
		{Title: "Duration", Width: 10},
		{Title: "Rec", Width: 4},
	}
}

// SetSize sets the available size for the calls tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height-10, 3))
	m.table.SetColumns(columns(width))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Filter,
		m.keys.NextPage,
		m.keys.PrevPage,
		m.keys.CallBack,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Filter, m.keys.CallBack},
		{m.keys.NextPage, m.keys.PrevPage},
	}
}
