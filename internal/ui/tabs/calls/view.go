package calls

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/ui/components"
	"github.com/fono-labs/fono-dash/internal/ui/styles"
)

// View renders the calls tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	snap := m.state.Snapshot()

	sections := []string{
		m.renderTitle(snap),
		m.renderTable(snap),
		m.renderDetail(),
		m.renderFooter(snap),
	}

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTitle(snap dashboard.Snapshot) string {
	title := styles.TitleStyle.Render("Call Log")

	sub := fmt.Sprintf("%s · %s", filterLabel(snap.StatusFilter), snap.Period.Filter.String())
	if snap.Loading.Data {
		sub += " · " + m.spinner.View() + " refreshing"
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(sub), "")
}

func (m *Model) renderTable(snap dashboard.Snapshot) string {
	cardWidth := max(m.width-6, 60)

	if len(snap.Calls) == 0 {
		msg := "No calls for this period"
		if snap.Err != nil {
			msg = "Could not load calls: " + snap.Err.Error()
			return styles.CardStyle.Width(cardWidth).Render(styles.ErrorTextStyle.Render(msg))
		}
		return styles.CardStyle.Width(cardWidth).Render(styles.HelpStyle.Render(msg))
	}

	m.updateTableData()
	return styles.CardStyle.Width(cardWidth).Render(m.table.View())
}

// renderDetail shows the selected call with its status colored.
func (m *Model) renderDetail() string {
	call, ok := m.state.SelectedCall()
	if !ok {
		return ""
	}

	parts := []string{
		styles.GetStatusStyle(call.Status).Render(call.Status.Label()),
		models.FormatPhone(call.CallerNumber),
	}
	if call.Duration != nil {
		parts = append(parts, models.FormatDuration(call.DurationSeconds()))
	}
	if call.HasRecording() {
		parts = append(parts, styles.InfoTextStyle.Render(*call.RecordingURL))
	}

	line := parts[0]
	for _, p := range parts[1:] {
		line += styles.HelpStyle.Render(" · ") + p
	}
	return line + "\n"
}

func (m *Model) renderFooter(snap dashboard.Snapshot) string {
	pages := max(snap.TotalPages, 1)
	footer := fmt.Sprintf("Page %d of %d · %d calls", max(snap.Page, 1), pages, snap.Total)
	if snap.Err != nil && len(snap.Calls) > 0 {
		footer += " · " + styles.WarningTextStyle.Render("stale: "+snap.Err.Error())
	}
	return styles.HelpStyle.Render(footer)
}
