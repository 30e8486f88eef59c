// Package overview provides the overview tab: today's numbers, the hourly
// call chart and the live event feed.
package overview

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fono-labs/fono-dash/internal/app"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/ui/components"
)

const (
	animationDuration = 800 * time.Millisecond
	animationInterval = 40 * time.Millisecond
	maxRecentEvents   = 8
)

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(animationInterval, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the overview tab.
type keyMap struct {
	ScrollDown key.Binding
	ScrollUp   key.Binding
	Top        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
	}
}

// AnimationState eases a summary counter towards its latest value.
type AnimationState struct {
	StartTime time.Time
	Current   float64
	Target    float64
	Start     float64
}

// Model represents the overview tab state.
type Model struct {
	state      *app.State
	animations map[string]*AnimationState
	spinner    components.LoadingSpinner
	keys       keyMap
	viewport   viewport.Model
	now        func() time.Time
	lastTick   time.Time
	width      int
	height     int
}

// New creates a new overview model.
func New(state *app.State) *Model {
	return &Model{
		state:      state,
		spinner:    components.NewSpinner("Loading calls..."),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
		animations: make(map[string]*AnimationState),
		now:        time.Now,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		if cmd := m.handleAnimationTick(time.Time(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case app.SnapshotMsg, app.TickMsg:
		// Snapshots that arrived while another tab was active are picked
		// up on the next app tick.
		if cmd := m.startAnimation(m.now()); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// startAnimation starts a tick chain when counters need to move and no
// chain is running. A chain stops when its tick is delivered to another tab.
func (m *Model) startAnimation(now time.Time) tea.Cmd {
	if !m.syncAnimationTargets(now) {
		return nil
	}
	if !m.lastTick.IsZero() && now.Sub(m.lastTick) < 4*animationInterval {
		return nil
	}
	m.lastTick = now
	return animationTickCmd()
}

func (m *Model) handleAnimationTick(now time.Time) tea.Cmd {
	m.lastTick = now
	if m.stepAnimations(now) {
		return animationTickCmd()
	}
	return nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	}
	return nil
}

// SetSize sets the available size for the overview.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
}

// summaryTargets returns the counters shown on the stat cards.
func summaryTargets(s *models.DashboardSummary) map[string]float64 {
	if s == nil {
		return nil
	}
	return map[string]float64{
		"total":     float64(s.TotalCalls),
		"answered":  float64(s.AnsweredCalls),
		"missed":    float64(s.MissedCalls),
		"recovered": float64(s.RecoveredCalls),
	}
}

// syncAnimationTargets points every counter at the latest summary and
// reports whether any counter needs to move.
func (m *Model) syncAnimationTargets(now time.Time) bool {
	animating := false
	for k, target := range summaryTargets(m.state.Snapshot().Summary) {
		st, ok := m.animations[k]
		if !ok {
			st = &AnimationState{StartTime: now}
			m.animations[k] = st
		}
		if target != st.Target {
			st.Start = st.Current
			st.Target = target
			st.StartTime = now
		}
		if st.Current != st.Target {
			animating = true
		}
	}
	return animating
}

// stepAnimations advances every counter and reports whether any is still moving.
func (m *Model) stepAnimations(now time.Time) bool {
	moving := false
	for _, st := range m.animations {
		if st.Current == st.Target {
			continue
		}
		elapsed := now.Sub(st.StartTime)
		if elapsed >= animationDuration {
			st.Current = st.Target
			continue
		}
		progress := float64(elapsed) / float64(animationDuration)
		ease := 1.0 - (1.0-progress)*(1.0-progress)
		st.Current = st.Start + (st.Target-st.Start)*ease
		moving = true
	}
	return moving
}

// displayValue returns the animated counter for k, or fallback before any
// animation has been set up.
func (m *Model) displayValue(k string, fallback int) int {
	if st, ok := m.animations[k]; ok {
		return int(st.Current + 0.5)
	}
	return fallback
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ScrollDown,
		m.keys.ScrollUp,
		m.keys.Top,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ScrollDown, m.keys.ScrollUp, m.keys.Top},
	}
}
