package overview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/ui/components"
	"github.com/fono-labs/fono-dash/internal/ui/styles"
)

// View renders the overview tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	now := m.now()
	m.syncAnimationTargets(now)
	m.stepAnimations(now)

	snap := m.state.Snapshot()

	sections := []string{
		m.renderTitle(snap),
		m.renderSummary(snap),
		m.renderChart(snap),
		m.renderRecentEvents(snap),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// Greeting returns the salutation for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func (m *Model) renderTitle(snap dashboard.Snapshot) string {
	now := m.now()
	name := m.state.GetActiveTenant().DisplayName()

	title := Greeting(now)
	if name != "" {
		title += ", " + name
	}

	var sub []string
	if snap.Period.Filter != "" {
		sub = append(sub, snap.Period.Filter.String())
	}
	if w := formatWindow(snap.Window); w != "" {
		sub = append(sub, w)
	}
	if !snap.LastUpdated.IsZero() {
		sub = append(sub, "updated "+formatAgo(m.state.TimeSinceUpdate()))
	}
	if label := components.LoadingLabel(snap.Loading); label != "" {
		sub = append(sub, m.spinner.View()+" "+label)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render(title),
		styles.HelpStyle.Render(strings.Join(sub, " · ")),
		"",
	)
}

func formatWindow(w models.TimeRange) string {
	if w.Start.IsZero() {
		return ""
	}
	last := w.End.Add(-time.Nanosecond)
	if w.Duration() <= models.Day {
		return w.Start.Format("Mon Jan 2")
	}
	return w.Start.Format("Jan 2") + " to " + last.Format("Jan 2")
}

func formatAgo(d time.Duration) string {
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func (m *Model) renderSummary(snap dashboard.Snapshot) string {
	if snap.Summary == nil {
		if snap.Err != nil {
			return styles.ErrorTextStyle.Render("Could not load calls: "+snap.Err.Error()) + "\n"
		}
		return styles.HelpStyle.Render("No summary yet") + "\n"
	}

	s := snap.Summary
	rate := s.RecoveryRate()

	cards := []string{
		statCard("Total calls", fmt.Sprintf("%d", m.displayValue("total", s.TotalCalls)), styles.StatValueStyle),
		statCard("Answered", fmt.Sprintf("%d", m.displayValue("answered", s.AnsweredCalls)), styles.StatusAnsweredStyle),
		statCard("Missed", fmt.Sprintf("%d", m.displayValue("missed", s.MissedCalls)), styles.StatusMissedStyle),
		statCard("Recovered", fmt.Sprintf("%d", m.displayValue("recovered", s.RecoveredCalls)), styles.StatusRecoveredStyle),
		statCard("Recovery rate", fmt.Sprintf("%.0f%%", rate), styles.GetRecoveryStyle(rate)),
	}
	secondary := []string{
		statCard("Avg response", fmt.Sprintf("%.0fs", s.AvgResponseTime), styles.StatValueStyle),
		statCard("Talk time", models.FormatDuration(s.TotalDurationSeconds), styles.StatValueStyle),
		statCard("Recordings", fmt.Sprintf("%d", s.TotalRecordings), styles.StatValueStyle),
	}

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, cards...),
		lipgloss.JoinHorizontal(lipgloss.Top, secondary...),
	}
	if snap.Err != nil {
		rows = append(rows, styles.WarningTextStyle.Render("Showing previous data: "+snap.Err.Error()))
	}
	rows = append(rows, "")
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func statCard(label, value string, valueStyle lipgloss.Style) string {
	return styles.StatCardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		valueStyle.Bold(true).Render(value),
		styles.StatLabelStyle.Render(label),
	))
}

func (m *Model) renderChart(snap dashboard.Snapshot) string {
	cardWidth := max(m.width-6, 40)
	titleIcon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	rows := []string{fmt.Sprintf("%s %s", titleIcon, styles.CardTitleStyle.Render("Calls by hour"))}

	switch {
	case snap.Chart == nil && snap.ChartErr != nil:
		rows = append(rows, styles.ErrorTextStyle.Render("Chart unavailable: "+snap.ChartErr.Error()))
	case snap.Chart == nil:
		rows = append(rows, styles.HelpStyle.Render("Building chart..."))
	default:
		rows = append(rows, m.renderChartBody(snap.Chart, cardWidth-10)...)
		if snap.ChartErr != nil {
			rows = append(rows, styles.WarningTextStyle.Render("Showing previous chart: "+snap.ChartErr.Error()))
		}
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderChartBody(chart *models.HourlyChart, width int) []string {
	rows := []string{
		components.RenderLegend(components.CallLegend()),
		"",
		components.RenderCallChart(chart.Points, width, 8),
		"",
		components.RenderHourlyHeatmap(chart.Points),
		"",
	}

	answered, missed, recovered := chart.Totals()
	a, mi, r := components.CallSeries(chart.Points)
	sparkWidth := len(chart.Points)
	rows = append(rows,
		miniTotal("Answered", answered, components.RenderColoredSparkline(a, sparkWidth, styles.Answered)),
		miniTotal("Missed", missed, components.RenderColoredSparkline(mi, sparkWidth, styles.Missed)),
		miniTotal("Recovered", recovered, components.RenderColoredSparkline(r, sparkWidth, styles.Recovered)),
	)

	if peak, ok := chart.Peak(); ok {
		rows = append(rows, "", fmt.Sprintf("Peak hour: %s (%d calls)",
			styles.FocusedStyle.Render(peak.Label), peak.Total()))
	} else {
		rows = append(rows, "", styles.HelpStyle.Render("No calls in business hours"))
	}

	if chart.Truncated {
		rows = append(rows, styles.WarningTextStyle.Render(
			fmt.Sprintf("Partial: read %d calls over %d pages; older calls are not counted", chart.Fetched, chart.Pages)))
	}
	return rows
}

func miniTotal(label string, n int, spark string) string {
	return fmt.Sprintf("  %-10s %4d  %s", label, n, spark)
}

func (m *Model) renderRecentEvents(snap dashboard.Snapshot) string {
	rows := []string{styles.SubTitleStyle.Render("Live activity")}

	if len(snap.RecentEvents) == 0 {
		if snap.Connection.Live() {
			rows = append(rows, styles.HelpStyle.Render("Waiting for calls..."))
		} else {
			rows = append(rows, styles.HelpStyle.Render("Stream offline, events will appear once it reconnects"))
		}
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	for i, ev := range snap.RecentEvents {
		if i == maxRecentEvents {
			break
		}
		rows = append(rows, renderEvent(ev))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderEvent(ev models.CallEvent) string {
	at := ev.ReceivedAt.Local().Format("3:04:05 PM")

	switch {
	case ev.CallStatus != nil:
		st := ev.CallStatus
		return fmt.Sprintf("  %s  %s  %s",
			styles.HelpStyle.Render(at),
			styles.GetStatusStyle(st.Status).Width(10).Render(st.Status.Label()),
			models.FormatPhone(st.CallerNumber))
	case ev.RecordingReady != nil:
		return fmt.Sprintf("  %s  %s  call %s",
			styles.HelpStyle.Render(at),
			styles.InfoTextStyle.Width(10).Render("Recording"),
			shortID(ev.RecordingReady.CallID))
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
