package info

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fono-labs/fono-dash/internal/ui/styles"
	"github.com/fono-labs/fono-dash/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderTenantsCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration")}

	cfg := m.config
	if cfg == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	poll := "stream only"
	if cfg.PollInterval > 0 {
		poll = "every " + cfg.PollInterval.String()
	}
	desktop := "off"
	if cfg.DesktopNotify {
		desktop = "on"
	}
	lastExport := m.state.GetLastExport()
	if lastExport == "" {
		lastExport = "none yet"
	}

	rows = append(rows,
		configRow("API", orDash(cfg.APIURL)),
		configRow("Tenants File", orDash(cfg.TenantsPath)),
		configRow("Tenant", orDash(cfg.TenantID)),
		configRow("Calls Per Page", fmt.Sprintf("%d", cfg.CallsPerPage)),
		configRow("Refresh", poll),
		configRow("Toasts", formatDuration(cfg.NotificationDuration)),
		configRow("Desktop Alerts", desktop),
		configRow("Export Dir", orDash(cfg.ExportDir)),
		configRow("Last Export", lastExport),
		configRow("Log File", orDash(cfg.LogFile)),
		configRow("Log Level", orDash(cfg.LogLevel)),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderTenantsCard() string {
	tenants := m.state.GetTenants()
	active := m.state.GetActiveTenant()

	rows := []string{styles.CardTitleStyle.Render(fmt.Sprintf("Restaurants (%d)", len(tenants)))}
	if len(tenants) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No restaurants configured"))
	}
	for _, t := range tenants {
		marker := "  "
		name := t.DisplayName()
		if t.ID == active.ID {
			marker = styles.FocusedStyle.Render("● ")
			name = styles.FocusedStyle.Render(name)
		}
		line := marker + name + styles.HelpStyle.Render(" ("+t.ID+")")
		if t.Location != "" {
			line += " " + styles.HelpStyle.Render(t.Location)
		}
		rows = append(rows, line)
	}
	if len(tenants) > 1 {
		rows = append(rows, "", styles.HelpStyle.Render("Press 't' to switch restaurant"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About Fono Dashboard"),
		configRow("Version", version.GetVersion()),
		configRow("Build Date", version.GetDate()),
		configRow("Git Commit", version.GetCommit()),
		configRow("Go Version", runtime.Version()),
		configRow("Platform", runtime.GOOS+"/"+runtime.GOARCH),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func configRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "until dismissed"
	}
	return d.String()
}
