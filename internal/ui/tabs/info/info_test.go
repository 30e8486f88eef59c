package info

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fono-labs/fono-dash/internal/app"
	"github.com/fono-labs/fono-dash/internal/config"
	"github.com/fono-labs/fono-dash/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		APIURL:               "https://api.fono.test",
		TenantsPath:          "/etc/fono/tenants.json",
		CallsPerPage:         25,
		PollInterval:         30 * time.Second,
		NotificationDuration: 5 * time.Second,
		DesktopNotify:        true,
		ExportDir:            "/tmp/exports",
		LogLevel:             "info",
	}
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), &config.Config{})
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState(), &config.Config{})

	updated, cmd := m.Update(nil)
	if updated == nil {
		t.Error("Update returned nil model")
	}
	if cmd != nil {
		t.Error("non-key messages should be ignored")
	}

	m.SetSize(80, 10)
	m.View()
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.viewport.YOffset != 0 {
		t.Errorf("offset = %d after down/up", m.viewport.YOffset)
	}
}

func TestModel_View(t *testing.T) {
	state := app.NewState()
	tenants := []models.Tenant{
		{ID: "sg-1", Name: "Saffron Grill", Location: "Stockton"},
		{ID: "bb-2", Name: "Blue Bistro"},
	}
	state.SetTenants(tenants, tenants[0])
	state.SetLastExport("/tmp/exports/calls.xlsx")

	m := New(state, testConfig())
	m.SetSize(100, 80)
	view := m.View()

	for _, want := range []string{
		"https://api.fono.test",
		"/etc/fono/tenants.json",
		"every 30s",
		"5s",
		"/tmp/exports/calls.xlsx",
		"Restaurants (2)",
		"Saffron Grill",
		"Stockton",
		"Blue Bistro",
		"switch restaurant",
		"About Fono Dashboard",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_ViewDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 0
	cfg.NotificationDuration = 0

	m := New(app.NewState(), cfg)
	m.SetSize(100, 80)
	view := m.View()
	for _, want := range []string{"stream only", "until dismissed", "none yet", "No restaurants configured"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}

	m = New(app.NewState(), nil)
	m.SetSize(100, 80)
	if !strings.Contains(m.View(), "Configuration not loaded") {
		t.Error("nil config should be reported")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil)
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
