package overview

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fono-labs/fono-dash/internal/app"
	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
)

var morning = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

func testChart() *models.HourlyChart {
	chart := &models.HourlyChart{Fetched: 7, Pages: 1, Matched: 7}
	for h := models.BusinessHourStart; h <= models.BusinessHourEnd; h++ {
		chart.Points = append(chart.Points, models.ChartDataPoint{Hour: h, Label: models.HourLabel(h)})
	}
	chart.Points[6].Answered = 3 // 12 PM
	chart.Points[6].Missed = 1
	chart.Points[7].Missed = 2
	chart.Points[7].Recovered = 1
	return chart
}

func loadedState() *app.State {
	state := app.NewState()
	state.SetTenants([]models.Tenant{{ID: "sg-1", Name: "Saffron Grill"}}, models.Tenant{ID: "sg-1", Name: "Saffron Grill"})
	state.SetSnapshot(dashboard.Snapshot{
		Tenant: "sg-1",
		Period: models.PeriodOf(models.FilterToday),
		Window: models.TimeRange{
			Start: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		Summary: &models.DashboardSummary{
			TotalCalls:     7,
			AnsweredCalls:  3,
			MissedCalls:    3,
			RecoveredCalls: 1,
		},
		Chart:      testChart(),
		Connection: models.ConnectionState{Phase: models.PhaseOpen},
		RecentEvents: []models.CallEvent{{
			Kind: models.EventCallStatus,
			CallStatus: &models.CallStatusEvent{
				CallID:       "call-1",
				Status:       models.StatusMissed,
				CallerNumber: "2095550142",
			},
			ReceivedAt: morning,
		}},
	})
	return state
}

func newModel(state *app.State) *Model {
	m := New(state)
	m.now = func() time.Time { return morning }
	m.SetSize(120, 80)
	return m
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := newModel(app.NewState())
	if !strings.Contains(m.View(), "Loading calls") {
		t.Error("initial view should show the loading spinner")
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(loadedState())
	view := m.View()

	for _, want := range []string{
		"Good morning, Saffron Grill",
		"Today",
		"Wed Mar 4",
		"Total calls",
		"Recovery rate",
		"33%",
		"Calls by hour",
		"Answered",
		"Peak hour",
		"12 PM",
		"Live activity",
		"(209) 555-0142",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
	if strings.Contains(view, "Partial") {
		t.Error("complete chart should not be flagged partial")
	}
}

func TestModel_ViewTruncatedAndErrors(t *testing.T) {
	state := loadedState()
	snap := state.Snapshot()
	snap.Chart.Truncated = true
	snap.Chart.Pages = 10
	snap.Err = errors.New("API error 500")
	snap.RecentEvents = nil
	snap.Connection = models.ConnectionState{Phase: models.PhaseRetrying}
	state.SetSnapshot(snap)

	view := newModel(state).View()
	for _, want := range []string{"Partial", "10 pages", "Showing previous data", "Stream offline"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}

	state.SetSnapshot(dashboard.Snapshot{ChartErr: errors.New("timeout"), Err: errors.New("down")})
	view = newModel(state).View()
	if !strings.Contains(view, "Could not load calls") || !strings.Contains(view, "Chart unavailable") {
		t.Errorf("empty error view wrong")
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{6, "Good morning"},
		{11, "Good morning"},
		{12, "Good afternoon"},
		{16, "Good afternoon"},
		{17, "Good evening"},
		{23, "Good evening"},
	}
	for _, tt := range tests {
		at := time.Date(2026, 3, 4, tt.hour, 0, 0, 0, time.UTC)
		if got := Greeting(at); got != tt.want {
			t.Errorf("Greeting(%d:00) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestFormatWindow(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := formatWindow(models.TimeRange{}); got != "" {
		t.Errorf("zero window = %q", got)
	}
	if got := formatWindow(models.TimeRange{Start: day, End: day.Add(models.Day)}); got != "Wed Mar 4" {
		t.Errorf("day window = %q", got)
	}
	week := models.TimeRange{Start: day.Add(-7 * models.Day), End: day.Add(models.Day)}
	if got := formatWindow(week); got != "Feb 25 to Mar 4" {
		t.Errorf("week window = %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Second, "just now"},
		{30 * time.Second, "30s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
	}
	for _, tt := range tests {
		if got := formatAgo(tt.d); got != tt.want {
			t.Errorf("formatAgo(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestModel_Animation(t *testing.T) {
	m := newModel(loadedState())

	_, cmd := m.Update(app.SnapshotMsg{})
	if cmd == nil {
		t.Fatal("new summary should start the counter animation")
	}
	if got := m.displayValue("total", 0); got != 0 {
		t.Errorf("counter starts at 0, got %d", got)
	}

	m.stepAnimations(morning.Add(animationDuration / 2))
	mid := m.displayValue("total", 0)
	if mid <= 0 || mid >= 7 {
		t.Errorf("halfway counter = %d, want between 0 and 7", mid)
	}

	if m.handleAnimationTick(morning.Add(2*animationDuration)) != nil {
		t.Error("finished animation should stop ticking")
	}
	if got := m.displayValue("total", 0); got != 7 {
		t.Errorf("final counter = %d, want 7", got)
	}

	// Same targets: nothing to animate.
	if m.syncAnimationTargets(morning) {
		t.Error("unchanged summary should not animate")
	}
}

func TestModel_Keys(t *testing.T) {
	m := newModel(loadedState())
	m.View()

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if m.viewport.YOffset != 0 {
		t.Errorf("g should return to top, offset %d", m.viewport.YOffset)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
