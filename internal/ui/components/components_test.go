package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
)

func businessHours() []models.ChartDataPoint {
	var points []models.ChartDataPoint
	for h := models.BusinessHourStart; h <= models.BusinessHourEnd; h++ {
		points = append(points, models.ChartDataPoint{Hour: h, Label: models.HourLabel(h)})
	}
	points[6].Answered = 4 // 12 PM
	points[6].Missed = 2
	points[7].Recovered = 1
	return points
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}
}

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Init")

	s.SetLabel("Loading")
	if s.Label() != "Loading" {
		t.Errorf("Label = %s, want Loading", s.Label())
	}

	if s.View() == "" {
		t.Error("View returned empty")
	}
	if !strings.Contains(s.ViewWithLabel(), "Loading") {
		t.Error("ViewWithLabel should contain the label")
	}
	if s.Init() == nil {
		t.Error("Init should return command")
	}

	_, cmd := s.Update(spinner.TickMsg{})
	if cmd == nil {
		t.Error("Update should return command for tick")
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	s := NewSpinner("Loading...")
	view := RenderSpinnerCentered(s, 20, 5)
	if view == "" {
		t.Error("RenderSpinnerCentered returned empty")
	}
}

func TestLoadingLabel(t *testing.T) {
	tests := []struct {
		name    string
		loading dashboard.LoadingState
		want    string
	}{
		{"initial", dashboard.LoadingState{Initial: true, Data: true}, "Loading calls..."},
		{"both", dashboard.LoadingState{Data: true, Chart: true}, "Refreshing calls and chart..."},
		{"data", dashboard.LoadingState{Data: true}, "Refreshing calls..."},
		{"chart", dashboard.LoadingState{Chart: true}, "Building chart..."},
		{"idle", dashboard.LoadingState{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LoadingLabel(tt.loading); got != tt.want {
				t.Errorf("LoadingLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallSeries(t *testing.T) {
	answered, missed, recovered := CallSeries(businessHours())
	if len(answered) != 18 || len(missed) != 18 || len(recovered) != 18 {
		t.Fatalf("series lengths = %d/%d/%d, want 18", len(answered), len(missed), len(recovered))
	}
	if answered[6] != 4 || missed[6] != 2 || recovered[7] != 1 {
		t.Errorf("series values wrong: %v %v %v", answered[6], missed[6], recovered[7])
	}
}

func TestRenderCallChart(t *testing.T) {
	s := RenderCallChart(businessHours(), 40, 6)
	if s == "" {
		t.Fatal("RenderCallChart returned empty")
	}
	if !strings.Contains(s, "6 AM to 11 PM") {
		t.Errorf("caption missing from chart:\n%s", s)
	}

	if got := RenderCallChart(nil, 40, 6); !strings.Contains(got, "No data") {
		t.Errorf("empty chart = %q", got)
	}

	// A single point still plots.
	one := []models.ChartDataPoint{{Hour: 9, Label: "9 AM", Answered: 1}}
	if RenderCallChart(one, 10, 1) == "" {
		t.Error("single point chart returned empty")
	}
}

func TestCallLegend(t *testing.T) {
	legend := RenderLegend(CallLegend())
	for _, label := range []string{"Answered", "Missed", "Recovered"} {
		if !strings.Contains(legend, label) {
			t.Errorf("legend missing %s", label)
		}
	}
}

func TestRenderBarChart(t *testing.T) {
	s := RenderBarChart([]float64{10, 20}, []string{"A", "B"}, 20)
	if !strings.Contains(s, "20") {
		t.Errorf("RenderBarChart = %q", s)
	}
	if RenderBarChart(nil, nil, 20) != "" {
		t.Error("RenderBarChart(nil) should be empty")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	s := RenderHourlyHeatmap(businessHours())
	if !strings.HasPrefix(s, "6 AM") || !strings.HasSuffix(s, "11 PM") {
		t.Errorf("heatmap labels wrong: %q", s)
	}
	if RenderHourlyHeatmap(nil) != "" {
		t.Error("empty heatmap should be empty")
	}
}

func TestRenderSparkline(t *testing.T) {
	s := RenderSparkline([]float64{0, 4, 8}, 10)
	if s != "▁▄█" {
		t.Errorf("RenderSparkline = %q, want ▁▄█", s)
	}
	if RenderSparkline(nil, 10) != "" {
		t.Error("empty sparkline should be empty")
	}
}

func TestRenderColoredSparkline(t *testing.T) {
	s := RenderColoredSparkline([]float64{1, 2, 3}, 10, lipgloss.Color("42"))
	if s == "" {
		t.Error("RenderColoredSparkline returned empty")
	}
}

func TestRenderLegend(t *testing.T) {
	items := []LegendItem{
		{Label: "A", Color: lipgloss.Color("#ffffff")},
	}
	if RenderLegend(items) == "" {
		t.Error("RenderLegend returned empty")
	}
}
