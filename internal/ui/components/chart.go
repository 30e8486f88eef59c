// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/ui/styles"
)

// sparkChars are the sparkline glyphs from low to high.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// CallSeries returns the per-hour answered, missed and recovered counts.
func CallSeries(points []models.ChartDataPoint) (answered, missed, recovered []float64) {
	answered = make([]float64, len(points))
	missed = make([]float64, len(points))
	recovered = make([]float64, len(points))
	for i, p := range points {
		answered[i] = float64(p.Answered)
		missed[i] = float64(p.Missed)
		recovered[i] = float64(p.Recovered)
	}
	return answered, missed, recovered
}

// RenderCallChart plots answered, missed and recovered calls per hour.
func RenderCallChart(points []models.ChartDataPoint, width, height int) string {
	if len(points) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	answered, missed, recovered := CallSeries(points)

	// asciigraph needs at least two samples to draw a line.
	if len(points) == 1 {
		answered = append(answered, answered[0])
		missed = append(missed, missed[0])
		recovered = append(recovered, recovered[0])
	}

	caption := fmt.Sprintf("%s to %s", points[0].Label, points[len(points)-1].Label)

	return asciigraph.PlotMany([][]float64{answered, missed, recovered},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.Precision(0),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(
			asciigraph.Green,
			asciigraph.Red,
			asciigraph.Blue,
		),
	)
}

// CallLegend returns the legend matching RenderCallChart's series colors.
func CallLegend() []LegendItem {
	return []LegendItem{
		{Label: "Answered", Color: styles.Answered},
		{Label: "Missed", Color: styles.Missed},
		{Label: "Recovered", Color: styles.Recovered},
	}
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, len(l))
	}

	barWidth := max(width-maxLabelLen-10, 10) // room for label and value

	var lines []string
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		paddedLabel := fmt.Sprintf("%*s", maxLabelLen, label)
		barLen := max(int((v/maxVal)*float64(barWidth)), 0)

		bar := strings.Repeat("█", barLen)
		lines = append(lines, fmt.Sprintf("%s │%s %.0f", paddedLabel, bar, v))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap renders one cell per chart hour, shaded by call volume.
func RenderHourlyHeatmap(points []models.ChartDataPoint) string {
	if len(points) == 0 {
		return ""
	}

	maxVal := 0
	for _, p := range points {
		maxVal = max(maxVal, p.Total())
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	result.WriteString(points[0].Label + " ")

	for i, p := range points {
		intensity := min(max(p.Total()*(len(HeatmapBlocks)-1)/maxVal, 0), len(HeatmapBlocks)-1)

		var style lipgloss.Style
		switch intensity {
		case 0:
			style = lipgloss.NewStyle().Foreground(styles.Subtle)
		case 1:
			style = lipgloss.NewStyle().Foreground(styles.Success)
		case 2:
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		default:
			style = lipgloss.NewStyle().Foreground(styles.Error)
		}

		result.WriteString(style.Render(string(HeatmapBlocks[intensity])))

		if p.Hour == 11 && i < len(points)-1 {
			result.WriteString(" ")
		}
	}

	result.WriteString(" " + points[len(points)-1].Label)
	return result.String()
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	step := max(float64(len(values))/float64(width), 1)

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := min(max(int((val/maxVal)*float64(len(sparkChars)-1)), 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[normalized])
	}

	return result.String()
}

// RenderColoredSparkline creates a sparkline in a single color.
func RenderColoredSparkline(values []float64, width int, color lipgloss.TerminalColor) string {
	line := RenderSparkline(values, width)
	if line == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(color).Render(line)
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
