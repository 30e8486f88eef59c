// Package export writes the dashboard's current view to an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
)

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetHourly  = "Hourly"
	SheetCalls   = "Calls"
)

// Report is the data written to a workbook.
type Report struct {
	Tenant      models.Tenant
	Period      models.Period
	Window      models.TimeRange
	Summary     *models.DashboardSummary
	Chart       *models.HourlyChart
	Calls       []models.CallRecord
	GeneratedAt time.Time
	Location    *time.Location
}

// FileName returns the default workbook name for r.
func FileName(r Report) string {
	id := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		}
		return '_'
	}, r.Tenant.ID)
	return fmt.Sprintf("fono-%s-%s.xlsx", id, r.GeneratedAt.Format("20060102-150405"))
}

// Save writes r into dir and returns the file path.
func Save(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r))

	f, err := build(r)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close workbook", "error", err)
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	logger.Info("exported dashboard", "path", path, "calls", len(r.Calls))
	return path, nil
}

// Write streams the workbook for r to w.
func Write(w io.Writer, r Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close workbook", "error", err)
		}
	}()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func build(r Report) (*excelize.File, error) {
	if r.Location == nil {
		r.Location = time.Local
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{SheetHourly, SheetCalls} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to add %s sheet: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	steps := []func(*excelize.File, Report, int) error{writeSummary, writeHourly, writeCalls}
	for _, step := range steps {
		if err := step(f, r, bold); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, r Report, bold int) error {
	layout := "2006-01-02 15:04"
	rows := [][]any{
		{"Restaurant", r.Tenant.DisplayName()},
		{"Period", r.Period.Filter.String()},
		{"From", r.Window.Start.In(r.Location).Format(layout)},
		{"To", r.Window.End.In(r.Location).Format(layout)},
		{"Generated", r.GeneratedAt.In(r.Location).Format(layout)},
	}
	if s := r.Summary; s != nil {
		rows = append(rows,
			[]any{},
			[]any{"Total calls", s.TotalCalls},
			[]any{"Answered", s.AnsweredCalls},
			[]any{"Missed", s.MissedCalls},
			[]any{"Recovered", s.RecoveredCalls},
			[]any{"Recovery rate", fmt.Sprintf("%.0f%%", s.RecoveryRate())},
			[]any{"Avg response (s)", s.AvgResponseTime},
			[]any{"Recordings", s.TotalRecordings},
		)
	}
	if err := setRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetColStyle(SheetSummary, "A", bold); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "B", 22)
}

func writeHourly(f *excelize.File, r Report, bold int) error {
	rows := [][]any{{"Hour", "Answered", "Missed", "Recovered", "Total"}}
	if r.Chart != nil {
		for _, p := range r.Chart.Points {
			rows = append(rows, []any{p.Label, p.Answered, p.Missed, p.Recovered, p.Total()})
		}
		a, m, rec := r.Chart.Totals()
		rows = append(rows, []any{"Total", a, m, rec, a + m + rec})
		if r.Chart.Truncated {
			rows = append(rows, []any{}, []any{fmt.Sprintf("Partial: first %d calls only", r.Chart.Fetched)})
		}
	}
	if err := setRows(f, SheetHourly, rows); err != nil {
		return err
	}
	return f.SetRowStyle(SheetHourly, 1, 1, bold)
}

func writeCalls(f *excelize.File, r Report, bold int) error {
	rows := [][]any{{"Time", "Caller", "Status", "Duration", "Recording", "Call ID"}}
	for _, c := range r.Calls {
		when := ""
		if t, ok := c.CreatedTime(); ok {
			when = t.In(r.Location).Format("2006-01-02 15:04:05")
		}
		recording := ""
		if c.HasRecording() {
			recording = *c.RecordingURL
		}
		rows = append(rows, []any{
			when,
			models.FormatPhone(c.CallerNumber),
			c.Status.Label(),
			models.FormatDuration(c.DurationSeconds()),
			recording,
			c.ID,
		})
	}
	if err := setRows(f, SheetCalls, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetCalls, "A", "C", 20); err != nil {
		return fmt.Errorf("failed to size call columns: %w", err)
	}
	return f.SetRowStyle(SheetCalls, 1, 1, bold)
}
