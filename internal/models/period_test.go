package models

import (
	"errors"
	"testing"
	"time"
)

func TestPeriod_Range(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, loc)
	midnight := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)

	tests := []struct {
		name      string
		period    Period
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"today", PeriodOf(FilterToday), midnight, midnight.Add(Day), false},
		{"empty filter is today", Period{}, midnight, midnight.Add(Day), false},
		{"yesterday", PeriodOf(FilterYesterday), midnight.Add(-Day), midnight, false},
		{"week", PeriodOf(FilterWeek), midnight.Add(-7 * Day), midnight.Add(Day), false},
		{"month", PeriodOf(FilterMonth), time.Date(2026, 2, 15, 0, 0, 0, 0, loc), midnight.Add(Day), false},
		{
			"custom",
			CustomPeriod(midnight.Add(-3*Day), midnight.Add(-Day)),
			midnight.Add(-3 * Day), midnight.Add(-Day), false,
		},
		{"custom reversed", CustomPeriod(midnight, midnight.Add(-Day)), time.Time{}, time.Time{}, true},
		{"custom empty", Period{Filter: FilterCustom}, time.Time{}, time.Time{}, true},
		{"unknown", PeriodOf("fortnight"), time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.period.Range(now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("Range() error = %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Range() error = %v", err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("Range() = [%v, %v), want [%v, %v)", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if !got.Contains(now) && tt.period.Filter != FilterYesterday && tt.period.Filter != FilterCustom {
				t.Errorf("Range() should contain now")
			}
		})
	}
}

func TestTimeRange_Contains(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := TimeRange{Start: start, End: start.Add(Day)}

	if !r.Contains(start) {
		t.Error("start is inclusive")
	}
	if r.Contains(start.Add(Day)) {
		t.Error("end is exclusive")
	}
	if r.Contains(start.Add(-time.Nanosecond)) {
		t.Error("before start should not be contained")
	}
	if r.Duration() != Day {
		t.Errorf("Duration() = %v", r.Duration())
	}
}

func TestDateFilter_Next(t *testing.T) {
	tests := []struct {
		in   DateFilter
		want DateFilter
	}{
		{FilterToday, FilterYesterday},
		{FilterYesterday, FilterWeek},
		{FilterWeek, FilterMonth},
		{FilterMonth, FilterToday},
		{FilterCustom, FilterToday},
	}
	for _, tt := range tests {
		if got := tt.in.Next(); got != tt.want {
			t.Errorf("%s.Next() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDateFilter_String(t *testing.T) {
	tests := map[DateFilter]string{
		FilterToday:     "Today",
		FilterYesterday: "Yesterday",
		FilterWeek:      "This Week",
		FilterMonth:     "This Month",
		FilterCustom:    "Custom",
		"bogus":         "Unknown",
	}
	for f, want := range tests {
		if got := f.String(); got != want {
			t.Errorf("%q.String() = %q, want %q", string(f), got, want)
		}
	}
}

func TestMidnight(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	got := Midnight(time.Date(2026, 7, 4, 23, 59, 59, 0, loc))
	want := time.Date(2026, 7, 4, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Errorf("Midnight() = %v, want %v", got, want)
	}
}
