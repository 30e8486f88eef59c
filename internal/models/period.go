package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a custom period has no usable bounds.
var ErrInvalidRange = errors.New("invalid date range")

// DateFilter is a named reporting period.
type DateFilter string

const (
	// FilterToday covers local midnight today to midnight tomorrow.
	FilterToday DateFilter = "today"
	// FilterYesterday covers the 24 hours before local midnight today.
	FilterYesterday DateFilter = "yesterday"
	// FilterWeek covers the last seven days plus today.
	FilterWeek DateFilter = "week"
	// FilterMonth covers one calendar month back plus today.
	FilterMonth DateFilter = "month"
	// FilterCustom uses caller-supplied bounds.
	FilterCustom DateFilter = "custom"
)

// DateFilters lists the computed filters in display order.
var DateFilters = []DateFilter{FilterToday, FilterYesterday, FilterWeek, FilterMonth}

// String returns the display name for a filter.
func (f DateFilter) String() string {
	switch f {
	case FilterToday:
		return "Today"
	case FilterYesterday:
		return "Yesterday"
	case FilterWeek:
		return "This Week"
	case FilterMonth:
		return "This Month"
	case FilterCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Next cycles through the computed filters.
func (f DateFilter) Next() DateFilter {
	for i, d := range DateFilters {
		if d == f {
			return DateFilters[(i+1)%len(DateFilters)]
		}
	}
	return FilterToday
}

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Period is a date filter plus the bounds used when the filter is custom.
type Period struct {
	Filter DateFilter
	Custom TimeRange
}

// PeriodOf returns a computed (non-custom) period.
func PeriodOf(f DateFilter) Period {
	return Period{Filter: f}
}

// CustomPeriod returns a custom period over [start, end).
func CustomPeriod(start, end time.Time) Period {
	return Period{Filter: FilterCustom, Custom: TimeRange{Start: start, End: end}}
}

// Day is the fixed 24h span used for period arithmetic.
const Day = 24 * time.Hour

// Midnight returns local midnight of the day containing now.
func Midnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Range resolves the period against now. The caller picks the location by
// passing now in it; midnight is computed in that location.
func (p Period) Range(now time.Time) (TimeRange, error) {
	today := Midnight(now)
	tomorrow := today.Add(Day)

	switch p.Filter {
	case FilterToday, "":
		return TimeRange{Start: today, End: tomorrow}, nil
	case FilterYesterday:
		return TimeRange{Start: today.Add(-Day), End: today}, nil
	case FilterWeek:
		return TimeRange{Start: today.Add(-7 * Day), End: tomorrow}, nil
	case FilterMonth:
		return TimeRange{Start: today.AddDate(0, -1, 0), End: tomorrow}, nil
	case FilterCustom:
		if p.Custom.Start.IsZero() || p.Custom.End.IsZero() || !p.Custom.End.After(p.Custom.Start) {
			return TimeRange{}, fmt.Errorf("%w: custom period needs start before end", ErrInvalidRange)
		}
		return p.Custom, nil
	default:
		return TimeRange{}, fmt.Errorf("%w: unknown filter %q", ErrInvalidRange, p.Filter)
	}
}
