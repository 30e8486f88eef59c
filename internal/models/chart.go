package models

import "strconv"

const (
	// BusinessHourStart is the first hour reported by chart aggregation.
	BusinessHourStart = 6
	// BusinessHourEnd is the last hour reported by chart aggregation (inclusive).
	BusinessHourEnd = 23
)

// ChartDataPoint holds per-outcome call counts for one hour of the day.
type ChartDataPoint struct {
	Hour      int    `json:"hour"`
	Label     string `json:"label"`
	Answered  int    `json:"answered"`
	Missed    int    `json:"missed"`
	Recovered int    `json:"recovered"`
}

// Total returns the number of tracked calls in the hour.
func (p ChartDataPoint) Total() int {
	return p.Answered + p.Missed + p.Recovered
}

// HourLabel renders an hour of the day in 12-hour form ("12 AM", "6 AM", "1 PM").
func HourLabel(hour int) string {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if hour%24 >= 12 {
		suffix = "PM"
	}
	return strconv.Itoa(h) + " " + suffix
}

// HourlyChart is the result of aggregating a call log window.
type HourlyChart struct {
	Points []ChartDataPoint
	Window TimeRange
	// Fetched is the number of records read from the call log.
	Fetched int
	// Matched is the number of records inside Window.
	Matched int
	Pages   int
	// Truncated is set when the page cap stopped pagination on a full page,
	// so older records in the window may be missing.
	Truncated bool
}

// Totals sums the outcome counters across all points.
func (c *HourlyChart) Totals() (answered, missed, recovered int) {
	if c == nil {
		return 0, 0, 0
	}
	for _, p := range c.Points {
		answered += p.Answered
		missed += p.Missed
		recovered += p.Recovered
	}
	return answered, missed, recovered
}

// Peak returns the busiest hour. ok is false when every point is empty.
func (c *HourlyChart) Peak() (point ChartDataPoint, ok bool) {
	if c == nil {
		return ChartDataPoint{}, false
	}
	for _, p := range c.Points {
		if p.Total() > point.Total() {
			point = p
			ok = true
		}
	}
	return point, ok
}
