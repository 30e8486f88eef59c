// Package analytics derives hourly call-volume charts from the call log.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/fono-labs/fono-dash/internal/api"
	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
)

const (
	// PageSize is the page size used while paging through the call log.
	PageSize = 100
	// MaxPages caps how many pages one aggregation reads.
	MaxPages = 5
)

// CallLogFetcher reads one page of a tenant's call log.
type CallLogFetcher interface {
	FetchCalls(ctx context.Context, tenant string, filters api.CallLogFilters) (*api.CallPage, error)
}

// Aggregator builds hourly charts for a period.
type Aggregator struct {
	source   CallLogFetcher
	now      func() time.Time
	loc      *time.Location
	maxPages int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the source of "now" used to anchor periods.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone whose midnight and hours define buckets.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// WithMaxPages overrides the page cap.
func WithMaxPages(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// NewAggregator creates an aggregator reading from source.
func NewAggregator(source CallLogFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:   source,
		now:      time.Now,
		loc:      time.Local,
		maxPages: MaxPages,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Window returns the half-open range a period covers right now.
func (a *Aggregator) Window(period models.Period) (models.TimeRange, error) {
	return period.Range(a.now().In(a.loc))
}

// Aggregate pages through the tenant's call log and buckets calls in the
// period by hour of day. A page error aborts the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, tenant string, period models.Period) (*models.HourlyChart, error) {
	window, err := a.Window(period)
	if err != nil {
		return nil, err
	}

	var records []models.CallRecord
	pages := 0
	lastFull := false
	for page := 1; page <= a.maxPages; page++ {
		res, err := a.source.FetchCalls(ctx, tenant, api.CallLogFilters{
			Status:  api.StatusAll,
			Page:    page,
			PerPage: PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch call log page %d: %w", page, err)
		}
		pages++
		records = append(records, res.Records...)
		lastFull = len(res.Records) >= PageSize
		if !lastFull {
			break
		}
	}

	points, matched := Bucketize(records, window, a.loc)
	chart := &models.HourlyChart{
		Points:    BusinessHours(points),
		Window:    window,
		Fetched:   len(records),
		Matched:   matched,
		Pages:     pages,
		Truncated: lastFull && pages == a.maxPages,
	}
	if chart.Truncated {
		logger.Debug("chart aggregation hit page cap", "tenant", tenant, "pages", pages, "records", len(records))
	}
	return chart, nil
}

// Bucketize counts records created inside window into 24 hourly buckets,
// using the hour of created_at in loc. It returns the buckets and the
// number of records inside the window. Records with unparseable timestamps
// are skipped.
func Bucketize(records []models.CallRecord, window models.TimeRange, loc *time.Location) ([]models.ChartDataPoint, int) {
	if loc == nil {
		loc = time.Local
	}
	buckets := make([]models.ChartDataPoint, 24)
	for h := range buckets {
		buckets[h] = models.ChartDataPoint{Hour: h, Label: models.HourLabel(h)}
	}

	matched := 0
	for _, r := range records {
		created, ok := r.CreatedTimeIn(loc)
		if !ok || !window.Contains(created) {
			continue
		}
		matched++
		b := &buckets[created.In(loc).Hour()]
		switch r.Status {
		case models.StatusCompleted:
			b.Answered++
		case models.StatusMissed, models.StatusNoAnswer:
			b.Missed++
		case models.StatusRecovered:
			b.Recovered++
		}
	}
	return buckets, matched
}

// BusinessHours keeps hours 6 through 23 of a 24-bucket series.
func BusinessHours(points []models.ChartDataPoint) []models.ChartDataPoint {
	out := make([]models.ChartDataPoint, 0, models.BusinessHourEnd-models.BusinessHourStart+1)
	for _, p := range points {
		if p.Hour >= models.BusinessHourStart && p.Hour <= models.BusinessHourEnd {
			out = append(out, p)
		}
	}
	return out
}
