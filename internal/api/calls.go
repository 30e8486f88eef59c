package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

const (
	// DefaultPerPage is the page size used when none is requested.
	DefaultPerPage = 20
	// MaxPerPage is the largest page size the backend accepts.
	MaxPerPage = 100
	// StatusAll disables status filtering.
	StatusAll = "all"
)

// CallLogFilters selects a page of the call log.
type CallLogFilters struct {
	// Status is a CallStatus value or "all". Empty means all.
	Status  string
	Page    int
	PerPage int
}

func (f CallLogFilters) normalized() CallLogFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Status == "" {
		f.Status = StatusAll
	}
	return f
}

// CallPage is one page of the call log, newest first.
type CallPage struct {
	Records    []models.CallRecord
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// FetchCalls retrieves one page of a tenant's call log.
func (c *Client) FetchCalls(ctx context.Context, tenant string, filters CallLogFilters) (*CallPage, error) {
	if tenant == "" {
		return nil, ErrMissingTenant
	}
	f := filters.normalized()

	query := url.Values{}
	query.Set("page", strconv.Itoa(f.Page))
	query.Set("per_page", strconv.Itoa(f.PerPage))
	if f.Status != StatusAll {
		query.Set("status", f.Status)
	}

	var raw json.RawMessage
	if err := c.getJSON(ctx, c.dashboardPath(tenant, "calls"), query, &raw); err != nil {
		return nil, err
	}

	records, total, err := decodeCallList(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse call log: %w", err)
	}

	page := &CallPage{
		Records: records,
		Total:   total,
		Page:    f.Page,
		PerPage: f.PerPage,
	}
	page.TotalPages = (total + f.PerPage - 1) / f.PerPage
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return page, nil
}

var (
	listKeys  = []string{"calls", "records", "data", "items"}
	totalKeys = []string{"total", "total_count", "count"}
)

// decodeCallList accepts the list shapes the backend has used: a bare array
// or an object carrying the list and a total under one of several keys.
func decodeCallList(raw json.RawMessage) ([]models.CallRecord, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var records []models.CallRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, 0, err
		}
		return normalizeRecords(records), len(records), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, 0, err
	}

	records := []models.CallRecord{}
	for _, key := range listKeys {
		v, ok := obj[key]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, &records); err != nil {
			return nil, 0, fmt.Errorf("field %q: %w", key, err)
		}
		break
	}

	total := len(records)
	for _, key := range totalKeys {
		v, ok := obj[key]
		if !ok || string(v) == "null" {
			continue
		}
		var n float64
		if err := json.Unmarshal(v, &n); err == nil {
			total = int(n)
			break
		}
	}

	return normalizeRecords(records), total, nil
}

func normalizeRecords(records []models.CallRecord) []models.CallRecord {
	for i := range records {
		records[i].Status = models.ParseCallStatus(string(records[i].Status))
	}
	return records
}

// FetchSummary retrieves the aggregate counters for a tenant. A nil window
// leaves the period to the server.
func (c *Client) FetchSummary(ctx context.Context, tenant string, window *models.TimeRange) (*models.DashboardSummary, error) {
	if tenant == "" {
		return nil, ErrMissingTenant
	}

	query := url.Values{}
	if window != nil {
		query.Set("start_date", window.Start.Format(time.RFC3339))
		query.Set("end_date", window.End.Format(time.RFC3339))
	}

	var summary models.DashboardSummary
	if err := c.getJSON(ctx, c.dashboardPath(tenant, "summary"), query, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// BridgeResponse is returned by a successful call-back request.
type BridgeResponse struct {
	CallID string `json:"call_id"`
}

type bridgeRequest struct {
	TenantID    string `json:"tenant_id"`
	PhoneNumber string `json:"phone_number"`
}

// Bridge asks the backend to connect the restaurant to phone.
func (c *Client) Bridge(ctx context.Context, tenant, phone string) (*BridgeResponse, error) {
	if tenant == "" {
		return nil, ErrMissingTenant
	}
	if phone == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	var resp BridgeResponse
	if err := c.postJSON(ctx, c.baseURL+"/api/v1/calls/bridge", bridgeRequest{
		TenantID:    tenant,
		PhoneNumber: phone,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
