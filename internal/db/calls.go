package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

// timeLayout keeps stored instants lexically ordered.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// CallQuery selects a page of a tenant's call log, newest first.
type CallQuery struct {
	TenantID string
	// Status filters by exact status; empty matches all.
	Status string
	Limit  int
	Offset int
}

// InsertCall stores a new call. CreatedAt and UpdatedAt default to at.
func (db *DB) InsertCall(ctx context.Context, call *models.CallRecord, at time.Time) error {
	if call.CreatedAt == "" {
		call.CreatedAt = formatTime(at)
	}
	if call.UpdatedAt == "" {
		call.UpdatedAt = call.CreatedAt
	}

	query := `
		INSERT INTO calls (
			id, tenant_id, caller_number, status, duration, recording_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		call.ID,
		call.TenantID,
		call.CallerNumber,
		string(call.Status),
		nullInt(call.Duration),
		nullStringPtr(call.RecordingURL),
		call.CreatedAt,
		call.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}
	return nil
}

// UpdateCallStatus moves a call to status. A positive duration is stored
// with it.
func (db *DB) UpdateCallStatus(ctx context.Context, id string, status models.CallStatus, duration int, at time.Time) error {
	query := `
		UPDATE calls
		SET status = ?, duration = COALESCE(?, duration), updated_at = ?
		WHERE id = ?
	`
	var d sql.NullInt64
	if duration > 0 {
		d = sql.NullInt64{Int64: int64(duration), Valid: true}
	}
	result, err := db.ExecContext(ctx, query, string(status), d, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}
	return requireRow(result)
}

// SetRecording attaches a recording URL to a call.
func (db *DB) SetRecording(ctx context.Context, id, url string, at time.Time) error {
	result, err := db.ExecContext(ctx,
		"UPDATE calls SET recording_url = ?, updated_at = ? WHERE id = ?",
		url, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to set recording: %w", err)
	}
	return requireRow(result)
}

// SetResponseTime records how long the restaurant took to respond.
func (db *DB) SetResponseTime(ctx context.Context, id string, seconds float64) error {
	result, err := db.ExecContext(ctx, "UPDATE calls SET response_seconds = ? WHERE id = ?", seconds, id)
	if err != nil {
		return fmt.Errorf("failed to set response time: %w", err)
	}
	return requireRow(result)
}

// GetCall returns a call by id.
func (db *DB) GetCall(ctx context.Context, id string) (*models.CallRecord, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, tenant_id, caller_number, status, duration, recording_url, created_at, updated_at
		FROM calls WHERE id = ?
	`, id)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return call, nil
}

// ListCalls returns one page of calls and the total matching count.
func (db *DB) ListCalls(ctx context.Context, q CallQuery) ([]models.CallRecord, int, error) {
	where := "WHERE tenant_id = ?"
	args := []any{q.TenantID}
	if q.Status != "" {
		where += " AND status = ?"
		args = append(args, q.Status)
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calls "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count calls: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, tenant_id, caller_number, status, duration, recording_url, created_at, updated_at
		FROM calls ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	calls := make([]models.CallRecord, 0)
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, *call)
	}
	return calls, total, rows.Err()
}

// Summary aggregates a tenant's calls created in [start, end). Nil bounds
// are open.
func (db *DB) Summary(ctx context.Context, tenantID string, start, end *time.Time) (*models.DashboardSummary, error) {
	where := "WHERE tenant_id = ?"
	args := []any{tenantID}
	if start != nil {
		where += " AND created_at >= ?"
		args = append(args, formatTime(*start))
	}
	if end != nil {
		where += " AND created_at < ?"
		args = append(args, formatTime(*end))
	}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN ('missed', 'no-answer') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'recovered' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(response_seconds), 0),
			COALESCE(SUM(duration), 0),
			COALESCE(SUM(CASE WHEN recording_url IS NOT NULL AND recording_url != '' THEN 1 ELSE 0 END), 0)
		FROM calls ` + where

	var s models.DashboardSummary
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&s.TotalCalls,
		&s.MissedCalls,
		&s.AnsweredCalls,
		&s.RecoveredCalls,
		&s.AvgResponseTime,
		&s.TotalDurationSeconds,
		&s.TotalRecordings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize calls: %w", err)
	}
	return &s, nil
}

// InsertBridge records a call-back request.
func (db *DB) InsertBridge(ctx context.Context, id, tenantID, phone string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO bridges (id, tenant_id, phone_number, created_at) VALUES (?, ?, ?, ?)",
		id, tenantID, phone, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to insert bridge: %w", err)
	}
	return nil
}

// CountBridges returns the number of call-backs requested for a tenant.
func (db *DB) CountBridges(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bridges WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bridges: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(s scanner) (*models.CallRecord, error) {
	var (
		call      models.CallRecord
		status    string
		duration  sql.NullInt64
		recording sql.NullString
	)
	err := s.Scan(
		&call.ID,
		&call.TenantID,
		&call.CallerNumber,
		&status,
		&duration,
		&recording,
		&call.CreatedAt,
		&call.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	call.Status = models.CallStatus(status)
	if duration.Valid {
		d := int(duration.Int64)
		call.Duration = &d
	}
	if recording.Valid {
		u := recording.String
		call.RecordingURL = &u
	}
	return &call, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullStringPtr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
