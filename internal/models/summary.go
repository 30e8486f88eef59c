package models

import (
	"encoding/json"
	"strconv"
)

// DashboardSummary holds the server-side aggregate counters for a period.
// The client treats it as an opaque snapshot.
type DashboardSummary struct {
	TotalCalls           int     `json:"total_calls"`
	MissedCalls          int     `json:"missed_calls"`
	AnsweredCalls        int     `json:"answered_calls"`
	RecoveredCalls       int     `json:"recovered_calls"`
	AvgResponseTime      float64 `json:"avg_response_time"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	TotalRecordings      int     `json:"total_recordings"`
	Period               string  `json:"period"`
}

// UnmarshalJSON accepts numbers encoded as JSON numbers, numeric strings,
// or null. Anything unparseable decodes as zero.
func (s *DashboardSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		TotalCalls           lenientNumber `json:"total_calls"`
		MissedCalls          lenientNumber `json:"missed_calls"`
		AnsweredCalls        lenientNumber `json:"answered_calls"`
		RecoveredCalls       lenientNumber `json:"recovered_calls"`
		AvgResponseTime      lenientNumber `json:"avg_response_time"`
		TotalDurationSeconds lenientNumber `json:"total_duration_seconds"`
		TotalRecordings      lenientNumber `json:"total_recordings"`
		Period               string        `json:"period"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DashboardSummary{
		TotalCalls:           int(raw.TotalCalls),
		MissedCalls:          int(raw.MissedCalls),
		AnsweredCalls:        int(raw.AnsweredCalls),
		RecoveredCalls:       int(raw.RecoveredCalls),
		AvgResponseTime:      float64(raw.AvgResponseTime),
		TotalDurationSeconds: int(raw.TotalDurationSeconds),
		TotalRecordings:      int(raw.TotalRecordings),
		Period:               raw.Period,
	}
	return nil
}

// RecoveryRate returns recovered / missed as a percentage.
func (s *DashboardSummary) RecoveryRate() float64 {
	if s == nil || s.MissedCalls == 0 {
		return 0
	}
	return float64(s.RecoveredCalls) / float64(s.MissedCalls) * 100
}

type lenientNumber float64

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = lenientNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = lenientNumber(v)
			return nil
		}
	}
	*n = 0
	return nil
}
