// Package models defines data structures and domain types.
package models

import (
	"strconv"
	"strings"
	"time"
)

// CallStatus is the outcome of a tracked call.
type CallStatus string

const (
	// StatusCompleted is a call the restaurant answered.
	StatusCompleted CallStatus = "completed"
	// StatusMissed is a call nobody picked up.
	StatusMissed CallStatus = "missed"
	// StatusRecovered is a missed call that was later called back successfully.
	StatusRecovered CallStatus = "recovered"
	// StatusIgnored is a call marked as not needing follow-up.
	StatusIgnored CallStatus = "ignored"
	// StatusNoAnswer is a call that rang out.
	StatusNoAnswer CallStatus = "no-answer"
	// StatusInProgress is a call that is still live.
	StatusInProgress CallStatus = "in-progress"
)

// ParseCallStatus normalizes the status spellings seen from the backend.
// Unknown values are returned lower-cased as-is.
func ParseCallStatus(s string) CallStatus {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "answered":
		return StatusCompleted
	case "in_progress", "inprogress", "ringing":
		return StatusInProgress
	case "no_answer", "noanswer":
		return StatusNoAnswer
	}
	return CallStatus(v)
}

// Known reports whether the status is one of the tracked values.
func (s CallStatus) Known() bool {
	switch s {
	case StatusCompleted, StatusMissed, StatusRecovered,
		StatusIgnored, StatusNoAnswer, StatusInProgress:
		return true
	}
	return false
}

// IsMissed reports whether the status counts as a missed call.
func (s CallStatus) IsMissed() bool {
	return s == StatusMissed || s == StatusNoAnswer
}

// Label returns a short display label.
func (s CallStatus) Label() string {
	switch s {
	case StatusCompleted:
		return "Answered"
	case StatusMissed:
		return "Missed"
	case StatusRecovered:
		return "Recovered"
	case StatusIgnored:
		return "Ignored"
	case StatusNoAnswer:
		return "No answer"
	case StatusInProgress:
		return "Live"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// CallRecord is one entry of a tenant's call log. Records are never
// modified client-side; they are only refetched.
type CallRecord struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	CallerNumber string     `json:"caller_number"`
	Status       CallStatus `json:"status"`
	Duration     *int       `json:"duration"`
	RecordingURL *string    `json:"recording_url"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at,omitempty"`
}

// CreatedTime parses CreatedAt, reading zone-less timestamps as local time.
// The second result is false when the timestamp is missing or malformed.
func (c *CallRecord) CreatedTime() (time.Time, bool) {
	return parseTimestamp(c.CreatedAt, time.Local)
}

// CreatedTimeIn is CreatedTime with zone-less timestamps read in loc.
func (c *CallRecord) CreatedTimeIn(loc *time.Location) (time.Time, bool) {
	return parseTimestamp(c.CreatedAt, loc)
}

// HasRecording reports whether a recording reference is attached.
func (c *CallRecord) HasRecording() bool {
	return c.RecordingURL != nil && *c.RecordingURL != ""
}

// DurationSeconds returns the call duration, or 0 when unknown.
func (c *CallRecord) DurationSeconds() int {
	if c.Duration == nil || *c.Duration < 0 {
		return 0
	}
	return *c.Duration
}

var localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatPhone renders a caller number for display. Ten and eleven digit
// North American numbers get the "+1 (209) 555-0142" form; anything else
// is returned unchanged.
func FormatPhone(raw string) string {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	d := string(digits)
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		if raw == "" {
			return "Unknown caller"
		}
		return raw
	}
	return "+1 (" + d[0:3] + ") " + d[3:6] + "-" + d[6:]
}

// FormatDuration renders seconds as "2m 34s".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := seconds % 60
	switch {
	case h > 0:
		return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
	case m > 0:
		return strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	default:
		return strconv.Itoa(s) + "s"
	}
}
