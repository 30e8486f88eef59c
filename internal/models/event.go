package models

import "time"

// EventKind names a server-pushed call event.
type EventKind string

const (
	// EventCallStatus reports a status transition of a call.
	EventCallStatus EventKind = "call_status"
	// EventRecordingReady reports that a call recording became available.
	EventRecordingReady EventKind = "recording_ready"
)

// CallEvent is a decoded stream event. Exactly one of CallStatus and
// RecordingReady is set, matching Kind.
type CallEvent struct {
	Kind           EventKind
	CallStatus     *CallStatusEvent
	RecordingReady *RecordingReadyEvent
	ReceivedAt     time.Time
}

// CallStatusEvent is the payload of a call_status event.
type CallStatusEvent struct {
	CallID       string
	Status       CallStatus
	CallerNumber string
	Timestamp    time.Time
}

// RecordingReadyEvent is the payload of a recording_ready event.
type RecordingReadyEvent struct {
	CallID       string
	RecordingURL string
	Timestamp    time.Time
}

// CallID returns the call identifier of either variant.
func (e CallEvent) CallID() string {
	switch {
	case e.CallStatus != nil:
		return e.CallStatus.CallID
	case e.RecordingReady != nil:
		return e.RecordingReady.CallID
	}
	return ""
}

// CallerNumber returns the caller number carried by a call_status event.
func (e CallEvent) CallerNumber() string {
	if e.CallStatus != nil {
		return e.CallStatus.CallerNumber
	}
	return ""
}
