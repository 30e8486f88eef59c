package models

import "time"

// ConnectionPhase is the lifecycle phase of the event stream.
type ConnectionPhase int

// The zero value is PhaseClosed, so a state that was never connected
// reads as offline.
const (
	// PhaseClosed means no stream is connected or it was torn down explicitly.
	PhaseClosed ConnectionPhase = iota
	// PhaseConnecting means a connection attempt is in progress.
	PhaseConnecting
	// PhaseOpen means the stream is delivering events.
	PhaseOpen
	// PhaseRetrying means the last attempt failed and a reconnect is scheduled.
	PhaseRetrying
)

// String returns the string representation of a ConnectionPhase.
func (p ConnectionPhase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseRetrying:
		return "retrying"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionState is the stream client's state. Attempt counts consecutive
// failed attempts since the last successful open.
type ConnectionState struct {
	Phase     ConnectionPhase
	Attempt   int
	NextRetry time.Duration
	Since     time.Time
}

// Live reports whether events are currently flowing.
func (s ConnectionState) Live() bool {
	return s.Phase == PhaseOpen
}
