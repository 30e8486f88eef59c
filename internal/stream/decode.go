package stream

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

var errUnknownEvent = errors.New("unrecognized event payload")

type payload struct {
	CallID       string `json:"call_id"`
	ID           string `json:"id"`
	Status       string `json:"status"`
	CallerNumber string `json:"caller_number"`
	RecordingURL string `json:"recording_url"`
	Timestamp    string `json:"timestamp"`
}

type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Call      json.RawMessage `json:"call"`
	Timestamp string          `json:"timestamp"`
}

// decode turns a stream message into a CallEvent. Named events carry the
// flat payload; unnamed ones carry a {type, data|call, timestamp} envelope.
func decode(msg message, receivedAt time.Time) (models.CallEvent, error) {
	kind := models.EventKind(msg.Event)
	raw := json.RawMessage(msg.Data)
	var fallbackTS string

	if msg.Event == "" || msg.Event == "message" {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return models.CallEvent{}, err
		}
		kind = models.EventKind(env.Type)
		fallbackTS = env.Timestamp
		switch {
		case len(env.Data) > 0 && string(env.Data) != "null":
			raw = env.Data
		case len(env.Call) > 0 && string(env.Call) != "null":
			raw = env.Call
		}
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.CallEvent{}, err
	}
	if p.CallID == "" {
		p.CallID = p.ID
	}
	if p.Timestamp == "" {
		p.Timestamp = fallbackTS
	}
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)

	ev := models.CallEvent{Kind: kind, ReceivedAt: receivedAt}
	switch kind {
	case models.EventCallStatus:
		if p.CallID == "" || p.Status == "" {
			return models.CallEvent{}, errUnknownEvent
		}
		ev.CallStatus = &models.CallStatusEvent{
			CallID:       p.CallID,
			Status:       models.ParseCallStatus(p.Status),
			CallerNumber: p.CallerNumber,
			Timestamp:    ts,
		}
	case models.EventRecordingReady:
		if p.CallID == "" || p.RecordingURL == "" {
			return models.CallEvent{}, errUnknownEvent
		}
		ev.RecordingReady = &models.RecordingReadyEvent{
			CallID:       p.CallID,
			RecordingURL: p.RecordingURL,
			Timestamp:    ts,
		}
	default:
		return models.CallEvent{}, errUnknownEvent
	}
	return ev, nil
}
