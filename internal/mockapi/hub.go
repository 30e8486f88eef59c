package mockapi

import (
	"sync"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  any
}

const frameBuffer = 32

// Hub fans call events out to the open event streams of each tenant.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Frame]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Frame]struct{})}
}

// Subscribe opens a frame channel for tenant. The returned func releases it.
func (h *Hub) Subscribe(tenant string) (<-chan Frame, func()) {
	ch := make(chan Frame, frameBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[tenant] == nil {
		h.subs[tenant] = make(map[chan Frame]struct{})
	}
	h.subs[tenant][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[tenant][ch]; ok {
				delete(h.subs[tenant], ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of open streams for tenant.
func (h *Hub) Subscribers(tenant string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tenant])
}

// Publish sends f to every stream of tenant without blocking. Slow
// streams miss frames.
func (h *Hub) Publish(tenant string, f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[tenant] {
		select {
		case ch <- f:
		default:
			// Stream full, skip
		}
	}
}

// PublishStatus announces a call status change.
func (h *Hub) PublishStatus(call *models.CallRecord, at time.Time) {
	h.Publish(call.TenantID, Frame{
		Event: string(models.EventCallStatus),
		Data: statusPayload{
			CallID:       call.ID,
			Status:       string(call.Status),
			CallerNumber: call.CallerNumber,
			Timestamp:    at.UTC().Format(time.RFC3339),
		},
	})
}

// PublishRecording announces a recording that became available.
func (h *Hub) PublishRecording(tenant, callID, url string, at time.Time) {
	h.Publish(tenant, Frame{
		Event: string(models.EventRecordingReady),
		Data: recordingPayload{
			CallID:       callID,
			RecordingURL: url,
			Timestamp:    at.UTC().Format(time.RFC3339),
		},
	})
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for tenant, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, tenant)
	}
}

type statusPayload struct {
	CallID       string `json:"call_id"`
	Status       string `json:"status"`
	CallerNumber string `json:"caller_number,omitempty"`
	Timestamp    string `json:"timestamp"`
}

type recordingPayload struct {
	CallID       string `json:"call_id"`
	RecordingURL string `json:"recording_url"`
	Timestamp    string `json:"timestamp"`
}
