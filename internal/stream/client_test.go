package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

type fakeTimer struct {
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

// scheduler records reconnects instead of sleeping. Tests fire them by hand.
type scheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	fns     []func()
	timers  []*fakeTimer
	pending chan int
}

func newScheduler() *scheduler {
	return &scheduler{pending: make(chan int, 64)}
}

func (s *scheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{}
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, f)
	s.timers = append(s.timers, t)
	idx := len(s.fns) - 1
	s.mu.Unlock()
	s.pending <- idx
	return t
}

func (s *scheduler) wait(t *testing.T) int {
	t.Helper()
	select {
	case idx := <-s.pending:
		return idx
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconnect to be scheduled")
		return -1
	}
}

func (s *scheduler) fire(idx int) {
	s.mu.Lock()
	f := s.fns[idx]
	s.mu.Unlock()
	go f()
}

func (s *scheduler) delay(idx int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delays[idx]
}

func (s *scheduler) timer(idx int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[idx]
}

// pipeDialer hands out one pipe per successful dial; scripted failures come first.
type pipeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	writers  chan *io.PipeWriter
}

func newPipeDialer(failures int) *pipeDialer {
	return &pipeDialer{failures: failures, writers: make(chan *io.PipeWriter, 8)}
}

func (d *pipeDialer) Dial(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	d.mu.Lock()
	d.dials++
	fail := d.failures > 0
	if fail {
		d.failures--
	}
	d.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	r, w := io.Pipe()
	d.writers <- w
	return r, nil
}

func (d *pipeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *pipeDialer) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-d.writers:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func waitPhase(t *testing.T, c *Client, phase models.ConnectionPhase) models.ConnectionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := c.Status(); st.Phase == phase {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("phase = %v, want %v", c.Status().Phase, phase)
	return models.ConnectionState{}
}

func TestClient_BackoffSequence(t *testing.T) {
	sched := newScheduler()
	dialer := newPipeDialer(100)
	c := New(Options{Dial: dialer.Dial, AfterFunc: sched.AfterFunc})
	defer c.Close()

	c.Connect("http://example/events")

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		idx := sched.wait(t)
		if got := sched.delay(idx); got != w {
			t.Fatalf("retry %d delay = %v, want %v", i, got, w)
		}
		st := c.Status()
		if st.Phase != models.PhaseRetrying || st.Attempt != i+1 || st.NextRetry != w {
			t.Fatalf("retry %d state = %+v", i, st)
		}
		sched.fire(idx)
	}
}

func TestClient_MalformedMessageKeepsOpen(t *testing.T) {
	sched := newScheduler()
	dialer := newPipeDialer(0)
	c := New(Options{Dial: dialer.Dial, AfterFunc: sched.AfterFunc})
	defer c.Close()

	events := make(chan models.CallEvent, 4)
	c.Subscribe(func(ev models.CallEvent) { events <- ev })
	c.Connect("http://example/events")

	w := dialer.next(t)
	waitPhase(t, c, models.PhaseOpen)

	fmt.Fprint(w, "data: not-json\n\n")
	fmt.Fprint(w, "event: call_status\ndata: {\"call_id\":\"c1\"}\n\n")
	fmt.Fprint(w, "event: call_status\ndata: {\"call_id\":\"c2\",\"status\":\"missed\",\"caller_number\":\"+15550100\"}\n\n")

	select {
	case ev := <-events:
		if ev.CallID() != "c2" {
			t.Fatalf("first delivered event = %q, want c2", ev.CallID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	if st := c.Status(); st.Phase != models.PhaseOpen {
		t.Errorf("phase = %v after malformed payloads, want open", st.Phase)
	}
	last, ok := c.LastEvent()
	if !ok || last.CallID() != "c2" {
		t.Errorf("LastEvent() = %+v, %v", last, ok)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected extra event %+v", ev)
	default:
	}
}

func TestClient_SubscribersInOrder(t *testing.T) {
	dialer := newPipeDialer(0)
	c := New(Options{Dial: dialer.Dial, AfterFunc: newScheduler().AfterFunc})
	defer c.Close()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 1)
	record := func(name string) Listener {
		return func(models.CallEvent) {
			mu.Lock()
			order = append(order, name)
			n := len(order)
			mu.Unlock()
			if n == 3 {
				done <- struct{}{}
			}
		}
	}
	c.Subscribe(record("a"))
	unsubB := c.Subscribe(record("b"))
	c.Subscribe(record("c"))
	c.Subscribe(record("d"))
	unsubB()
	unsubB()

	c.Connect("http://example/events")
	w := dialer.next(t)
	fmt.Fprint(w, "event: recording_ready\ndata: {\"call_id\":\"c1\",\"recording_url\":\"u\"}\n\n")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listeners not called")
	}
	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(order) != "[a c d]" {
		t.Errorf("order = %v, want [a c d]", order)
	}
}

func TestClient_OpenResetsAttempt(t *testing.T) {
	sched := newScheduler()
	dialer := newPipeDialer(2)
	var states []models.ConnectionState
	var mu sync.Mutex
	c := New(Options{
		Dial:      dialer.Dial,
		AfterFunc: sched.AfterFunc,
		OnStatus: func(st models.ConnectionState) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		},
	})
	defer c.Close()

	c.Connect("http://example/events")
	sched.fire(sched.wait(t))
	idx := sched.wait(t)
	if d := sched.delay(idx); d != 2*time.Second {
		t.Fatalf("second delay = %v, want 2s", d)
	}
	sched.fire(idx)

	w := dialer.next(t)
	st := waitPhase(t, c, models.PhaseOpen)
	if st.Attempt != 0 {
		t.Errorf("Attempt = %d after open, want 0", st.Attempt)
	}

	// Drop the connection: the schedule restarts at 1s.
	w.Close()
	idx = sched.wait(t)
	if d := sched.delay(idx); d != time.Second {
		t.Errorf("delay after reopen = %v, want 1s", d)
	}
	if st := c.Status(); st.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", st.Attempt)
	}

	mu.Lock()
	defer mu.Unlock()
	var phases []string
	for _, s := range states {
		phases = append(phases, s.Phase.String())
		if s.Phase == models.PhaseRetrying && s.NextRetry != wantDelay(s.Attempt-1) {
			t.Errorf("attempt %d: NextRetry = %v, want %v", s.Attempt, s.NextRetry, wantDelay(s.Attempt-1))
		}
	}
	want := "[connecting retrying connecting retrying connecting open retrying]"
	if fmt.Sprint(phases) != want {
		t.Errorf("phases = %v, want %s", phases, want)
	}
}

func TestClient_CloseCancelsReconnect(t *testing.T) {
	sched := newScheduler()
	dialer := newPipeDialer(1)
	var closedReports atomic.Int32
	c := New(Options{
		Dial:      dialer.Dial,
		AfterFunc: sched.AfterFunc,
		OnStatus: func(st models.ConnectionState) {
			if st.Phase == models.PhaseClosed {
				closedReports.Add(1)
			}
		},
	})

	events := make(chan models.CallEvent, 1)
	c.Subscribe(func(ev models.CallEvent) { events <- ev })
	c.Connect("http://example/events")
	idx := sched.wait(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if !sched.timer(idx).stopped.Load() {
		t.Error("pending reconnect timer was not stopped")
	}
	if st := c.Status(); st.Phase != models.PhaseClosed {
		t.Errorf("phase = %v, want closed", st.Phase)
	}
	if n := closedReports.Load(); n != 1 {
		t.Errorf("closed reported %d times, want 1", n)
	}

	// A timer that fires anyway must not reconnect.
	before := dialer.dialCount()
	sched.fire(idx)
	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != before {
		t.Error("reconnect ran after Close")
	}

	// Connect after Close is a no-op.
	c.Connect("http://example/events")
	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != before {
		t.Error("Connect dialed after Close")
	}
}

func TestClient_NoEventsAfterHandleClose(t *testing.T) {
	dialer := newPipeDialer(0)
	c := New(Options{Dial: dialer.Dial, AfterFunc: newScheduler().AfterFunc})
	defer c.Close()

	var delivered atomic.Int32
	c.Subscribe(func(models.CallEvent) { delivered.Add(1) })
	h := c.Connect("http://example/events")
	w := dialer.next(t)
	waitPhase(t, c, models.PhaseOpen)

	h.Close()
	h.Close()
	if st := c.Status(); st.Phase != models.PhaseClosed {
		t.Errorf("phase = %v, want closed", st.Phase)
	}

	// The reader is gone; writes fail instead of dispatching.
	_, err := fmt.Fprint(w, "event: call_status\ndata: {\"call_id\":\"c1\",\"status\":\"missed\"}\n\n")
	if err == nil {
		t.Error("write should fail once the body is closed")
	}
	if delivered.Load() != 0 {
		t.Error("listener called after teardown")
	}
}

func TestClient_ConnectReplacesSession(t *testing.T) {
	dialer := newPipeDialer(0)
	c := New(Options{Dial: dialer.Dial, AfterFunc: newScheduler().AfterFunc})
	defer c.Close()

	events := make(chan models.CallEvent, 4)
	c.Subscribe(func(ev models.CallEvent) { events <- ev })

	old := c.Connect("http://example/events?tenant_id=a")
	w1 := dialer.next(t)
	c.Connect("http://example/events?tenant_id=b")
	w2 := dialer.next(t)
	waitPhase(t, c, models.PhaseOpen)

	if _, err := fmt.Fprint(w1, "event: call_status\ndata: {\"call_id\":\"old\",\"status\":\"missed\"}\n\n"); err == nil {
		t.Error("old session body should be closed")
	}
	fmt.Fprint(w2, "event: call_status\ndata: {\"call_id\":\"new\",\"status\":\"missed\"}\n\n")

	select {
	case ev := <-events:
		if ev.CallID() != "new" {
			t.Errorf("event from %q, want new session", ev.CallID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event from new session")
	}

	// Closing the stale handle leaves the new session alone.
	old.Close()
	if st := c.Status(); st.Phase != models.PhaseOpen {
		t.Errorf("phase = %v, stale handle closed the active session", st.Phase)
	}
}

func TestClient_UnsubscribeLastTearsDown(t *testing.T) {
	dialer := newPipeDialer(0)
	c := New(Options{Dial: dialer.Dial, AfterFunc: newScheduler().AfterFunc})
	defer c.Close()

	unsub := c.Subscribe(func(models.CallEvent) {})
	c.Connect("http://example/events")
	dialer.next(t)
	waitPhase(t, c, models.PhaseOpen)

	unsub()
	if st := c.Status(); st.Phase != models.PhaseClosed {
		t.Errorf("phase = %v, want closed after last unsubscribe", st.Phase)
	}
}

func TestHTTPDialer(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "EventStream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept") != "text/event-stream" {
					http.Error(w, "bad accept", http.StatusNotAcceptable)
					return
				}
				w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
				fmt.Fprint(w, "data: {}\n\n")
			},
		},
		{
			name: "ServerError",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusInternalServerError)
			},
			wantErr: true,
		},
		{
			name: "WrongContentType",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, "{}")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			body, err := HTTPDialer(srv.Client())(context.Background(), srv.URL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("dial error = %v, wantErr %v", err, tt.wantErr)
			}
			if body != nil {
				body.Close()
			}
		})
	}
}

func TestClient_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tenant_id") != "rest-1" {
			http.Error(w, "unknown tenant", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprint(w, "event:call_status\ndata:{\"call_id\":\"c1\",\"status\":\"in_progress\",\"caller_number\":\"2095550142\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(Options{HTTPClient: srv.Client(), AfterFunc: newScheduler().AfterFunc})
	defer c.Close()
	events := make(chan models.CallEvent, 1)
	c.Subscribe(func(ev models.CallEvent) { events <- ev })
	c.Connect(srv.URL + "/api/v1/events/calls?tenant_id=rest-1")

	select {
	case ev := <-events:
		if ev.Kind != models.EventCallStatus || ev.CallStatus.Status != models.StatusInProgress {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
}
