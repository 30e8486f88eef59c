// Package stream maintains the server-push connection that delivers live
// call events, reconnecting with exponential backoff when it drops.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
)

// Listener receives accepted call events.
type Listener func(models.CallEvent)

// Dialer opens the event stream at endpoint. The returned body is read
// until it fails or ends.
type Dialer func(ctx context.Context, endpoint string) (io.ReadCloser, error)

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via adapter.
type AfterFunc func(d time.Duration, f func()) Timer

// Options configures a Client. Zero values select HTTP dialing, real timers
// and the default reconnect policy.
type Options struct {
	Dial       Dialer
	HTTPClient *http.Client
	AfterFunc  AfterFunc
	Policy     backoff.BackOff
	Now        func() time.Time
	// OnStatus is called after every connection state change.
	OnStatus func(models.ConnectionState)
}

type subscriber struct {
	fn      Listener
	removed atomic.Bool
}

type session struct {
	id       uint64
	endpoint string
	ctx      context.Context
	cancel   context.CancelFunc
	body     io.ReadCloser
	timer    Timer
}

// Client owns at most one stream connection at a time.
type Client struct {
	mu          sync.Mutex
	dispatchMu  sync.Mutex
	opts        Options
	state       models.ConnectionState
	last        *models.CallEvent
	subscribers []*subscriber
	sess        *session
	nextID      uint64
	closed      bool
}

// New creates an idle client.
func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Dial == nil {
		opts.Dial = HTTPDialer(opts.HTTPClient)
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}
	if opts.Policy == nil {
		opts.Policy = NewPolicy()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		opts:  opts,
		state: models.ConnectionState{Phase: models.PhaseClosed, Since: opts.Now()},
	}
}

// Handle identifies one Connect call.
type Handle struct {
	c  *Client
	id uint64
}

// Close tears down the session if it is still the active one.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.c.teardown(h.id)
}

// Connect opens a stream to endpoint, replacing any active session.
// Reconnects after failures are scheduled automatically.
func (c *Client) Connect(endpoint string) *Handle {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &Handle{c: c}
	}
	c.stopSessionLocked()

	c.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{id: c.nextID, endpoint: endpoint, ctx: ctx, cancel: cancel}
	c.sess = s
	c.opts.Policy.Reset()
	c.setStateLocked(models.ConnectionState{Phase: models.PhaseConnecting})
	state := c.state
	c.mu.Unlock()

	c.publish(s.id, state)
	go c.run(s)
	return &Handle{c: c, id: s.id}
}

// Subscribe registers fn for accepted events. Listeners run in subscription
// order on the reader goroutine and must not call Close or Connect. The returned func
// removes the listener; removing the last one tears the session down.
func (c *Client) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscriber{fn: fn}
	c.mu.Lock()
	c.subscribers = append(c.subscribers, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.removed.Store(true)
			c.mu.Lock()
			for i, s := range c.subscribers {
				if s == sub {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					break
				}
			}
			empty := len(c.subscribers) == 0
			var id uint64
			if c.sess != nil {
				id = c.sess.id
			}
			c.mu.Unlock()
			if empty && id != 0 {
				c.teardownNoWait(id)
			}
		})
	}
}

// Status returns the current connection state.
func (c *Client) Status() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastEvent returns the most recent accepted event.
func (c *Client) LastEvent() (models.CallEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return models.CallEvent{}, false
	}
	return *c.last, true
}

// Close tears down the active session and drops all listeners. No listener
// or status callback runs after Close returns. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stopped := c.stopSessionLocked()
	for _, s := range c.subscribers {
		s.removed.Store(true)
	}
	c.subscribers = nil
	c.mu.Unlock()

	c.settle(stopped)
	return nil
}

func (c *Client) teardown(id uint64) {
	c.settle(c.teardownNoWait(id))
}

func (c *Client) teardownNoWait(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active(id) {
		return false
	}
	return c.stopSessionLocked()
}

// settle waits out any dispatch already past its session check, then
// reports the closed state.
func (c *Client) settle(stopped bool) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if stopped && c.opts.OnStatus != nil {
		c.opts.OnStatus(c.Status())
	}
}

// stopSessionLocked closes the body, cancels the pending reconnect and marks
// the client closed. Caller holds c.mu.
func (c *Client) stopSessionLocked() bool {
	s := c.sess
	if s == nil {
		return false
	}
	c.sess = nil
	s.cancel()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	c.setStateLocked(models.ConnectionState{Phase: models.PhaseClosed})
	return true
}

func (c *Client) setStateLocked(st models.ConnectionState) {
	st.Since = c.opts.Now()
	c.state = st
}

func (c *Client) active(id uint64) bool {
	return c.sess != nil && c.sess.id == id
}

func (c *Client) run(s *session) {
	body, err := c.opts.Dial(s.ctx, s.endpoint)
	if err != nil {
		c.fail(s, err)
		return
	}

	c.mu.Lock()
	if !c.active(s.id) {
		c.mu.Unlock()
		_ = body.Close()
		return
	}
	s.body = body
	c.opts.Policy.Reset()
	c.setStateLocked(models.ConnectionState{Phase: models.PhaseOpen})
	state := c.state
	c.mu.Unlock()

	logger.Info("event stream open", "endpoint", s.endpoint)
	c.publish(s.id, state)

	err = readMessages(body, func(msg message) {
		c.handleMessage(s.id, msg)
	})
	c.fail(s, err)
}

func (c *Client) handleMessage(id uint64, msg message) {
	ev, err := decode(msg, c.opts.Now())
	if err != nil {
		logger.Debug("dropping stream message", "event", msg.Event, "error", err)
		return
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if !c.active(id) {
		c.mu.Unlock()
		return
	}
	c.last = &ev
	subs := make([]*subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		if !c.stillActive(id) {
			return
		}
		sub.fn(ev)
	}
}

func (c *Client) stillActive(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active(id)
}

// fail closes the connection and schedules the next attempt.
func (c *Client) fail(s *session, cause error) {
	c.mu.Lock()
	if !c.active(s.id) {
		c.mu.Unlock()
		return
	}
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	delay := c.opts.Policy.NextBackOff()
	if delay == backoff.Stop {
		delay = MaxRetryDelay
	}
	c.setStateLocked(models.ConnectionState{
		Phase:     models.PhaseRetrying,
		Attempt:   c.state.Attempt + 1,
		NextRetry: delay,
	})
	state := c.state
	c.mu.Unlock()

	if errors.Is(cause, io.EOF) {
		logger.Info("event stream ended", "retry_in", delay)
	} else {
		logger.Warn("event stream failed", "error", cause, "retry_in", delay)
	}
	c.publish(s.id, state)

	c.mu.Lock()
	if c.active(s.id) {
		s.timer = c.opts.AfterFunc(delay, func() { c.reconnect(s) })
	}
	c.mu.Unlock()
}

func (c *Client) reconnect(s *session) {
	c.mu.Lock()
	if !c.active(s.id) {
		c.mu.Unlock()
		return
	}
	s.timer = nil
	attempt := c.state.Attempt
	c.setStateLocked(models.ConnectionState{Phase: models.PhaseConnecting, Attempt: attempt})
	state := c.state
	c.mu.Unlock()

	c.publish(s.id, state)
	c.run(s)
}

func (c *Client) publish(id uint64, state models.ConnectionState) {
	if c.opts.OnStatus == nil {
		return
	}
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if !c.stillActive(id) {
		return
	}
	c.opts.OnStatus(state)
}

// HTTPDialer opens endpoint with a GET and checks for an event-stream body.
func HTTPDialer(hc *http.Client) Dialer {
	return func(ctx context.Context, endpoint string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create stream request: %w", err)
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("stream request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("stream request failed (status %d)", resp.StatusCode)
		}
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mediaType != "text/event-stream" {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unexpected stream content type %q", resp.Header.Get("Content-Type"))
		}
		return resp.Body, nil
	}
}
