// Package dashboard composes the REST client, chart aggregation and the live
// event stream into one consistent dashboard state.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fono-labs/fono-dash/internal/api"
	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/stream"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("dashboard controller closed")

const (
	// MaxRecentEvents bounds the live events feed.
	MaxRecentEvents = 50
	// DefaultEventNotificationDuration is how long a call notification stays up.
	DefaultEventNotificationDuration = 5 * time.Second
	// DefaultCallBackNotificationDuration is how long call-back results stay up.
	DefaultCallBackNotificationDuration = 3 * time.Second

	maxNotifications = 10
	subscriberBuffer = 50
)

// API is the subset of the REST client the controller uses.
type API interface {
	FetchCalls(ctx context.Context, tenant string, filters api.CallLogFilters) (*api.CallPage, error)
	FetchSummary(ctx context.Context, tenant string, window *models.TimeRange) (*models.DashboardSummary, error)
	Bridge(ctx context.Context, tenant, phone string) (*api.BridgeResponse, error)
	EventsURL(tenant string) string
}

// ChartSource produces hourly charts.
type ChartSource interface {
	Aggregate(ctx context.Context, tenant string, period models.Period) (*models.HourlyChart, error)
}

// Options configures a Controller.
type Options struct {
	API    API
	Charts ChartSource
	// Stream enables live events. The controller owns the client it builds
	// from these options; OnStatus is replaced.
	Stream *stream.Options

	Tenant  string
	Period  models.Period
	PerPage int
	// PollInterval refreshes periodically when positive.
	PollInterval time.Duration

	EventNotificationDuration    time.Duration
	CallBackNotificationDuration time.Duration

	Now       func() time.Time
	Location  *time.Location
	AfterFunc stream.AfterFunc
}

// Controller owns the dashboard filters and orchestrates refetching.
type Controller struct {
	mu sync.Mutex

	api       API
	charts    ChartSource
	stream    *stream.Client
	now       func() time.Time
	loc       *time.Location
	afterFunc stream.AfterFunc
	poll      time.Duration
	eventTTL  time.Duration
	callTTL   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tenant  string
	period  models.Period
	status  string
	page    int
	perPage int

	summary     *models.DashboardSummary
	calls       []models.CallRecord
	total       int
	totalPages  int
	err         error
	chart       *models.HourlyChart
	chartErr    error
	loading     LoadingState
	conn        models.ConnectionState
	recent      []models.CallEvent
	lastUpdated time.Time

	notifications []Notification
	notifSeq      uint64
	timers        map[uint64]stream.Timer

	dataGen  uint64
	chartGen uint64
	connGen  uint64

	// connectMu orders stream connects so the newest tenant wins.
	connectMu sync.Mutex

	subscribers  []chan Update
	unsubscribe  func()
	stopWatch    func() bool
	started      bool
	closed       bool
}

// NewController creates an idle controller. Call Start to begin fetching.
func NewController(opts Options) *Controller {
	c := &Controller{
		api:       opts.API,
		charts:    opts.Charts,
		now:       opts.Now,
		loc:       opts.Location,
		afterFunc: opts.AfterFunc,
		poll:      opts.PollInterval,
		eventTTL:  opts.EventNotificationDuration,
		callTTL:   opts.CallBackNotificationDuration,
		tenant:    opts.Tenant,
		period:    opts.Period,
		status:    api.StatusAll,
		page:      1,
		perPage:   opts.PerPage,
		loading:   LoadingState{Initial: true},
		conn:      models.ConnectionState{Phase: models.PhaseClosed},
		timers:    make(map[uint64]stream.Timer),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) stream.Timer {
			return time.AfterFunc(d, f)
		}
	}
	if c.eventTTL <= 0 {
		c.eventTTL = DefaultEventNotificationDuration
	}
	if c.callTTL <= 0 {
		c.callTTL = DefaultCallBackNotificationDuration
	}
	if c.perPage <= 0 {
		c.perPage = api.DefaultPerPage
	}
	if c.period.Filter == "" {
		c.period = models.PeriodOf(models.FilterToday)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	if opts.Stream != nil {
		so := *opts.Stream
		so.OnStatus = c.handleStatus
		c.stream = stream.New(so)
	}
	return c
}

// Start connects the event stream, runs the first fetch cycle and starts
// the poll loop. ctx bounds the controller's lifetime.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	if c.tenant == "" {
		c.mu.Unlock()
		return api.ErrMissingTenant
	}
	c.started = true
	tenant := c.tenant
	c.connGen++
	connGen := c.connGen
	c.startDataLocked()
	c.startChartLocked()
	c.mu.Unlock()

	if c.stream != nil {
		unsub := c.stream.Subscribe(c.HandleEvent)
		c.mu.Lock()
		c.unsubscribe = unsub
		c.mu.Unlock()
		c.connectStream(connGen, tenant)
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()

	if c.poll > 0 {
		c.wg.Add(1)
		go c.pollLoop()
	}

	logger.Info("dashboard started", "tenant", tenant, "period", c.period.Filter)
	return nil
}

func (c *Controller) pollLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Refresh()
		case <-c.ctx.Done():
			return
		}
	}
}

// SetStatusFilter changes the call log status filter and returns to page 1.
func (c *Controller) SetStatusFilter(status string) {
	if status == "" {
		status = api.StatusAll
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.status = status
	c.page = 1
	c.startDataLocked()
}

// SetPage moves the call log to page (1-based).
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.page = page
	c.startDataLocked()
}

// SetDateFilter switches to a computed period and refetches everything.
func (c *Controller) SetDateFilter(filter models.DateFilter) error {
	if filter == models.FilterCustom {
		return fmt.Errorf("%w: use SetCustomRange for custom periods", models.ErrInvalidRange)
	}
	return c.setPeriod(models.PeriodOf(filter))
}

// SetCustomRange switches to caller-supplied bounds [start, end).
func (c *Controller) SetCustomRange(start, end time.Time) error {
	return c.setPeriod(models.CustomPeriod(start, end))
}

func (c *Controller) setPeriod(p models.Period) error {
	if _, err := p.Range(c.now().In(c.loc)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.period = p
	c.page = 1
	c.startDataLocked()
	c.startChartLocked()
	return nil
}

// SetTenant switches to another restaurant. Data, recent events and the
// stream are reset for the new tenant.
func (c *Controller) SetTenant(tenant string) error {
	if tenant == "" {
		return api.ErrMissingTenant
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if tenant == c.tenant {
		c.mu.Unlock()
		return nil
	}
	c.tenant = tenant
	c.page = 1
	c.summary = nil
	c.calls = nil
	c.total = 0
	c.totalPages = 0
	c.chart = nil
	c.err = nil
	c.chartErr = nil
	c.recent = nil
	started := c.started
	c.connGen++
	connGen := c.connGen
	if started {
		c.startDataLocked()
		c.startChartLocked()
	}
	c.mu.Unlock()

	if started && c.stream != nil {
		c.connectStream(connGen, tenant)
	}
	logger.Info("tenant switched", "tenant", tenant)
	return nil
}

// connectStream points the stream at tenant unless a later switch has
// claimed the connection since gen was taken.
func (c *Controller) connectStream(gen uint64, tenant string) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	current := !c.closed && gen == c.connGen
	c.mu.Unlock()
	if !current {
		logger.Debug("skipping superseded stream connect", "tenant", tenant, "generation", gen)
		return
	}
	c.stream.Connect(c.api.EventsURL(tenant))
}

// Refresh starts a data cycle and a chart run. It returns false without
// doing anything while a data cycle is already in flight.
func (c *Controller) Refresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.loading.Data {
		return false
	}
	c.startDataLocked()
	c.startChartLocked()
	return true
}

// HandleEvent reacts to a live call event: it refetches, records the event
// and, for call status changes, raises a caller notification.
func (c *Controller) HandleEvent(ev models.CallEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.recent = append([]models.CallEvent{ev}, c.recent...)
	if len(c.recent) > MaxRecentEvents {
		c.recent = c.recent[:MaxRecentEvents]
	}

	c.broadcastLocked(CallEventUpdate{Event: ev})

	if ev.Kind == models.EventCallStatus {
		c.addNotificationLocked(NotificationCall,
			"Call from "+models.FormatPhone(ev.CallerNumber())+" ("+ev.CallStatus.Status.Label()+")",
			ev.CallerNumber(), c.eventTTL)
	}

	if c.started {
		c.startDataLocked()
		c.startChartLocked()
	}
}

// CallBack asks the backend to bridge the restaurant to phone. The outcome is
// reported once as a notification and returned.
func (c *Controller) CallBack(ctx context.Context, phone string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	tenant := c.tenant
	c.mu.Unlock()

	resp, err := c.api.Bridge(ctx, tenant, phone)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		logger.Error("call-back failed", "tenant", tenant, "error", err)
		c.addNotificationLocked(NotificationError, "Call-back failed: "+err.Error(), phone, c.callTTL)
		return err
	}
	logger.Info("call-back started", "tenant", tenant, "call_id", resp.CallID)
	c.addNotificationLocked(NotificationSuccess, "Calling "+models.FormatPhone(phone)+"...", phone, c.callTTL)
	return nil
}

// Snapshot returns a copy of the current state. Expired notifications are
// left out.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	window, _ := c.period.Range(now.In(c.loc))

	s := Snapshot{
		Tenant:       c.tenant,
		Period:       c.period,
		Window:       window,
		StatusFilter: c.status,
		Page:         c.page,
		PerPage:      c.perPage,
		Summary:      c.summary,
		Calls:        append([]models.CallRecord(nil), c.calls...),
		Total:        c.total,
		TotalPages:   c.totalPages,
		Err:          c.err,
		Chart:        c.chart,
		ChartErr:     c.chartErr,
		Loading:      c.loading,
		Connection:   c.conn,
		RecentEvents: append([]models.CallEvent(nil), c.recent...),
		LastUpdated:  c.lastUpdated,
	}
	for _, n := range c.notifications {
		if !n.IsExpired(now) {
			s.Notifications = append(s.Notifications, n)
		}
	}
	return s
}

// Subscribe creates a channel for receiving updates. Sends never block; a
// full channel drops updates.
func (c *Controller) Subscribe() chan Update {
	ch := make(chan Update, subscriberBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (c *Controller) Unsubscribe(ch chan Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops the stream, the poll loop, in-flight fetches and notification
// timers, and closes subscriber channels. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	for _, sub := range c.subscribers {
		close(sub)
	}
	c.subscribers = nil
	unsub := c.unsubscribe
	c.unsubscribe = nil
	if c.stopWatch != nil {
		c.stopWatch()
	}
	c.mu.Unlock()

	// The stream calls back into the controller, so it is closed unlocked.
	if unsub != nil {
		unsub()
	}
	var err error
	if c.stream != nil {
		err = c.stream.Close()
	}
	c.wg.Wait()
	return err
}

// handleStatus receives stream state changes.
func (c *Controller) handleStatus(st models.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	reopened := st.Phase == models.PhaseOpen && c.conn.Phase != models.PhaseOpen && c.conn.Attempt > 0
	c.conn = st
	c.broadcastLocked(ConnectionUpdate{State: st})

	// Events during an outage are lost; re-pull after a reconnect.
	if reopened && c.started && !c.loading.Data {
		c.startDataLocked()
		c.startChartLocked()
	}
}

// startDataLocked begins a summary + call log cycle, superseding any cycle
// in flight. Caller holds c.mu.
func (c *Controller) startDataLocked() {
	if !c.started || c.closed {
		return
	}
	c.dataGen++
	gen := c.dataGen
	tenant := c.tenant
	filters := api.CallLogFilters{Status: c.status, Page: c.page, PerPage: c.perPage}
	window, werr := c.period.Range(c.now().In(c.loc))
	c.loading.Data = true
	c.broadcastLocked(LoadingUpdate{Loading: c.loading})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if werr != nil {
			c.finishData(gen, nil, nil, werr)
			return
		}

		var (
			summary *models.DashboardSummary
			page    *api.CallPage
		)
		g, ctx := errgroup.WithContext(c.ctx)
		g.Go(func() error {
			s, err := c.api.FetchSummary(ctx, tenant, &window)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			summary = s
			return nil
		})
		g.Go(func() error {
			p, err := c.api.FetchCalls(ctx, tenant, filters)
			if err != nil {
				return fmt.Errorf("call log: %w", err)
			}
			page = p
			return nil
		})
		err := g.Wait()
		c.finishData(gen, summary, page, err)
	}()
}

func (c *Controller) finishData(gen uint64, summary *models.DashboardSummary, page *api.CallPage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.dataGen {
		logger.Debug("discarding stale data cycle", "generation", gen)
		return
	}

	c.loading.Data = false
	c.loading.Initial = false
	if err != nil {
		logger.Error("dashboard fetch failed", "tenant", c.tenant, "error", err)
		c.err = err
		c.broadcastLocked(DataLoadedUpdate{Err: err})
		return
	}

	c.err = nil
	c.summary = summary
	c.calls = page.Records
	c.total = page.Total
	c.totalPages = page.TotalPages
	c.lastUpdated = c.now()
	c.broadcastLocked(DataLoadedUpdate{})
}

// startChartLocked begins a chart run, superseding any run in flight.
// Caller holds c.mu.
func (c *Controller) startChartLocked() {
	if !c.started || c.closed || c.charts == nil {
		return
	}
	c.chartGen++
	gen := c.chartGen
	tenant := c.tenant
	period := c.period
	c.loading.Chart = true
	c.broadcastLocked(LoadingUpdate{Loading: c.loading})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		chart, err := c.charts.Aggregate(c.ctx, tenant, period)
		c.finishChart(gen, chart, err)
	}()
}

func (c *Controller) finishChart(gen uint64, chart *models.HourlyChart, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.chartGen {
		return
	}

	c.loading.Chart = false
	if err != nil {
		logger.Error("chart aggregation failed", "tenant", c.tenant, "error", err)
		c.chartErr = err
	} else {
		c.chartErr = nil
		c.chart = chart
	}
	c.broadcastLocked(ChartLoadedUpdate{Err: err})
}

// addNotificationLocked adds a notification that removes itself after d.
func (c *Controller) addNotificationLocked(t NotificationType, msg, caller string, d time.Duration) {
	c.notifSeq++
	n := Notification{
		ID:           c.notifSeq,
		Type:         t,
		Message:      msg,
		CallerNumber: caller,
		CreatedAt:    c.now(),
		Duration:     d,
	}
	c.notifications = append(c.notifications, n)

	// Keep only the newest notifications
	if len(c.notifications) > maxNotifications {
		for _, old := range c.notifications[:len(c.notifications)-maxNotifications] {
			if timer, ok := c.timers[old.ID]; ok {
				timer.Stop()
				delete(c.timers, old.ID)
			}
		}
		c.notifications = c.notifications[len(c.notifications)-maxNotifications:]
	}

	id := n.ID
	c.timers[id] = c.afterFunc(d, func() { c.expireNotification(id) })
	c.broadcastLocked(NotificationsUpdate{})
}

func (c *Controller) expireNotification(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, id)
	for i, n := range c.notifications {
		if n.ID == id {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			if !c.closed {
				c.broadcastLocked(NotificationsUpdate{})
			}
			return
		}
	}
}

// broadcastLocked sends an update to all subscribers without blocking.
func (c *Controller) broadcastLocked(u Update) {
	for _, sub := range c.subscribers {
		select {
		case sub <- u:
		default:
			// Subscriber channel full, skip
		}
	}
}
