// Package services wires the dashboard core to the TUI.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/fono-labs/fono-dash/internal/analytics"
	"github.com/fono-labs/fono-dash/internal/api"
	"github.com/fono-labs/fono-dash/internal/config"
	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/export"
	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/stream"
	"github.com/fono-labs/fono-dash/internal/tenants"
)

type (
	// DashboardEvent wraps a controller update.
	DashboardEvent struct {
		Update dashboard.Update
	}

	// TenantsChangedEvent is emitted when the restaurant list or the active
	// restaurant changes.
	TenantsChangedEvent struct {
		Tenants []models.Tenant
		Active  models.Tenant
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (DashboardEvent) isServiceEvent()      {}
func (TenantsChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}

// Notifier shows a desktop alert.
type Notifier func(title, message string) error

func desktopNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Deps are the collaborators a Manager composes. NewManager builds them
// from config; tests pass their own.
type Deps struct {
	Tenants    *tenants.Service
	API        *api.Client
	Stream     *stream.Options
	Notify     Notifier
	Now        func() time.Time
	Location   *time.Location
	Controller func(dashboard.Options) *dashboard.Controller
}

// Manager orchestrates the dashboard controller and the tenant directory.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	tenants     *tenants.Service
	client      *api.Client
	controller  *dashboard.Controller
	updates     chan dashboard.Update
	notify      Notifier
	now         func() time.Time
	loc         *time.Location
	stopChan    chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
	subscribers []chan<- ServiceEvent
}

// NewManager creates a manager from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	var dir *tenants.Service
	var err error
	if cfg.TenantsPath != "" {
		dir, err = tenants.New(cfg.TenantsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenants: %w", err)
		}
	} else {
		dir = tenants.Static(models.Tenant{ID: cfg.TenantID})
	}

	return NewManagerWith(cfg, Deps{
		Tenants: dir,
		API:     api.New(cfg.APIURL),
		Stream:  &stream.Options{},
		Notify:  desktopNotify,
	}), nil
}

// NewManagerWith creates a manager over explicit dependencies.
func NewManagerWith(cfg *config.Config, deps Deps) *Manager {
	m := &Manager{
		cfg:      cfg,
		tenants:  deps.Tenants,
		client:   deps.API,
		notify:   deps.Notify,
		now:      deps.Now,
		loc:      deps.Location,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loc == nil {
		m.loc = time.Local
	}

	tenant := cfg.TenantID
	if m.tenants != nil && m.tenants.Count() > 0 {
		tenant = m.tenants.Active().ID
	}

	opts := dashboard.Options{
		API:                       m.client,
		Charts:                    analytics.NewAggregator(m.client, analytics.WithClock(m.now), analytics.WithLocation(m.loc)),
		Stream:                    deps.Stream,
		Tenant:                    tenant,
		PerPage:                   cfg.CallsPerPage,
		PollInterval:              cfg.PollInterval,
		EventNotificationDuration: cfg.NotificationDuration,
		Now:                       m.now,
		Location:                  m.loc,
	}
	if deps.Controller != nil {
		m.controller = deps.Controller(opts)
	} else {
		m.controller = dashboard.NewController(opts)
	}
	m.updates = m.controller.Subscribe()

	go m.routeEvents()

	return m
}

// Start begins fetching and connects the event stream.
func (m *Manager) Start(ctx context.Context) error {
	return m.controller.Start(ctx)
}

// routeEvents routes events from the controller and the tenant directory
// to subscribers.
func (m *Manager) routeEvents() {
	defer close(m.done)

	var tenantEvents <-chan tenants.Event
	if m.tenants != nil {
		tenantEvents = m.tenants.Events()
	}

	for {
		select {
		case u, ok := <-m.updates:
			if !ok {
				return
			}
			m.handleUpdate(u)

		case event, ok := <-tenantEvents:
			if !ok {
				tenantEvents = nil
				continue
			}
			m.handleTenantEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleUpdate(u dashboard.Update) {
	if ev, ok := u.(dashboard.CallEventUpdate); ok {
		m.checkNotifications(ev.Event)
	}
	m.broadcast(DashboardEvent{Update: u})
}

func (m *Manager) handleTenantEvent(event tenants.Event) {
	switch event.Type {
	case tenants.EventLoaded, tenants.EventChanged, tenants.EventActiveChanged:
		active := m.tenants.Active()
		if active.ID != "" {
			if err := m.controller.SetTenant(active.ID); err != nil {
				logger.Warn("failed to switch tenant", "tenant", active.ID, "error", err)
			}
		}
		m.broadcast(TenantsChangedEvent{
			Tenants: m.tenants.Tenants(),
			Active:  active,
		})

	case tenants.EventError:
		m.broadcast(ErrorEvent{
			Service: "tenants",
			Error:   event.Error,
		})
	}
}

// checkNotifications raises a desktop alert for live call status changes.
func (m *Manager) checkNotifications(ev models.CallEvent) {
	if !m.cfg.DesktopNotify || m.notify == nil || ev.CallStatus == nil {
		return
	}

	var title string
	switch ev.CallStatus.Status {
	case models.StatusInProgress:
		title = "Incoming call"
	case models.StatusMissed, models.StatusNoAnswer:
		title = "Missed call"
	case models.StatusRecovered:
		title = "Call recovered"
	default:
		return
	}

	body := models.FormatPhone(ev.CallStatus.CallerNumber)
	if name := m.ActiveTenant().DisplayName(); name != "" {
		body = fmt.Sprintf("%s at %s", body, name)
	}
	if err := m.notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that waits for the first one.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Snapshot returns the controller state.
func (m *Manager) Snapshot() dashboard.Snapshot {
	return m.controller.Snapshot()
}

// Tenants returns the configured restaurants.
func (m *Manager) Tenants() []models.Tenant {
	if m.tenants == nil {
		return nil
	}
	return m.tenants.Tenants()
}

// ActiveTenant returns the restaurant on screen.
func (m *Manager) ActiveTenant() models.Tenant {
	if m.tenants == nil {
		return models.Tenant{ID: m.cfg.TenantID}
	}
	return m.tenants.Active()
}

// SwitchTenant activates the next restaurant in the directory.
func (m *Manager) SwitchTenant() (models.Tenant, error) {
	if m.tenants == nil || m.tenants.Count() < 2 {
		return m.ActiveTenant(), nil
	}
	next := m.tenants.Next()
	if err := m.tenants.SetActive(next.ID); err != nil {
		return models.Tenant{}, err
	}
	if err := m.controller.SetTenant(next.ID); err != nil {
		return models.Tenant{}, err
	}
	return next, nil
}

// Refresh refetches everything. It returns false when a fetch is already
// in flight.
func (m *Manager) Refresh() bool {
	return m.controller.Refresh()
}

// CycleDateFilter moves to the next preset period.
func (m *Manager) CycleDateFilter() (models.DateFilter, error) {
	next := m.controller.Snapshot().Period.Filter.Next()
	if err := m.controller.SetDateFilter(next); err != nil {
		return "", err
	}
	return next, nil
}

// SetStatusFilter changes the call log status filter.
func (m *Manager) SetStatusFilter(status string) {
	m.controller.SetStatusFilter(status)
}

// SetPage moves the call log to page.
func (m *Manager) SetPage(page int) {
	m.controller.SetPage(page)
}

// CallBack bridges the restaurant to phone.
func (m *Manager) CallBack(ctx context.Context, phone string) error {
	return m.controller.CallBack(ctx, phone)
}

// Export writes the current chart and call page to an xlsx workbook under
// the configured export directory and returns its path.
func (m *Manager) Export() (string, error) {
	snap := m.controller.Snapshot()
	if snap.Chart == nil && snap.Summary == nil {
		return "", fmt.Errorf("nothing to export yet")
	}
	path, err := export.Save(m.cfg.ExportDir, export.Report{
		Tenant:      m.ActiveTenant(),
		Period:      snap.Period,
		Window:      snap.Window,
		Summary:     snap.Summary,
		Chart:       snap.Chart,
		Calls:       snap.Calls,
		GeneratedAt: m.now(),
		Location:    m.loc,
	})
	if err != nil {
		return "", err
	}
	logger.Info("exported dashboard", "path", path)
	return path, nil
}

// Config returns the loaded configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Controller returns the dashboard controller.
func (m *Manager) Controller() *dashboard.Controller {
	return m.controller
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error
	m.stopOnce.Do(func() {
		close(m.stopChan)
		<-m.done

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.controller.Close(); err != nil {
			errs = append(errs, err)
		}
		if m.tenants != nil {
			if err := m.tenants.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
