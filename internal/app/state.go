// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
	// NotificationCall announces a live call.
	NotificationCall
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	case NotificationCall:
		return "call"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired at now.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.Duration <= 0 {
		return false
	}
	return !now.Before(n.CreatedAt.Add(n.Duration))
}

// State is the view-side copy of the dashboard shared by all tabs.
type State struct {
	mu sync.RWMutex

	snapshot      dashboard.Snapshot
	hasSnapshot   bool
	tenants       []models.Tenant
	active        models.Tenant
	selectedCall  int
	lastExport    string
	notifications []Notification
	seq           int
	now           func() time.Time
}

// NewState creates an empty state that reports initial loading.
func NewState() *State {
	return &State{
		snapshot: dashboard.Snapshot{Loading: dashboard.LoadingState{Initial: true}},
		now:      time.Now,
	}
}

// SetClock replaces the clock used for notification expiry.
func (s *State) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetSnapshot stores the latest controller snapshot.
func (s *State) SetSnapshot(snap dashboard.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snap
	s.hasSnapshot = true
	if n := len(snap.Calls); s.selectedCall >= n {
		s.selectedCall = max(n-1, 0)
	}
}

// Snapshot returns the latest controller snapshot.
func (s *State) Snapshot() dashboard.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// IsInitialLoading returns true until the first data cycle settles.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.hasSnapshot || s.snapshot.Loading.Initial
}

// AnyLoading returns true if any fetch is in flight.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.hasSnapshot || s.snapshot.Loading.Any()
}

// SetTenants updates the restaurant list and the active restaurant.
func (s *State) SetTenants(list []models.Tenant, active models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = append([]models.Tenant(nil), list...)
	s.active = active
}

// GetTenants returns a copy of the restaurant list.
func (s *State) GetTenants() []models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tenant(nil), s.tenants...)
}

// GetActiveTenant returns the restaurant on screen.
func (s *State) GetActiveTenant() models.Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active.ID == "" && s.snapshot.Tenant != "" {
		return models.Tenant{ID: s.snapshot.Tenant}
	}
	return s.active
}

// GetSelectedCallIndex returns the selected row of the call log.
func (s *State) GetSelectedCallIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCall
}

// SetSelectedCallIndex updates the selected row, clamped to the page.
func (s *State) SetSelectedCallIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.snapshot.Calls)
	s.selectedCall = min(max(idx, 0), max(n-1, 0))
}

// SelectedCall returns the selected call on the current page.
func (s *State) SelectedCall() (models.CallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedCall < 0 || s.selectedCall >= len(s.snapshot.Calls) {
		return models.CallRecord{}, false
	}
	return s.snapshot.Calls[s.selectedCall], true
}

// SetLastExport records the most recent export path.
func (s *State) SetLastExport(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExport = path
}

// GetLastExport returns the most recent export path.
func (s *State) GetLastExport() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastExport
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := s.now()
	id := now.Format("20060102150405") + "-" + strconv.Itoa(s.seq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: now,
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired(now) {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns the active notifications: the app's own toasts
// followed by those the dashboard controller raised.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := make([]Notification, 0, len(s.notifications)+len(s.snapshot.Notifications))
	for _, n := range s.notifications {
		if !n.IsExpired(now) {
			active = append(active, n)
		}
	}
	for _, n := range s.snapshot.Notifications {
		if n.IsExpired(now) {
			continue
		}
		active = append(active, Notification{
			ID:        "dash-" + strconv.FormatUint(n.ID, 10),
			Type:      fromDashboard(n.Type),
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
			Duration:  n.Duration,
		})
	}
	return active
}

func fromDashboard(t dashboard.NotificationType) NotificationType {
	switch t {
	case dashboard.NotificationSuccess:
		return NotificationSuccess
	case dashboard.NotificationError:
		return NotificationError
	case dashboard.NotificationCall:
		return NotificationCall
	default:
		return NotificationInfo
	}
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: s.now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// TimeSinceUpdate returns the duration since the last settled fetch.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot.LastUpdated.IsZero() {
		return 0
	}
	return s.now().Sub(s.snapshot.LastUpdated)
}
