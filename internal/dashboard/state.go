package dashboard

import (
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationInfo represents an informational notification.
	NotificationInfo NotificationType = iota
	// NotificationSuccess represents a success notification.
	NotificationSuccess
	// NotificationError represents an error notification.
	NotificationError
	// NotificationCall announces a live call event.
	NotificationCall
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationInfo:
		return "info"
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationCall:
		return "call"
	default:
		return "unknown"
	}
}

// Notification is a transient user-facing message. It expires Duration
// after CreatedAt regardless of later notifications.
type Notification struct {
	ID           uint64
	Type         NotificationType
	Message      string
	CallerNumber string
	CreatedAt    time.Time
	Duration     time.Duration
}

// IsExpired returns true if the notification has expired at now.
func (n Notification) IsExpired(now time.Time) bool {
	if n.Duration <= 0 {
		return false
	}
	return !now.Before(n.CreatedAt.Add(n.Duration))
}

// LoadingState tracks in-flight work.
type LoadingState struct {
	// Initial is set until the first data cycle settles.
	Initial bool
	// Data covers the summary and call log cycle.
	Data  bool
	Chart bool
}

// Any reports whether anything is loading.
func (l LoadingState) Any() bool {
	return l.Initial || l.Data || l.Chart
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Tenant       string
	Period       models.Period
	Window       models.TimeRange
	StatusFilter string
	Page         int
	PerPage      int

	Summary    *models.DashboardSummary
	Calls      []models.CallRecord
	Total      int
	TotalPages int
	Err        error

	Chart    *models.HourlyChart
	ChartErr error

	Loading       LoadingState
	Connection    models.ConnectionState
	Notifications []Notification
	RecentEvents  []models.CallEvent
	LastUpdated   time.Time
}

type (
	// DataLoadedUpdate is emitted when a summary and call log cycle settles.
	DataLoadedUpdate struct {
		Err error
	}

	// ChartLoadedUpdate is emitted when a chart aggregation settles.
	ChartLoadedUpdate struct {
		Err error
	}

	// LoadingUpdate is emitted when a fetch starts.
	LoadingUpdate struct {
		Loading LoadingState
	}

	// ConnectionUpdate is emitted on every stream state change.
	ConnectionUpdate struct {
		State models.ConnectionState
	}

	// CallEventUpdate is emitted for every accepted stream event.
	CallEventUpdate struct {
		Event models.CallEvent
	}

	// NotificationsUpdate is emitted when notifications are added or expire.
	NotificationsUpdate struct{}
)

// Update is the interface implemented by all controller updates.
type Update interface {
	isUpdate()
}

func (DataLoadedUpdate) isUpdate()    {}
func (ChartLoadedUpdate) isUpdate()   {}
func (LoadingUpdate) isUpdate()       {}
func (ConnectionUpdate) isUpdate()    {}
func (CallEventUpdate) isUpdate()     {}
func (NotificationsUpdate) isUpdate() {}
