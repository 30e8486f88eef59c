package app

import (
	"time"

	"github.com/fono-labs/fono-dash/internal/dashboard"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// SnapshotMsg carries a fresh controller snapshot.
type SnapshotMsg struct {
	Snapshot dashboard.Snapshot
}

// RefreshMsg requests a refetch of summary, call log and chart.
type RefreshMsg struct{}

// RefreshResultMsg reports whether Refresh started a new cycle.
type RefreshResultMsg struct {
	Started bool
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// ExportResultMsg contains the result of an export operation.
type ExportResultMsg struct {
	Path    string
	Success bool
	Error   error
}

// SwitchTenantResultMsg contains the result of a restaurant switch.
type SwitchTenantResultMsg struct {
	Tenant  models.Tenant
	Success bool
	Error   error
}

// DateFilterChangedMsg contains the result of cycling the period preset.
type DateFilterChangedMsg struct {
	Filter models.DateFilter
	Error  error
}

// SetStatusFilterMsg asks the call log to filter by status. Empty means all.
type SetStatusFilterMsg struct {
	Status string
}

// SetPageMsg asks the call log to move to Page.
type SetPageMsg struct {
	Page int
}

// CallBackMsg requests bridging the restaurant to Phone.
type CallBackMsg struct {
	Phone string
}

// CallBackResultMsg contains the result of a call back.
type CallBackResultMsg struct {
	Phone   string
	Success bool
	Error   error
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}
