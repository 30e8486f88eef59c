package config

import "time"

// Environment keys read by Load.
const (
	EnvAPIURL               = "FONO_API_URL"
	EnvTenantID             = "FONO_TENANT_ID"
	EnvTenantsPath          = "FONO_TENANTS_PATH"
	EnvCallsPerPage         = "FONO_CALLS_PER_PAGE"
	EnvPollInterval         = "FONO_POLL_INTERVAL"
	EnvNotificationDuration = "FONO_NOTIFICATION_DURATION"
	EnvDesktopNotify        = "FONO_DESKTOP_NOTIFY"
	EnvExportDir            = "FONO_EXPORT_DIR"
	EnvLogFile              = "FONO_LOG_FILE"
	EnvLogLevel             = "LOG_LEVEL"
)

// Default values
const (
	defaultCallsPerPage         = 20
	defaultNotificationDuration = 5 * time.Second
	defaultLogLevel             = "info"
)
