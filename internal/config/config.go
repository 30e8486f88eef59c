// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	APIURL               string        `validate:"required,url"`
	TenantID             string        `validate:"required_without=TenantsPath"`
	TenantsPath          string        `validate:"required_without=TenantID"`
	CallsPerPage         int           `validate:"min=1,max=100"`
	PollInterval         time.Duration `validate:"min=0"`
	NotificationDuration time.Duration `validate:"min=0"`
	DesktopNotify        bool
	ExportDir            string
	LogFile              string
	LogLevel             string `validate:"oneof=debug info warn warning error"`
}

var validate = validator.New()

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		APIURL:               strings.TrimRight(getEnvString(EnvAPIURL, ""), "/"),
		TenantID:             getEnvString(EnvTenantID, ""),
		TenantsPath:          getEnvString(EnvTenantsPath, getDefaultTenantsPath()),
		CallsPerPage:         getEnvInt(EnvCallsPerPage, defaultCallsPerPage),
		PollInterval:         getEnvDuration(EnvPollInterval, 0),
		NotificationDuration: getEnvDuration(EnvNotificationDuration, defaultNotificationDuration),
		DesktopNotify:        getEnvBool(EnvDesktopNotify, false),
		ExportDir:            getEnvString(EnvExportDir, getDefaultExportDir()),
		LogFile:              getEnvString(EnvLogFile, getDefaultLogFile()),
		LogLevel:             strings.ToLower(getEnvString(EnvLogLevel, defaultLogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.ExportDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags and reports the first failing field by
// its environment key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "APIURL":
		return fmt.Errorf("%s must be set to the dashboard API base URL", EnvAPIURL)
	case "TenantID", "TenantsPath":
		return fmt.Errorf("%s or %s is required", EnvTenantID, EnvTenantsPath)
	case "CallsPerPage":
		return fmt.Errorf("%s must be between 1 and 100, got %d", EnvCallsPerPage, c.CallsPerPage)
	case "LogLevel":
		return fmt.Errorf("%s %q is not one of debug, info, warn, error", EnvLogLevel, c.LogLevel)
	default:
		return fmt.Errorf("invalid config field %s: %s", fe.Field(), fe.Tag())
	}
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "fono", ".env"),
			filepath.Join(home, ".fono", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fono")
}

// getDefaultTenantsPath returns the tenants file under the config directory
// when it exists, otherwise empty.
func getDefaultTenantsPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, "tenants.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func getDefaultExportDir() string {
	dir := configDir()
	if dir == "" {
		return "exports"
	}
	return filepath.Join(dir, "exports")
}

func getDefaultLogFile() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "fono.log")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
