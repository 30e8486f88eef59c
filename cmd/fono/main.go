// Package main is the entry point for the Fono call dashboard.
// It loads configuration, starts the dashboard services and runs the
// Bubble Tea program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fono-labs/fono-dash/internal/app"
	"github.com/fono-labs/fono-dash/internal/config"
	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/services"
	"github.com/fono-labs/fono-dash/internal/ui/tabs/calls"
	"github.com/fono-labs/fono-dash/internal/ui/tabs/info"
	"github.com/fono-labs/fono-dash/internal/ui/tabs/overview"
	"github.com/fono-labs/fono-dash/internal/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile, err := logger.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger.Info("starting", "version", version.GetVersion(), "api", cfg.APIURL)

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svcManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dashboard: %w", err)
	}

	model := app.NewModel(svcManager)

	state := model.GetState()
	model.SetTabs([]app.Tab{
		overview.New(state),  // 1: today's numbers, chart, live feed
		calls.New(state),     // 2: paged call log
		info.New(state, cfg), // 3: configuration and build info
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		select {
		case <-sigChan:
			p.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func printUsage() {
	fmt.Println(`Fono Dashboard - live call monitor for restaurant phone lines

Usage:
  fono [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  1-3             Switch between tabs (Overview, Calls, Info)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Move through lists
  d               Cycle date filter (Today, Yesterday, This Week, This Month)
  t               Switch restaurant
  e               Export chart and call page to xlsx
  r               Refresh data
  f               Filter calls by status (Calls tab)
  ]/[             Next/previous page (Calls tab)
  c, Enter        Call the selected caller back (Calls tab)
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  FONO_API_URL                Dashboard API base URL (required)
  FONO_TENANT_ID              Restaurant to monitor
  FONO_TENANTS_PATH           JSON file listing restaurants (overrides FONO_TENANT_ID)
  FONO_CALLS_PER_PAGE         Call log page size (default: 20, max 100)
  FONO_POLL_INTERVAL          Periodic refresh, e.g. 15s (default: off)
  FONO_NOTIFICATION_DURATION  Toast lifetime (default: 5s)
  FONO_DESKTOP_NOTIFY         Desktop alerts for calls (default: false)
  FONO_EXPORT_DIR             Where exports are written
  FONO_LOG_FILE               Log file (default: ~/.config/fono/fono.log)
  LOG_LEVEL                   debug, info, warn or error (default: info)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/fono/.env
  - ~/.fono/.env`)
}
