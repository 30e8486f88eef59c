// Package main runs a local stand-in for the Fono dashboard API: the
// summary and call log routes, the call-bridge trigger and the SSE call
// event stream, backed by SQLite and driven by a call simulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fono-labs/fono-dash/internal/db"
	"github.com/fono-labs/fono-dash/internal/logger"
	"github.com/fono-labs/fono-dash/internal/mockapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:8787", "listen address")
	dbPath := flag.String("db", db.MemoryPath, "SQLite database path")
	tenantList := flag.String("tenants", "sg-1", "comma separated tenant IDs to seed and simulate")
	seed := flag.Int("seed", 120, "calls to seed per tenant")
	days := flag.Int("days", 30, "days of history to spread seeded calls over")
	interval := flag.Duration("interval", 20*time.Second, "time between simulated live calls, 0 disables")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logger.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logger.ParseLevel(*logLevel)}))
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.New(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	srv := mockapi.New(store)
	defer srv.Hub.Close()

	tenants := splitTenants(*tenantList)
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x666f6e6f))
	for _, t := range tenants {
		if err := srv.Seed(ctx, t, *seed, *days, r); err != nil {
			return fmt.Errorf("failed to seed %s: %w", t, err)
		}
	}
	go srv.Simulate(ctx, tenants, *interval, r)

	// No write timeout: event streams stay open.
	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock api listening", "addr", *addr, "tenants", tenants)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}
	logger.Info("shutdown initiated")

	// Streams only end once the hub closes.
	srv.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	return nil
}

func splitTenants(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
