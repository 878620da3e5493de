// Package cli holds the start-up steps shared by cmd/exptracker and
// cmd/exptracker-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"exptracker/internal/config"
	"exptracker/internal/log"
)

// LoadAndValidateConfig loads configuration and validates it.
// It exits the process when either step fails.
func LoadAndValidateConfig() *config.Config {
	bootstrap := log.New(log.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("Failed to load configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		JSON:      strings.EqualFold(cfg.LogFormat, "json"),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
