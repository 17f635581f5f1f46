//go:build !windows

// Package service runs the monitor loop under the platform's process
// supervisor. Outside Windows the loop runs in the foreground and systemd
// (see internal/autostart) restarts it.
package service

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Service wraps the monitor run function.
type Service struct {
	logger *zap.Logger
	runFn  func(ctx context.Context) error
}

// New creates a service wrapper. runFn must return once ctx is cancelled.
func New(logger *zap.Logger, runFn func(ctx context.Context) error) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, runFn: runFn}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run calls the run function until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext calls the run function with ctx.
func (s *Service) RunContext(ctx context.Context) error {
	err := s.runFn(ctx)
	if ctx.Err() != nil {
		s.logger.Info("Received shutdown signal")
	}
	return err
}
