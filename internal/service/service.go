//go:build windows

// Package service runs the monitor loop under the platform's process
// supervisor. On Windows it enters the SCM control loop when started by the
// service manager.
package service

import (
	"context"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

// Name is the Windows service name.
const Name = "HostmonMonitor"

// stopGrace bounds how long Stop waits for the run function to return.
const stopGrace = 10 * time.Second

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

// IsWindowsService reports whether the process was started by the SCM.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run enters the SCM loop when started as a service, otherwise runs in the
// foreground until interrupted.
func (s *Service) Run() error {
	if IsWindowsService() {
		s.logger.Info("Running as Windows service")
		return svc.Run(Name, s)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return s.runFn(ctx)
}

// Execute implements svc.Handler.
func (s *Service) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.runFn(ctx) }()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		select {
		case err := <-done:
			if err != nil {
				s.logger.Error("Monitor loop exited", zap.Error(err))
				return false, 1
			}
			return false, 0
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Windows service stopping")
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(stopGrace):
					s.logger.Warn("Monitor loop did not stop in time")
				}
				return false, 0
			default:
				s.logger.Warn("Unexpected service control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}
