package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/config"
	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
	"github.com/Guliveer/hostmon/internal/plugins"
	"github.com/Guliveer/hostmon/internal/telemetry"
)

// stack is everything a command needs to read monitors.
type stack struct {
	host       *host.Host
	composite  *monitor.Composite
	exclusions []monitor.Exclusion
	enabled    monitor.EnabledSet
	registry   *prometheus.Registry
}

// buildStack creates the shared host and activates the catalog.
func buildStack(cfg *config.Config, logger *zap.Logger) *stack {
	h := host.New(host.Config{
		ComputeDriver:  cfg.Host.ComputeDriver,
		LibvirtURI:     cfg.Host.LibvirtURI,
		CommandTimeout: cfg.Host.CommandTimeout.Duration,
	}, logger)

	reg := prometheus.NewRegistry()
	r := monitor.NewRegistry(monitor.Config{
		Enabled:         cfg.Monitors.Enabled,
		FreshnessWindow: cfg.Monitors.FreshnessWindow.Duration,
		RetryBackoff:    cfg.Monitors.RetryBackoff.Duration,
		Metrics:         telemetry.New(reg),
	}, logger)
	composite, exclusions := r.Build(plugins.Catalog(), h)

	return &stack{
		host:       h,
		composite:  composite,
		exclusions: exclusions,
		enabled:    r.Enabled(),
		registry:   reg,
	}
}

func (s *stack) Close(logger *zap.Logger) {
	if err := s.composite.Close(); err != nil {
		logger.Warn("Closing monitors", zap.Error(err))
	}
	if err := s.host.Close(); err != nil {
		logger.Warn("Closing hypervisor connection", zap.Error(err))
	}
}
