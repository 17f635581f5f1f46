// Package host provides the shared dependency handed to every monitor plugin:
// the compute driver identity, an external command runner and a lazily
// connected hypervisor handle.
package host

import (
	"context"
	"time"

	gohost "github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// Identity describes the machine the monitors run on.
type Identity struct {
	Hostname        string `json:"hostname"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Virtualization  string `json:"virtualization,omitempty"`
}

// Host is the owning-subsystem handle plugins query for host and driver state.
// It is built once at startup and shared read-only by all monitors.
type Host struct {
	computeDriver string
	runner        Runner
	hypervisor    Hypervisor
	logger        *zap.Logger
}

// Config holds the values New needs to build a Host.
type Config struct {
	ComputeDriver  string
	LibvirtURI     string
	CommandTimeout time.Duration
}

// Option customises a Host, mostly for tests.
type Option func(*Host)

// WithRunner replaces the default exec based command runner.
func WithRunner(r Runner) Option {
	return func(h *Host) { h.runner = r }
}

// WithHypervisor replaces the default libvirt hypervisor handle.
func WithHypervisor(hv Hypervisor) Option {
	return func(h *Host) { h.hypervisor = hv }
}

// New creates a Host. The libvirt connection is not opened until a monitor
// first asks the hypervisor for data.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		computeDriver: cfg.ComputeDriver,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.runner == nil {
		h.runner = NewExecRunner(cfg.CommandTimeout, logger)
	}
	if h.hypervisor == nil {
		h.hypervisor = NewLibvirtHypervisor(cfg.LibvirtURI, logger)
	}
	return h
}

// ComputeDriver returns the configured virt driver name, e.g. "libvirt.LibvirtDriver".
func (h *Host) ComputeDriver() string {
	if h == nil {
		return ""
	}
	return h.computeDriver
}

// Runner returns the external command runner.
func (h *Host) Runner() Runner { return h.runner }

// Hypervisor returns the hypervisor handle.
func (h *Host) Hypervisor() Hypervisor { return h.hypervisor }

// Logger returns the host logger, for plugins that log measurement detail.
func (h *Host) Logger() *zap.Logger { return h.logger }

// Identity reports the hostname and OS of the machine.
func (h *Host) Identity(ctx context.Context) (Identity, error) {
	info, err := gohost.InfoWithContext(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Hostname:        info.Hostname,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Virtualization:  info.VirtualizationSystem,
	}, nil
}

// Close releases the hypervisor connection, if one was opened.
func (h *Host) Close() error {
	if h.hypervisor == nil {
		return nil
	}
	return h.hypervisor.Close()
}
