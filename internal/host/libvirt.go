package host

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	golibvirt "github.com/digitalocean/go-libvirt"
	"go.uber.org/zap"
)

const (
	// allCPUs selects the host-wide aggregate in NodeGetCPUStats.
	allCPUs int32 = -1
)

// NodeInfo is the subset of virNodeInfo the monitors use.
type NodeInfo struct {
	Model     string
	MemoryKiB uint64
	CPUs      int32
	MHz       int32
	Nodes     int32
	Sockets   int32
	Cores     int32
	Threads   int32
}

// Hypervisor exposes host-level statistics from the virt driver.
type Hypervisor interface {
	NodeInfo(ctx context.Context) (NodeInfo, error)
	// CPUStats returns cumulative host CPU times in nanoseconds keyed by
	// lower-cased field name (user, kernel, idle, iowait).
	CPUStats(ctx context.Context) (map[string]uint64, error)
	// MemoryStats returns memory counters in KiB for one NUMA cell.
	MemoryStats(ctx context.Context, cell int32) (map[string]uint64, error)
	Close() error
}

// LibvirtHypervisor owns a single libvirt RPC connection, dialled on first use.
type LibvirtHypervisor struct {
	mu     sync.Mutex
	client *golibvirt.Libvirt
	uri    string
	logger *zap.Logger
}

// NewLibvirtHypervisor creates a hypervisor handle for uri. An empty uri
// means qemu:///system.
func NewLibvirtHypervisor(uri string, logger *zap.Logger) *LibvirtHypervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibvirtHypervisor{uri: uri, logger: logger}
}

// NodeInfo calls virNodeGetInfo.
func (h *LibvirtHypervisor) NodeInfo(ctx context.Context) (NodeInfo, error) {
	c, err := h.conn(ctx)
	if err != nil {
		return NodeInfo{}, err
	}
	model, memKiB, cpus, mhz, nodes, sockets, cores, threads, err := c.NodeGetInfo()
	if err != nil {
		h.drop(err)
		return NodeInfo{}, fmt.Errorf("NodeGetInfo: %w", err)
	}
	return NodeInfo{
		Model:     modelString(model),
		MemoryKiB: memKiB,
		CPUs:      cpus,
		MHz:       mhz,
		Nodes:     nodes,
		Sockets:   sockets,
		Cores:     cores,
		Threads:   threads,
	}, nil
}

// CPUStats calls virNodeGetCPUStats for all CPUs.
func (h *LibvirtHypervisor) CPUStats(ctx context.Context) (map[string]uint64, error) {
	c, err := h.conn(ctx)
	if err != nil {
		return nil, err
	}
	// First call sizes the parameter list, second one fills it.
	_, n, err := c.NodeGetCPUStats(allCPUs, 0, 0)
	if err != nil {
		h.drop(err)
		return nil, fmt.Errorf("NodeGetCPUStats: %w", err)
	}
	params, _, err := c.NodeGetCPUStats(allCPUs, n, 0)
	if err != nil {
		h.drop(err)
		return nil, fmt.Errorf("NodeGetCPUStats: %w", err)
	}
	out := make(map[string]uint64, len(params))
	for _, p := range params {
		out[strings.ToLower(p.Field)] = p.Value
	}
	return out, nil
}

// MemoryStats calls virNodeGetMemoryStats for cell.
func (h *LibvirtHypervisor) MemoryStats(ctx context.Context, cell int32) (map[string]uint64, error) {
	c, err := h.conn(ctx)
	if err != nil {
		return nil, err
	}
	_, n, err := c.NodeGetMemoryStats(0, cell, 0)
	if err != nil {
		h.drop(err)
		return nil, fmt.Errorf("NodeGetMemoryStats(cell %d): %w", cell, err)
	}
	params, _, err := c.NodeGetMemoryStats(n, cell, 0)
	if err != nil {
		h.drop(err)
		return nil, fmt.Errorf("NodeGetMemoryStats(cell %d): %w", cell, err)
	}
	out := make(map[string]uint64, len(params))
	for _, p := range params {
		out[strings.ToLower(p.Field)] = p.Value
	}
	return out, nil
}

// Close disconnects from libvirt.
func (h *LibvirtHypervisor) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil
	}
	err := h.client.Disconnect()
	h.client = nil
	return err
}

func (h *LibvirtHypervisor) conn(ctx context.Context) (*golibvirt.Libvirt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		return h.client, nil
	}

	uri, err := h.parseURI()
	if err != nil {
		return nil, err
	}
	c, err := golibvirt.ConnectToURI(uri)
	if err != nil {
		return nil, fmt.Errorf("connecting to libvirt %s: %w", uri.Redacted(), err)
	}
	h.logger.Info("Connected to libvirt", zap.String("uri", uri.Redacted()))
	h.client = c
	return c, nil
}

// drop forgets a connection that returned an error so the next call redials.
func (h *LibvirtHypervisor) drop(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return
	}
	if _, err := h.client.Version(); err == nil {
		return
	}
	h.logger.Warn("Dropping libvirt connection", zap.Error(cause))
	_ = h.client.Disconnect()
	h.client = nil
}

func (h *LibvirtHypervisor) parseURI() (*url.URL, error) {
	raw := h.uri
	if raw == "" {
		raw = string(golibvirt.QEMUSystem)
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse libvirt uri %q: %w", raw, err)
	}
	if uri.Scheme == "" {
		return nil, fmt.Errorf("libvirt uri %q has no scheme", raw)
	}
	return uri, nil
}

func modelString(raw [32]int8) string {
	b := make([]byte, 0, len(raw))
	for _, c := range raw {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
