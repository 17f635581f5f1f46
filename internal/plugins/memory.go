package plugins

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// memoryUsage is the portable view shared by both mem variants.
type memoryUsage struct {
	total uint64
	free  uint64
	used  uint64
}

func (u memoryUsage) metrics() map[string]interface{} {
	return map[string]interface{}{
		"mem.total":   u.total,
		"mem.free":    u.free,
		"mem.used":    u.used,
		"mem.percent": fraction(u.used, u.total),
	}
}

// HostMemory reads RAM usage through gopsutil.
type HostMemory struct {
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewHostMemory creates the mem.host monitor.
func NewHostMemory(*host.Host) (monitor.Measurer, error) {
	return &HostMemory{virtual: mem.VirtualMemoryWithContext}, nil
}

// Measure gathers used, free and total bytes.
func (m *HostMemory) Measure(ctx context.Context) (map[string]interface{}, error) {
	v, err := m.virtual(ctx)
	if err != nil {
		return nil, monitor.Extractionf("virtual memory: %v", err)
	}
	if v == nil || v.Total == 0 {
		return nil, monitor.Shapef("virtual memory reports no total")
	}
	return memoryUsage{total: v.Total, free: v.Available, used: v.Used}.metrics(), nil
}
