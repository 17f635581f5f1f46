//go:build linux

package plugins

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// SysinfoMemory reads RAM usage straight from sysinfo(2).
type SysinfoMemory struct {
	sysinfo func(*unix.Sysinfo_t) error
}

// NewSysinfoMemory creates the mem.sysinfo monitor.
func NewSysinfoMemory(*host.Host) (monitor.Measurer, error) {
	return &SysinfoMemory{sysinfo: unix.Sysinfo}, nil
}

// Measure converts sysinfo counters, which are in units of Unit bytes.
func (m *SysinfoMemory) Measure(ctx context.Context) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var info unix.Sysinfo_t
	if err := m.sysinfo(&info); err != nil {
		return nil, monitor.Extractionf("sysinfo: %v", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(info.Totalram) * unit
	if total == 0 {
		return nil, monitor.Shapef("sysinfo reports no total RAM")
	}
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	return memoryUsage{total: total, free: free, used: sub(total, free)}.metrics(), nil
}
