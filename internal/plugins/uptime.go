package plugins

import (
	"context"
	"time"

	gohost "github.com/shirou/gopsutil/v3/host"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// HostUptime reports seconds since boot and the boot time.
type HostUptime struct {
	bootTime func(ctx context.Context) (uint64, error)
	now      func() time.Time
}

// NewHostUptime creates the uptime.host monitor.
func NewHostUptime(*host.Host) (monitor.Measurer, error) {
	return &HostUptime{bootTime: gohost.BootTimeWithContext, now: time.Now}, nil
}

// Measure derives uptime from the boot time so both values agree.
func (m *HostUptime) Measure(ctx context.Context) (map[string]interface{}, error) {
	boot, err := m.bootTime(ctx)
	if err != nil {
		return nil, monitor.Extractionf("boot time: %v", err)
	}
	if boot == 0 {
		return nil, monitor.Shapef("boot time is zero")
	}
	bootAt := time.Unix(int64(boot), 0).UTC()
	uptime := m.now().Sub(bootAt)
	if uptime < 0 {
		uptime = 0
	}
	return map[string]interface{}{
		"host.uptime.seconds": uint64(uptime / time.Second),
		"host.boot.time":      bootAt.Format(time.RFC3339),
	}, nil
}
