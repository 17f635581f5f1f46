package plugins

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// HostNetwork reports host-wide bytes received and sent. Deltas are taken
// between measurements, so with the default window they cover at least 30s.
type HostNetwork struct {
	counters    func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	lastRx      uint64
	lastTx      uint64
	initialized bool
}

// NewHostNetwork creates the net.host monitor.
func NewHostNetwork(*host.Host) (monitor.Measurer, error) {
	return &HostNetwork{counters: net.IOCountersWithContext}, nil
}

// Measure returns totals and the change since the previous measurement.
// The first measurement reports zero deltas while establishing a baseline.
func (m *HostNetwork) Measure(ctx context.Context) (map[string]interface{}, error) {
	counters, err := m.counters(ctx, false)
	if err != nil {
		return nil, monitor.Extractionf("io counters: %v", err)
	}
	if len(counters) == 0 {
		return nil, monitor.Shapef("no aggregate network counters")
	}

	rx, tx := counters[0].BytesRecv, counters[0].BytesSent
	var deltaRx, deltaTx uint64
	if m.initialized {
		deltaRx = sub(rx, m.lastRx)
		deltaTx = sub(tx, m.lastTx)
	}
	m.lastRx, m.lastTx, m.initialized = rx, tx, true

	return map[string]interface{}{
		"net.rx.bytes": deltaRx,
		"net.tx.bytes": deltaTx,
		"net.rx.total": rx,
		"net.tx.total": tx,
	}, nil
}
