package plugins

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// lsblkArgs lists whole disks only, with the rotational flag.
var lsblkArgs = []string{"-d", "-o", "name,rota"}

// SSDMonitor reports, per block device, whether it is rotational.
// drive.<dev>.ssd is "0" for solid state devices and "1" for spinning disks.
type SSDMonitor struct {
	runner host.Runner
	logger *zap.Logger
}

// NewSSD creates an SSDMonitor that shells out through the host runner.
func NewSSD(h *host.Host) (monitor.Measurer, error) {
	return &SSDMonitor{runner: h.Runner(), logger: h.Logger()}, nil
}

// Measure runs lsblk and maps each device to drive.<dev>.ssd.
func (m *SSDMonitor) Measure(ctx context.Context) (map[string]interface{}, error) {
	stats, err := m.ssdStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(stats))
	for dev, rota := range stats {
		out["drive."+dev+".ssd"] = rota
	}
	return out, nil
}

func (m *SSDMonitor) ssdStats(ctx context.Context) (map[string]string, error) {
	stdout, stderr, err := m.runner.Execute(ctx, "lsblk", lsblkArgs...)
	if err != nil {
		return nil, monitor.Extractionf("lsblk: %v", err)
	}
	if strings.TrimSpace(stderr) != "" {
		m.logger.Debug("lsblk wrote to stderr", zap.String("stderr", stderr))
		return nil, monitor.Extractionf("unable to parse lsblk output")
	}
	return parseLsblk(stdout)
}

// parseLsblk reads "NAME ROTA" output: a header row, then two fields per
// device. Blank lines are ignored.
func parseLsblk(out string) (map[string]string, error) {
	stats := make(map[string]string)
	lines := strings.Split(out, "\n")
	if len(lines) == 0 {
		return stats, nil
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, monitor.Shapef("lsblk row %q has %d fields, want 2", line, len(fields))
		}
		stats[fields[0]] = fields[1]
	}
	return stats, nil
}
