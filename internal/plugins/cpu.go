package plugins

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// cpuTimes are cumulative host CPU times in nanoseconds.
type cpuTimes struct {
	user   uint64
	kernel uint64
	idle   uint64
	iowait uint64
}

func (t cpuTimes) total() uint64 { return t.user + t.kernel + t.idle + t.iowait }

// cpuSampler turns successive cumulative readings into utilisation.
// Measure calls are serialised by the owning monitor.Cached.
type cpuSampler struct {
	prev *cpuTimes
}

// metrics builds the cpu.* metric set. Percentages are fractions of the
// interval since the previous reading, or of all time on the first reading.
func (s *cpuSampler) metrics(cur cpuTimes, mhz uint64) map[string]interface{} {
	base := cpuTimes{}
	if s.prev != nil && cur.total() >= s.prev.total() {
		base = *s.prev
	}
	s.prev = &cur

	delta := cpuTimes{
		user:   sub(cur.user, base.user),
		kernel: sub(cur.kernel, base.kernel),
		idle:   sub(cur.idle, base.idle),
		iowait: sub(cur.iowait, base.iowait),
	}
	total := delta.total()

	return map[string]interface{}{
		"cpu.frequency":      mhz,
		"cpu.user.time":      cur.user,
		"cpu.kernel.time":    cur.kernel,
		"cpu.idle.time":      cur.idle,
		"cpu.iowait.time":    cur.iowait,
		"cpu.user.percent":   fraction(delta.user, total),
		"cpu.kernel.percent": fraction(delta.kernel, total),
		"cpu.idle.percent":   fraction(delta.idle, total),
		"cpu.iowait.percent": fraction(delta.iowait, total),
		"cpu.percent":        fraction(delta.user+delta.kernel, total),
	}
}

func sub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

func fraction(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// VirtDriverCPU reads host CPU statistics through the hypervisor.
type VirtDriverCPU struct {
	hypervisor host.Hypervisor
	sampler    cpuSampler
}

// NewVirtDriverCPU creates the cpu.virt_driver monitor.
func NewVirtDriverCPU(h *host.Host) (monitor.Measurer, error) {
	return &VirtDriverCPU{hypervisor: h.Hypervisor()}, nil
}

// Measure queries node info and CPU stats.
func (m *VirtDriverCPU) Measure(ctx context.Context) (map[string]interface{}, error) {
	info, err := m.hypervisor.NodeInfo(ctx)
	if err != nil {
		return nil, monitor.Extractionf("node info: %v", err)
	}
	stats, err := m.hypervisor.CPUStats(ctx)
	if err != nil {
		return nil, monitor.Extractionf("cpu stats: %v", err)
	}

	var cur cpuTimes
	for _, f := range []struct {
		name string
		dst  *uint64
	}{
		{"user", &cur.user},
		{"kernel", &cur.kernel},
		{"idle", &cur.idle},
		{"iowait", &cur.iowait},
	} {
		v, ok := stats[f.name]
		if !ok {
			return nil, monitor.Shapef("cpu stats missing %q", f.name)
		}
		*f.dst = v
	}
	if info.MHz < 0 {
		return nil, monitor.Shapef("negative cpu frequency %d", info.MHz)
	}
	return m.sampler.metrics(cur, uint64(info.MHz)), nil
}

// HostCPU reads CPU statistics from the operating system.
type HostCPU struct {
	times   func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	info    func(ctx context.Context) ([]cpu.InfoStat, error)
	sampler cpuSampler
}

// NewHostCPU creates the cpu.host monitor.
func NewHostCPU(*host.Host) (monitor.Measurer, error) {
	return &HostCPU{times: cpu.TimesWithContext, info: cpu.InfoWithContext}, nil
}

// Measure reads aggregate CPU times and the nominal frequency.
func (m *HostCPU) Measure(ctx context.Context) (map[string]interface{}, error) {
	times, err := m.times(ctx, false)
	if err != nil {
		return nil, monitor.Extractionf("cpu times: %v", err)
	}
	if len(times) == 0 {
		return nil, monitor.Shapef("no aggregate cpu times")
	}
	t := times[0]

	var mhz uint64
	if infos, err := m.info(ctx); err == nil && len(infos) > 0 {
		mhz = uint64(infos[0].Mhz)
	}

	cur := cpuTimes{
		user:   toNanoseconds(t.User + t.Nice),
		kernel: toNanoseconds(t.System + t.Irq + t.Softirq),
		idle:   toNanoseconds(t.Idle),
		iowait: toNanoseconds(t.Iowait),
	}
	return m.sampler.metrics(cur, mhz), nil
}

// toNanoseconds converts a gopsutil CPU time in seconds.
func toNanoseconds(s float64) uint64 {
	if s <= 0 {
		return 0
	}
	return uint64(s * float64(time.Second))
}
