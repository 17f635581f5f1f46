package plugins

import (
	"context"
	"strconv"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// VirtDriverNUMA reports total and free memory per NUMA cell.
type VirtDriverNUMA struct {
	hypervisor host.Hypervisor
}

// NewVirtDriverNUMA creates the numa_mem_bw.virt_driver monitor.
func NewVirtDriverNUMA(h *host.Host) (monitor.Measurer, error) {
	return &VirtDriverNUMA{hypervisor: h.Hypervisor()}, nil
}

// Measure reads memory stats for every cell the node reports.
func (m *VirtDriverNUMA) Measure(ctx context.Context) (map[string]interface{}, error) {
	info, err := m.hypervisor.NodeInfo(ctx)
	if err != nil {
		return nil, monitor.Extractionf("node info: %v", err)
	}
	if info.Nodes <= 0 {
		return nil, monitor.Shapef("node reports %d NUMA cells", info.Nodes)
	}

	out := make(map[string]interface{}, 2*int(info.Nodes))
	for cell := int32(0); cell < info.Nodes; cell++ {
		stats, err := m.hypervisor.MemoryStats(ctx, cell)
		if err != nil {
			return nil, monitor.Extractionf("memory stats: %v", err)
		}
		prefix := "numa.mem." + strconv.Itoa(int(cell))
		for _, field := range []string{"total", "free"} {
			kib, ok := stats[field]
			if !ok {
				return nil, monitor.Shapef("cell %d memory stats missing %q", cell, field)
			}
			out[prefix+"."+field] = kib * 1024
		}
	}
	return out, nil
}
