//go:build linux && cgo

package plugins

import (
	"context"
	"fmt"
	"strconv"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// NVMLMonitor reads NVIDIA GPU state through libnvidia-ml.
type NVMLMonitor struct {
	logger *zap.Logger
}

// NewNVML initialises NVML. It fails when the driver library is missing.
func NewNVML(h *host.Host) (monitor.Measurer, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("NVML init failed: %s", nvml.ErrorString(ret))
	}
	return &NVMLMonitor{logger: h.Logger()}, nil
}

// Measure emits gpu.<index>.* for every device. Devices whose handle cannot
// be read are skipped; optional readings missing on a device are omitted.
func (m *NVMLMonitor) Measure(ctx context.Context) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, monitor.Extractionf("device count: %s", nvml.ErrorString(ret))
	}

	out := make(map[string]interface{})
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			m.logger.Debug("Skipping GPU", zap.Int("index", i), zap.String("error", nvml.ErrorString(ret)))
			continue
		}
		prefix := "gpu." + strconv.Itoa(i)

		mem, ret := device.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return nil, monitor.Shapef("gpu %d memory info: %s", i, nvml.ErrorString(ret))
		}
		out[prefix+".memory.total"] = mem.Total
		out[prefix+".memory.used"] = mem.Used

		if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
			out[prefix+".utilization.percent"] = util.Gpu
		}
		if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			out[prefix+".temperature.celsius"] = temp
		}
	}
	return out, nil
}

// Close shuts NVML down.
func (m *NVMLMonitor) Close() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("NVML shutdown failed: %s", nvml.ErrorString(ret))
	}
	return nil
}
