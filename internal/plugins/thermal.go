package plugins

import (
	"context"
	"strconv"
	"strings"

	gohost "github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/monitor"
)

// Sensor key substrings, lower case.
// Linux: coretemp_core_0_input, k10temp_tctl_input, acpitz_temp1_input, amdgpu_edge_input.
var (
	cpuSensorKeys = []string{"cpu", "core", "package", "tctl", "tdie", "k10temp", "coretemp", "acpitz", "zenpower"}
	gpuSensorKeys = []string{"gpu", "nvidia", "amdgpu", "radeon", "nouveau"}
)

// Readings outside (minValidTemp, maxValidTemp] are sensor faults.
const (
	minValidTemp = 0.0
	maxValidTemp = 150.0
)

// HostThermal reports the hottest CPU and GPU readings. A metric is absent
// when no matching sensor exists.
type HostThermal struct {
	sensors func(ctx context.Context) ([]gohost.TemperatureStat, error)
	runner  host.Runner
	logger  *zap.Logger
}

// NewHostThermal creates the thermal.host monitor.
func NewHostThermal(h *host.Host) (monitor.Measurer, error) {
	return &HostThermal{
		sensors: gohost.SensorsTemperaturesWithContext,
		runner:  h.Runner(),
		logger:  h.Logger(),
	}, nil
}

// Measure scans sensors and falls back to nvidia-smi for the GPU.
func (m *HostThermal) Measure(ctx context.Context) (map[string]interface{}, error) {
	temps, err := m.sensors(ctx)
	if err != nil && len(temps) == 0 {
		// gopsutil returns partial readings alongside warnings.
		m.logger.Debug("Temperature sensors not available", zap.Error(err))
	}

	out := make(map[string]interface{})
	if v, ok := hottest(temps, cpuSensorKeys); ok {
		out["thermal.cpu.celsius"] = v
	}
	if v, ok := hottest(temps, gpuSensorKeys); ok {
		out["thermal.gpu.celsius"] = v
	} else if v, ok := m.nvidiaSMI(ctx); ok {
		out["thermal.gpu.celsius"] = v
	}
	return out, nil
}

func (m *HostThermal) nvidiaSMI(ctx context.Context) (float64, bool) {
	stdout, _, err := m.runner.Execute(ctx, "nvidia-smi",
		"--query-gpu=temperature.gpu", "--format=csv,noheader,nounits")
	if err != nil {
		return 0, false
	}
	best, found := 0.0, false
	for _, line := range strings.Split(stdout, "\n") {
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil || !isValidTemperature(v) {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

func hottest(temps []gohost.TemperatureStat, keys []string) (float64, bool) {
	best, found := 0.0, false
	for _, t := range temps {
		if !isValidTemperature(t.Temperature) || !matchesSensor(strings.ToLower(t.SensorKey), keys) {
			continue
		}
		if !found || t.Temperature > best {
			best, found = t.Temperature, true
		}
	}
	return best, found
}

func matchesSensor(name string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(name, key) {
			return true
		}
	}
	return false
}

func isValidTemperature(temp float64) bool {
	return temp > minValidTemp && temp <= maxValidTemp
}
