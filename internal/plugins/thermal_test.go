package plugins

import (
	"context"
	"testing"

	gohost "github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

func TestHottest(t *testing.T) {
	temps := []gohost.TemperatureStat{
		{SensorKey: "coretemp_core_0_input", Temperature: 51},
		{SensorKey: "coretemp_core_1_input", Temperature: 63},
		{SensorKey: "coretemp_package_id_0_input", Temperature: 200}, // fault
		{SensorKey: "amdgpu_edge_input", Temperature: 44},
		{SensorKey: "nvme_composite_input", Temperature: 70},
	}
	tests := []struct {
		name   string
		keys   []string
		want   float64
		wantOK bool
	}{
		{"cpu", cpuSensorKeys, 63, true},
		{"gpu", gpuSensorKeys, 44, true},
		{"none", []string{"battery"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := hottest(temps, tt.keys)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("hottest() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsValidTemperature(t *testing.T) {
	tests := []struct {
		temp float64
		want bool
	}{
		{0, false},
		{-5, false},
		{0.5, true},
		{150, true},
		{150.1, false},
	}
	for _, tt := range tests {
		if got := isValidTemperature(tt.temp); got != tt.want {
			t.Errorf("isValidTemperature(%v) = %v, want %v", tt.temp, got, tt.want)
		}
	}
}

func TestHostThermal_NvidiaSMIFallback(t *testing.T) {
	runner := &fakeRunner{results: map[string]runResult{
		"nvidia-smi": {stdout: "41\n67\nN/A\n"},
	}}
	m := &HostThermal{
		sensors: func(context.Context) ([]gohost.TemperatureStat, error) {
			return []gohost.TemperatureStat{{SensorKey: "k10temp_tctl_input", Temperature: 55}}, nil
		},
		runner: runner,
		logger: zap.NewNop(),
	}
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got["thermal.cpu.celsius"] != 55.0 {
		t.Errorf("thermal.cpu.celsius = %v, want 55", got["thermal.cpu.celsius"])
	}
	if got["thermal.gpu.celsius"] != 67.0 {
		t.Errorf("thermal.gpu.celsius = %v, want 67", got["thermal.gpu.celsius"])
	}
}

func TestHostThermal_NoSensors(t *testing.T) {
	m := &HostThermal{
		sensors: func(context.Context) ([]gohost.TemperatureStat, error) { return nil, nil },
		runner:  &fakeRunner{},
		logger:  zap.NewNop(),
	}
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("metrics = %v, want none", got)
	}
}
