package monitor

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/telemetry"
)

func staticFactory(values map[string]interface{}) Factory {
	return func(*host.Host) (Measurer, error) {
		return MeasureFunc(func(context.Context) (map[string]interface{}, error) {
			return values, nil
		}), nil
	}
}

func candidate(name, ns string) Descriptor {
	return Descriptor{Name: name, Namespace: ns, Factory: staticFactory(map[string]interface{}{"m": name})}
}

func newObservedRegistry(enabled []string) (*Registry, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewRegistry(Config{Enabled: enabled}, zap.New(core)), logs
}

func TestBuild_FirstEnabledCandidateWins(t *testing.T) {
	r, logs := newObservedRegistry([]string{"cpu"})

	composite, excluded := r.Build([]Descriptor{
		candidate("virt_driver", "ns.cpu.virt_driver"),
		candidate("other_driver", "ns.cpu.other_driver"),
	}, nil)

	if got := composite.Names(); !reflect.DeepEqual(got, []string{"cpu.virt_driver"}) {
		t.Fatalf("active = %v, want [cpu.virt_driver]", got)
	}
	if len(excluded) != 1 {
		t.Fatalf("exclusions = %d, want 1", len(excluded))
	}
	e := excluded[0]
	if e.Descriptor.Name != "other_driver" || e.Winner != "virt_driver" || !errors.Is(e.Reason, ErrExcludedByDuplicate) {
		t.Errorf("exclusion = %+v", e)
	}

	warnings := logs.FilterMessage("Excluding monitor, category already loaded").All()
	if len(warnings) != 1 {
		t.Fatalf("duplicate warnings = %d, want 1", len(warnings))
	}
	fields := warnings[0].ContextMap()
	if fields["loaded"] != "virt_driver" || fields["monitor"] != "other_driver" || fields["category"] != "cpu" {
		t.Errorf("warning fields = %v", fields)
	}
}

func TestBuild_EmptyEnabledSet(t *testing.T) {
	r, logs := newObservedRegistry(nil)

	composite, excluded := r.Build([]Descriptor{
		candidate("virt_driver", "ns.cpu.virt_driver"),
		candidate("other_driver", "ns.cpu.other_driver"),
		candidate("lsblk", "ns.ssd.lsblk"),
	}, nil)

	if composite.Len() != 0 {
		t.Errorf("active = %v, want none", composite.Names())
	}
	if len(excluded) != 3 {
		t.Fatalf("exclusions = %d, want 3", len(excluded))
	}
	for _, e := range excluded {
		if !errors.Is(e.Reason, ErrExcludedByConfiguration) {
			t.Errorf("%s excluded for %v, want not enabled", e.Descriptor.Name, e.Reason)
		}
	}
	if n := logs.FilterMessage("Excluding monitor, category already loaded").Len(); n != 0 {
		t.Errorf("duplicate warnings = %d, want 0", n)
	}
	if n := logs.FilterMessage("Excluding monitor, not in the list of enabled monitors").Len(); n != 3 {
		t.Errorf("not-enabled warnings = %d, want 3", n)
	}
}

func TestBuild_VariantTokenSkipsEarlierCandidate(t *testing.T) {
	r, _ := newObservedRegistry([]string{"cpu.other_driver"})

	composite, excluded := r.Build([]Descriptor{
		candidate("virt_driver", "ns.cpu.virt_driver"),
		candidate("other_driver", "ns.cpu.other_driver"),
	}, nil)

	if got := composite.Names(); !reflect.DeepEqual(got, []string{"cpu.other_driver"}) {
		t.Fatalf("active = %v, want [cpu.other_driver]", got)
	}
	if len(excluded) != 1 || !errors.Is(excluded[0].Reason, ErrExcludedByConfiguration) {
		t.Errorf("exclusions = %+v", excluded)
	}
}

func TestBuild_LegacyTokens(t *testing.T) {
	tests := []struct {
		name    string
		enabled []string
		ns      string
	}{
		{"cpu.virt_driver enables cpu", []string{"cpu.virt_driver"}, "ns.cpu.host"},
		{"bare virt_driver enables cpu", []string{"virt_driver"}, "ns.cpu.virt_driver"},
		{"cpu enables virt_driver category", []string{"cpu"}, "ns.virt_driver.legacy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newObservedRegistry(tt.enabled)
			composite, excluded := r.Build([]Descriptor{candidate("x", tt.ns)}, nil)
			if composite.Len() != 1 || len(excluded) != 0 {
				t.Errorf("active = %v, excluded = %+v", composite.Names(), excluded)
			}
		})
	}
}

func TestBuild_PreservesDiscoveryOrderAcrossCategories(t *testing.T) {
	r, _ := newObservedRegistry([]string{"ssd", "mem", "cpu"})

	composite, excluded := r.Build([]Descriptor{
		candidate("virt_driver", "ns.cpu.virt_driver"),
		candidate("lsblk", "ns.ssd.lsblk"),
		candidate("host", "ns.cpu.host"),
		candidate("sysinfo", "ns.mem.sysinfo"),
		candidate("host", "ns.mem.host"),
	}, nil)

	want := []string{"cpu.virt_driver", "ssd.lsblk", "mem.sysinfo"}
	if got := composite.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("active = %v, want %v", got, want)
	}
	if len(excluded) != 2 {
		t.Errorf("exclusions = %d, want 2", len(excluded))
	}
}

func TestBuild_MalformedNamespaceIsSkipped(t *testing.T) {
	r, logs := newObservedRegistry([]string{"cpu"})

	composite, excluded := r.Build([]Descriptor{
		candidate("broken", "cpu"),
		candidate("virt_driver", "ns.cpu.virt_driver"),
	}, nil)

	if composite.Len() != 1 {
		t.Errorf("active = %v, want the well-formed candidate", composite.Names())
	}
	if len(excluded) != 1 || !errors.Is(excluded[0].Reason, ErrMalformedNamespace) {
		t.Fatalf("exclusions = %+v", excluded)
	}
	if n := logs.FilterMessage("Excluding monitor").Len(); n != 1 {
		t.Errorf("malformed warnings = %d, want 1", n)
	}
}

func TestBuild_FactoryFailureKeepsClaim(t *testing.T) {
	r, _ := newObservedRegistry([]string{"gpu", "disk"})

	failing := Descriptor{
		Name:      "nvml",
		Namespace: "ns.gpu.nvml",
		Factory: func(*host.Host) (Measurer, error) {
			return nil, fmt.Errorf("libnvidia-ml.so not found")
		},
	}
	composite, excluded := r.Build([]Descriptor{
		failing,
		candidate("smi", "ns.gpu.smi"),
		{Name: "nofactory", Namespace: "ns.disk.none"},
	}, nil)

	if composite.Len() != 0 {
		t.Errorf("active = %v, want none", composite.Names())
	}
	if len(excluded) != 3 {
		t.Fatalf("exclusions = %d, want 3", len(excluded))
	}
	if !errors.Is(excluded[0].Reason, ErrFactory) {
		t.Errorf("first exclusion = %v, want ErrFactory", excluded[0].Reason)
	}
	if !errors.Is(excluded[1].Reason, ErrExcludedByDuplicate) || excluded[1].Winner != "nvml" {
		t.Errorf("second exclusion = %+v, want duplicate of nvml", excluded[1])
	}
	if !errors.Is(excluded[2].Reason, ErrFactory) {
		t.Errorf("third exclusion = %v, want ErrFactory for missing factory", excluded[2].Reason)
	}
}

func TestBuild_SharedHostAndSettings(t *testing.T) {
	h := host.New(host.Config{ComputeDriver: "fake.FakeDriver"}, nil)
	clock := newFakeClock()

	var seen []*host.Host
	factory := func(got *host.Host) (Measurer, error) {
		seen = append(seen, got)
		return MeasureFunc(func(context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"v": 1}, nil
		}), nil
	}
	r := NewRegistry(Config{Enabled: []string{"cpu", "mem"}, Now: clock.Now}, nil)
	composite, _ := r.Build([]Descriptor{
		{Name: "a", Namespace: "ns.cpu.a", Factory: factory},
		{Name: "b", Namespace: "ns.mem.b", Factory: factory},
	}, h)

	if len(seen) != 2 || seen[0] != h || seen[1] != h {
		t.Fatalf("factories did not receive the shared host: %v", seen)
	}
	src := composite.Sources()[0].(*Cached)
	if src.Source() != "fake.FakeDriver" {
		t.Errorf("Source() = %q", src.Source())
	}
	_, ts, err := src.Metric(context.Background(), "v")
	if err != nil {
		t.Fatal(err)
	}
	if !ts.Equal(clock.Now()) {
		t.Errorf("timestamp = %v, want injected clock %v", ts, clock.Now())
	}
}

func TestBuild_RecordsTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(Config{Enabled: []string{"cpu"}, Metrics: telemetry.New(reg)}, nil)

	r.Build([]Descriptor{
		candidate("virt_driver", "ns.cpu.virt_driver"),
		candidate("host", "ns.cpu.host"),
		candidate("lsblk", "ns.ssd.lsblk"),
	}, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	if values["hostmon_monitors_active"] != 1 {
		t.Errorf("active gauge = %v, want 1", values["hostmon_monitors_active"])
	}
	if values["hostmon_monitor_exclusions_total"] != 2 {
		t.Errorf("exclusions = %v, want 2", values["hostmon_monitor_exclusions_total"])
	}
}
