package monitor

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestComposite_CollectKeepsOrderAndIsolatesFailures(t *testing.T) {
	clock := newFakeClock()
	good := NewCached("ssd.lsblk", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"drive.sdb.ssd": "1", "drive.sda.ssd": "0"}, nil
	}), WithClock(clock.Now), WithSource("libvirt.LibvirtDriver"))
	bad := NewCached("cpu.virt_driver", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		return nil, Shapef("cpu stats missing %q", "idle")
	}), WithClock(clock.Now))
	mem := NewCached("mem.host", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"mem.total": uint64(1024)}, nil
	}), WithClock(clock.Now))

	c := NewComposite([]MetricSource{good, bad, mem}, nil)
	samples, failures := c.Collect(context.Background())

	var names []string
	for _, s := range samples {
		names = append(names, s.Monitor+"/"+s.Name)
		if !s.Timestamp.Equal(clock.Now()) {
			t.Errorf("%s timestamp = %v", s.Name, s.Timestamp)
		}
	}
	want := []string{"ssd.lsblk/drive.sda.ssd", "ssd.lsblk/drive.sdb.ssd", "mem.host/mem.total"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("samples = %v, want %v", names, want)
	}
	if samples[0].Source != "libvirt.LibvirtDriver" {
		t.Errorf("source = %q", samples[0].Source)
	}
	if len(failures) != 1 || failures[0].Monitor != "cpu.virt_driver" {
		t.Errorf("failures = %+v", failures)
	}
}

func TestComposite_CollectUsesCache(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	src := NewCached("uptime.host", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		calls++
		return map[string]interface{}{"host.uptime.seconds": calls}, nil
	}), WithClock(clock.Now))
	c := NewComposite([]MetricSource{src}, nil)

	c.Collect(context.Background())
	clock.Advance(10 * time.Second)
	samples, _ := c.Collect(context.Background())

	if calls != 1 {
		t.Errorf("measure calls = %d, want 1", calls)
	}
	if samples[0].Value != 1 {
		t.Errorf("value = %v, want cached 1", samples[0].Value)
	}
}

func TestComposite_Empty(t *testing.T) {
	c := NewComposite(nil, nil)
	samples, failures := c.Collect(context.Background())
	if len(samples) != 0 || len(failures) != 0 {
		t.Errorf("Collect() on empty composite = %v, %v", samples, failures)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestComposite_CollectReadsOneSnapshotPerSource(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	// Measuring takes longer than the window, so every per-name read
	// would find the data stale again.
	src := NewCached("disk.host", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		calls++
		clock.Advance(2 * time.Second)
		return map[string]interface{}{
			"disk.root.free":  calls,
			"disk.root.total": calls,
			"disk.root.used":  calls,
		}, nil
	}), WithClock(clock.Now), WithWindow(time.Second))
	c := NewComposite([]MetricSource{src}, nil)

	samples, failures := c.Collect(context.Background())
	if len(failures) != 0 {
		t.Fatalf("failures = %+v", failures)
	}
	if calls != 1 {
		t.Errorf("measure calls in one poll = %d, want 1", calls)
	}
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	for _, s := range samples {
		if !s.Timestamp.Equal(samples[0].Timestamp) {
			t.Errorf("%s timestamp = %v, want %v", s.Name, s.Timestamp, samples[0].Timestamp)
		}
		if s.Value != 1 {
			t.Errorf("%s = %v, want value from the first measurement", s.Name, s.Value)
		}
	}
}

func TestComposite_CollectToleratesVanishedMetric(t *testing.T) {
	clock := newFakeClock()
	readings := []map[string]interface{}{
		{"drive.sda.ssd": "0", "drive.sdb.ssd": "1"},
		{"drive.sdb.ssd": "1"},
	}
	calls := 0
	src := NewCached("ssd.lsblk", MeasureFunc(func(context.Context) (map[string]interface{}, error) {
		r := readings[calls]
		if calls < len(readings)-1 {
			calls++
		}
		clock.Advance(2 * time.Second)
		return r, nil
	}), WithClock(clock.Now), WithWindow(time.Second))
	c := NewComposite([]MetricSource{src}, nil)

	if samples, failures := c.Collect(context.Background()); len(samples) != 2 || len(failures) != 0 {
		t.Fatalf("first poll = %d samples, failures %+v", len(samples), failures)
	}
	samples, failures := c.Collect(context.Background())
	if len(failures) != 0 {
		t.Fatalf("device removal reported as failure: %+v", failures)
	}
	if len(samples) != 1 || samples[0].Name != "drive.sdb.ssd" {
		t.Errorf("samples = %+v, want only drive.sdb.ssd", samples)
	}
}

// plainSource is a MetricSource without a whole-snapshot read.
type plainSource struct {
	values map[string]interface{}
	ts     time.Time
}

func (p plainSource) Name() string { return "uptime.static" }

func (p plainSource) MetricNames(context.Context) ([]string, error) {
	return (&Snapshot{Values: p.values}).Names(), nil
}

func (p plainSource) Metric(_ context.Context, name string) (interface{}, time.Time, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, time.Time{}, ErrUnknownMetric
	}
	return v, p.ts, nil
}

func TestComposite_CollectReadsPlainSourcesByName(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewComposite([]MetricSource{plainSource{
		values: map[string]interface{}{"host.uptime.seconds": 5, "host.boot.time": "x"},
		ts:     ts,
	}}, nil)

	samples, failures := c.Collect(context.Background())
	if len(failures) != 0 || len(samples) != 2 {
		t.Fatalf("Collect() = %+v, %+v", samples, failures)
	}
	if samples[0].Name != "host.boot.time" || !samples[1].Timestamp.Equal(ts) {
		t.Errorf("samples = %+v", samples)
	}
}
