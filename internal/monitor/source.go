// Package monitor implements the resource monitor core: the MetricSource
// contract, the time-windowed refresh cache every source uses, and the
// registry that picks one active monitor per category.
package monitor

import (
	"context"
	"sort"
	"time"
)

// TimestampKey is never reported as a metric name.
const TimestampKey = "timestamp"

// MetricSource is implemented by every active monitor.
type MetricSource interface {
	// Name identifies the monitor in logs and errors.
	Name() string
	// MetricNames refreshes the monitor if its data is stale and returns
	// the names currently cached.
	MetricNames(ctx context.Context) ([]string, error)
	// Metric refreshes the monitor if its data is stale and returns the
	// cached value for name with the snapshot timestamp.
	Metric(ctx context.Context, name string) (interface{}, time.Time, error)
}

// Measurer performs the expensive measurement behind a monitor. Each call
// returns a complete, fresh set of values.
type Measurer interface {
	Measure(ctx context.Context) (map[string]interface{}, error)
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(ctx context.Context) (map[string]interface{}, error)

// Measure calls f.
func (f MeasureFunc) Measure(ctx context.Context) (map[string]interface{}, error) {
	return f(ctx)
}

// Snapshot is one measurement: all values share Timestamp.
type Snapshot struct {
	Values    map[string]interface{}
	Timestamp time.Time
}

// Names returns the metric names in the snapshot, sorted.
func (s *Snapshot) Names() []string {
	if s == nil {
		return []string{}
	}
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		if name == TimestampKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
