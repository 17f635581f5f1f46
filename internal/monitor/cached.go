package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/telemetry"
)

// DefaultWindow is the freshness window used when none is configured.
const DefaultWindow = 30 * time.Second

// Cached is a MetricSource that serves the last snapshot until it is older
// than the freshness window, then re-measures through its Measurer.
//
// A failed measurement leaves the previous snapshot in place and returns the
// error. The next call tries again because the snapshot is still stale,
// unless a retry backoff is set.
type Cached struct {
	name     string
	source   string
	measurer Measurer
	window   time.Duration
	backoff  time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	// mu serialises check-staleness, measure and read.
	mu   sync.Mutex
	snap *Snapshot
	// measuredAt is the raw clock reading behind snap. It keeps the
	// monotonic reading that snap.Timestamp drops.
	measuredAt time.Time
	// attemptAt and lastErr describe the last failed measurement.
	attemptAt time.Time
	lastErr   error
}

// CachedOption configures a Cached source.
type CachedOption func(*Cached)

// WithWindow sets the freshness window.
func WithWindow(d time.Duration) CachedOption {
	return func(c *Cached) { c.window = d }
}

// WithRetryBackoff makes a failed measurement answer every call within d
// with the same error instead of measuring again. Zero retries on the next call.
func WithRetryBackoff(d time.Duration) CachedOption {
	return func(c *Cached) { c.backoff = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CachedOption {
	return func(c *Cached) { c.now = now }
}

// WithLogger sets the logger used for refresh failures and snapshot debug output.
func WithLogger(l *zap.Logger) CachedOption {
	return func(c *Cached) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTelemetry records refresh outcomes in m.
func WithTelemetry(m *telemetry.Metrics) CachedOption {
	return func(c *Cached) { c.metrics = m }
}

// WithSource records the compute driver the monitor reads from.
func WithSource(source string) CachedOption {
	return func(c *Cached) { c.source = source }
}

// NewCached wraps m. The source starts stale: the first call measures.
func NewCached(name string, m Measurer, opts ...CachedOption) *Cached {
	c := &Cached{
		name:     name,
		measurer: m,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the monitor name.
func (c *Cached) Name() string { return c.name }

// Source returns the compute driver name the monitor was built against.
func (c *Cached) Source() string { return c.source }

// MetricNames returns every cached metric name, refreshing first if stale.
func (c *Cached) MetricNames(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.snap.Names(), nil
}

// Metric returns the cached value of name and the snapshot timestamp,
// refreshing first if stale.
func (c *Cached) Metric(ctx context.Context, name string) (interface{}, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return nil, time.Time{}, err
	}
	v, ok := c.snap.Values[name]
	if !ok || name == TimestampKey {
		return nil, time.Time{}, errors.Wrapf(ErrUnknownMetric, "monitor %s: %q", c.name, name)
	}
	return v, c.snap.Timestamp, nil
}

// Read refreshes the monitor if stale and returns the whole snapshot, so
// every value a caller reads shares one timestamp. The returned value must
// not be modified.
func (c *Cached) Read(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.snap, nil
}

// Snapshot returns the last successful snapshot without refreshing, or nil.
// The returned value must not be modified.
func (c *Cached) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Close releases the measurer if it holds resources.
func (c *Cached) Close() error {
	if closer, ok := c.measurer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Cached) refreshLocked(ctx context.Context) error {
	now := c.now()
	if c.snap != nil && within(now.Sub(c.measuredAt), c.window) {
		c.metrics.ObserveRefresh(c.name, telemetry.OutcomeCached, 0)
		return nil
	}
	if c.lastErr != nil && c.backoff > 0 && within(now.Sub(c.attemptAt), c.backoff) {
		c.metrics.ObserveRefresh(c.name, telemetry.OutcomeBackoff, 0)
		return c.lastErr
	}

	start := time.Now()
	values, err := c.measurer.Measure(ctx)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRefresh(c.name, telemetry.OutcomeFailed, elapsed)
		err = c.wrap(err)
		c.attemptAt, c.lastErr = now, err
		c.logger.Warn("Monitor refresh failed",
			zap.String("monitor", c.name),
			zap.Bool("has_previous", c.snap != nil),
			zap.Error(err))
		return err
	}
	c.metrics.ObserveRefresh(c.name, telemetry.OutcomeMeasured, elapsed)

	snap := &Snapshot{
		Values:    make(map[string]interface{}, len(values)),
		Timestamp: now.UTC(),
	}
	for k, v := range values {
		if k == TimestampKey {
			continue
		}
		snap.Values[k] = v
	}
	c.snap = snap
	c.measuredAt = now
	c.lastErr = nil

	c.logger.Debug("Monitor refreshed",
		zap.String("monitor", c.name),
		zap.Int("metrics", len(snap.Values)),
		zap.Any("values", snap.Values),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (c *Cached) wrap(err error) error {
	if errors.Is(err, ErrInvalidShape) {
		return &ResourceMonitorError{Monitor: c.name, Err: err}
	}
	return errors.Wrapf(err, "monitor %s", c.name)
}

// within reports whether age falls in [0, limit]. A negative age means the
// wall clock stepped backwards, which counts as expired.
func within(age, limit time.Duration) bool {
	return age >= 0 && age <= limit
}
