// Package scheduler implements a tick-based periodic collection scheduler.
// Each tick polls every active monitor once and hands the resulting batch to
// a callback. The scheduler does NOT write or send data itself.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/models"
)

// Collector is what the scheduler polls. *monitor.Composite satisfies it.
type Collector interface {
	Collect(ctx context.Context) ([]models.Sample, []models.Failure)
}

// Config holds the scheduler timings.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	Hostname string
}

// Scheduler manages periodic metric collection.
type Scheduler struct {
	collector Collector
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time

	onBatchReady func(models.Batch)
}

// New creates a new Scheduler polling collector.
func New(collector Collector, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		collector: collector,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// OnBatchReady sets the callback invoked after every poll cycle.
func (s *Scheduler) OnBatchReady(fn func(models.Batch)) {
	s.onBatchReady = fn
}

// Start polls immediately and then on every interval. It blocks until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	batch := s.CollectOnce(ctx)
	if ctx.Err() != nil {
		// Shutting down mid-cycle; the batch is incomplete.
		return
	}
	if s.onBatchReady != nil {
		s.onBatchReady(batch)
	}
}

// CollectOnce runs a single poll cycle bounded by the configured timeout.
func (s *Scheduler) CollectOnce(ctx context.Context) models.Batch {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := s.now()
	samples, failures := s.collector.Collect(ctx)
	for _, f := range failures {
		s.logger.Warn("Monitor poll failed",
			zap.String("monitor", f.Monitor),
			zap.String("error", f.Error))
	}

	s.logger.Debug("Collected metrics",
		zap.Int("samples", len(samples)),
		zap.Int("failures", len(failures)),
		zap.Duration("elapsed", s.now().Sub(start)))

	if samples == nil {
		samples = []models.Sample{}
	}
	return models.Batch{
		Hostname:    s.cfg.Hostname,
		CollectedAt: start.UTC(),
		Samples:     samples,
		Failures:    failures,
	}
}
