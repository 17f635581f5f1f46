package monitor

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/hostmon/internal/models"
)

const defaultConcurrency = 4

// Composite is the ordered set of active monitors handed to the scheduler.
type Composite struct {
	sources     []MetricSource
	concurrency int
	logger      *zap.Logger
}

func newComposite(sources []MetricSource, concurrency int, logger *zap.Logger) *Composite {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Composite{
		sources:     sources,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewComposite wraps sources that were built without a Registry.
func NewComposite(sources []MetricSource, logger *zap.Logger) *Composite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newComposite(sources, defaultConcurrency, logger)
}

// Sources returns a copy of the active monitors in activation order.
func (c *Composite) Sources() []MetricSource {
	out := make([]MetricSource, len(c.sources))
	copy(out, c.sources)
	return out
}

// Len returns the number of active monitors.
func (c *Composite) Len() int { return len(c.sources) }

// Names returns the monitor names in activation order.
func (c *Composite) Names() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

type collected struct {
	samples []models.Sample
	failure *models.Failure
}

// Collect reads every metric of every monitor. Monitors are independent, so
// they are read concurrently; a failing monitor does not affect the others.
// Samples keep activation order, and within a monitor are sorted by name.
func (c *Composite) Collect(ctx context.Context) ([]models.Sample, []models.Failure) {
	results := make([]collected, len(c.sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, s := range c.sources {
		i, s := i, s
		g.Go(func() error {
			results[i] = readSource(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	var samples []models.Sample
	var failures []models.Failure
	for _, r := range results {
		samples = append(samples, r.samples...)
		if r.failure != nil {
			failures = append(failures, *r.failure)
		}
	}
	return samples, failures
}

// snapshotReader is implemented by sources that can return all their
// values from one measurement in a single call. *Cached implements it.
type snapshotReader interface {
	Read(ctx context.Context) (*Snapshot, error)
}

func readSource(ctx context.Context, s MetricSource) collected {
	var source string
	if ds, ok := s.(interface{ Source() string }); ok {
		source = ds.Source()
	}

	if r, ok := s.(snapshotReader); ok {
		snap, err := r.Read(ctx)
		if err != nil {
			return collected{failure: &models.Failure{Monitor: s.Name(), Error: err.Error()}}
		}
		names := snap.Names()
		out := collected{samples: make([]models.Sample, 0, len(names))}
		for _, name := range names {
			out.samples = append(out.samples, models.Sample{
				Monitor:   s.Name(),
				Source:    source,
				Name:      name,
				Value:     snap.Values[name],
				Timestamp: snap.Timestamp,
			})
		}
		return out
	}

	names, err := s.MetricNames(ctx)
	if err != nil {
		return collected{failure: &models.Failure{Monitor: s.Name(), Error: err.Error()}}
	}

	out := collected{samples: make([]models.Sample, 0, len(names))}
	for _, name := range names {
		v, ts, err := s.Metric(ctx, name)
		if err != nil {
			out.failure = &models.Failure{Monitor: s.Name(), Error: err.Error()}
			break
		}
		out.samples = append(out.samples, models.Sample{
			Monitor:   s.Name(),
			Source:    source,
			Name:      name,
			Value:     v,
			Timestamp: ts,
		})
	}
	return out
}

// Close releases every monitor that holds resources.
func (c *Composite) Close() error {
	var err error
	for _, s := range c.sources {
		closer, ok := s.(interface{ Close() error })
		if !ok {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			c.logger.Warn("Closing monitor failed", zap.String("monitor", s.Name()), zap.Error(cerr))
			err = errors.CombineErrors(err, cerr)
		}
	}
	return err
}
