package monitor

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/host"
	"github.com/Guliveer/hostmon/internal/telemetry"
)

// Factory builds the measurement side of a monitor from the shared host.
type Factory func(h *host.Host) (Measurer, error)

// Descriptor identifies one candidate monitor implementation.
type Descriptor struct {
	// Name is the short plugin name, e.g. "virt_driver".
	Name string
	// Namespace is "<root>.<category>.<variant>".
	Namespace   string
	Description string
	Factory     Factory
}

// Exclusion records why a candidate did not activate.
type Exclusion struct {
	Descriptor Descriptor
	Category   string
	// Winner is the plugin already holding the category, for duplicates.
	Winner string
	Reason error
}

// Config is the explicit registry configuration.
type Config struct {
	Enabled         []string
	FreshnessWindow time.Duration
	// RetryBackoff is how long a failed measurement is reported again
	// before the source measures anew. Zero retries on every call.
	RetryBackoff time.Duration
	Metrics      *telemetry.Metrics
	// Now overrides the clock handed to every source. Nil means time.Now.
	Now func() time.Time
	// Concurrency caps how many sources Composite.Collect reads at once.
	Concurrency int
}

// Registry turns candidate descriptors and the enabled list into the set of
// active monitors.
type Registry struct {
	cfg     Config
	enabled EnabledSet
	logger  *zap.Logger
}

// NewRegistry creates a registry.
func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:     cfg,
		enabled: NewEnabledSet(cfg.Enabled),
		logger:  logger,
	}
}

// Enabled returns the normalised enabled list.
func (r *Registry) Enabled() EnabledSet { return r.enabled }

// Build evaluates candidates in the order given and instantiates every
// winner with h. The first enabled candidate of a category wins; later ones
// are excluded whatever the configuration says. Exclusions are logged and
// returned, never treated as errors.
func (r *Registry) Build(candidates []Descriptor, h *host.Host) (*Composite, []Exclusion) {
	a := newActivation(r.enabled, r.logger)
	sources := make([]MetricSource, 0, len(candidates))

	for _, d := range candidates {
		if !a.evaluate(d) {
			continue
		}
		category, variant, _ := ParseNamespace(d.Namespace)

		if d.Factory == nil {
			a.exclude(d, category, "", errors.Wrapf(ErrFactory, "%s has no factory", d.Name))
			continue
		}
		m, err := d.Factory(h)
		if err != nil {
			// The category stays claimed: a broken winner does not promote
			// the next variant.
			a.exclude(d, category, "", errors.Mark(errors.Wrapf(err, "building %s", d.Name), ErrFactory))
			continue
		}

		sources = append(sources, NewCached(category+"."+variant, m,
			WithWindow(r.cfg.FreshnessWindow),
			WithRetryBackoff(r.cfg.RetryBackoff),
			WithClock(r.cfg.Now),
			WithLogger(r.logger),
			WithTelemetry(r.cfg.Metrics),
			WithSource(h.ComputeDriver()),
		))
		r.logger.Info("Activated monitor",
			zap.String("category", category),
			zap.String("monitor", d.Name),
			zap.String("namespace", d.Namespace))
	}

	for _, e := range a.excluded {
		r.cfg.Metrics.ObserveExclusion(e.Category, reasonLabel(e.Reason))
	}
	r.cfg.Metrics.SetActive(len(sources))

	return newComposite(sources, r.cfg.Concurrency, r.logger), a.excluded
}

// activation is the per-build record of which plugin holds each category.
type activation struct {
	enabled  EnabledSet
	loaded   map[string]string
	excluded []Exclusion
	logger   *zap.Logger
}

func newActivation(enabled EnabledSet, logger *zap.Logger) *activation {
	return &activation{
		enabled: enabled,
		loaded:  make(map[string]string),
		logger:  logger,
	}
}

// evaluate decides whether d may activate and claims its category if so.
func (a *activation) evaluate(d Descriptor) bool {
	category, variant, err := ParseNamespace(d.Namespace)
	if err != nil {
		a.exclude(d, "", "", err)
		return false
	}
	if winner, ok := a.loaded[category]; ok {
		a.exclude(d, category, winner, ErrExcludedByDuplicate)
		return false
	}
	if a.enabled.Allows(category, variant) {
		a.loaded[category] = d.Name
		return true
	}
	a.exclude(d, category, "", ErrExcludedByConfiguration)
	return false
}

func (a *activation) exclude(d Descriptor, category, winner string, reason error) {
	a.excluded = append(a.excluded, Exclusion{
		Descriptor: d,
		Category:   category,
		Winner:     winner,
		Reason:     reason,
	})

	fields := []zap.Field{
		zap.String("category", category),
		zap.String("monitor", d.Name),
		zap.String("namespace", d.Namespace),
	}
	switch {
	case errors.Is(reason, ErrExcludedByDuplicate):
		a.logger.Warn("Excluding monitor, category already loaded",
			append(fields, zap.String("loaded", winner))...)
	case errors.Is(reason, ErrExcludedByConfiguration):
		a.logger.Warn("Excluding monitor, not in the list of enabled monitors",
			append(fields, zap.Strings("enabled", a.enabled.Strings()))...)
	default:
		a.logger.Warn("Excluding monitor", append(fields, zap.Error(reason))...)
	}
}

func reasonLabel(reason error) string {
	switch {
	case errors.Is(reason, ErrExcludedByDuplicate):
		return "duplicate"
	case errors.Is(reason, ErrExcludedByConfiguration):
		return "not_enabled"
	case errors.Is(reason, ErrMalformedNamespace):
		return "malformed"
	default:
		return "factory"
	}
}
