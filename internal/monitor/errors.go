package monitor

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Registry exclusion reasons. They describe policy outcomes and are only
// reported through Exclusion values and warnings, never returned from Build.
var (
	ErrExcludedByDuplicate     = errors.New("category already has an active monitor")
	ErrExcludedByConfiguration = errors.New("not in the list of enabled monitors")
	ErrMalformedNamespace      = errors.New("malformed monitor namespace")
	ErrFactory                 = errors.New("monitor factory failed")
)

// Measurement errors.
var (
	// ErrUnknownMetric is returned by Metric for a name the monitor never produced.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrExtraction marks a data source that returned an unusable result,
	// e.g. a command that wrote to stderr.
	ErrExtraction = errors.New("unable to extract measurement")

	// ErrInvalidShape marks a result that parsed but is missing a field,
	// has the wrong type or fails a lookup. Cached turns it into a
	// *ResourceMonitorError.
	ErrInvalidShape = errors.New("unexpected measurement shape")
)

// ResourceMonitorError reports a measurement that failed validation.
type ResourceMonitorError struct {
	Monitor string
	Err     error
}

func (e *ResourceMonitorError) Error() string {
	return fmt.Sprintf("resource monitor %s: not all properties needed are available: %v", e.Monitor, e.Err)
}

func (e *ResourceMonitorError) Unwrap() error { return e.Err }

// Shapef builds an ErrInvalidShape error for use inside Measure.
func Shapef(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidShape, format, args...)
}

// Extractionf builds an ErrExtraction error for use inside Measure.
func Extractionf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrExtraction, format, args...)
}
