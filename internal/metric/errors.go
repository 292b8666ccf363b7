package metric

import "errors"

// Domain errors for the metric package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, metric.ErrUnknownMetric) {
//	    // report per metric, keep going
//	}
var (
	// ErrUnknownMetric is returned when a metric name is not in the catalog.
	ErrUnknownMetric = errors.New("metric: unknown metric")

	// ErrInvalidDatatype is returned when a datatype is not INTEGER or REAL.
	ErrInvalidDatatype = errors.New("metric: invalid datatype")

	// ErrDatatypeConflict is returned when a metric is re-registered with a
	// datatype different from the one it was first registered with.
	ErrDatatypeConflict = errors.New("metric: datatype conflict")

	// ErrInvalidName is returned for an empty metric name.
	ErrInvalidName = errors.New("metric: invalid name")

	// ErrValueType is returned when a reading's value cannot be stored as
	// the metric's datatype.
	ErrValueType = errors.New("metric: value does not match datatype")

	// ErrStorage wraps read and write failures of the underlying database.
	ErrStorage = errors.New("metric: storage failure")
)
