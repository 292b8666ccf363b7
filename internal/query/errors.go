package query

import "errors"

var (
	// ErrNoMetrics is returned when a stream request names no metric.
	ErrNoMetrics = errors.New("query: no metrics requested")

	// ErrInvalidRange is returned when end is before start.
	ErrInvalidRange = errors.New("query: end before start")

	// ErrAllFailed is returned when none of the requested metrics could be read.
	ErrAllFailed = errors.New("query: every requested metric failed")
)
