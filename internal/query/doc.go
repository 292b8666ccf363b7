// Package query answers read requests against the metric store.
//
// Service lists the available streams and returns the readings of one
// or more metrics over a time range, optionally resampled onto a
// regular grid. Each requested metric is resolved independently: an
// unknown metric is reported in the result's failures and the others
// are still returned.
package query
