// Package metric stores named, typed time series of scalar sensor readings.
//
// A metric is registered once in a catalog with its kind, unit and
// datatype (INTEGER or REAL). Readings are keyed by (metric, second) and
// are written as they arrive from the sampling scheduler. Range reads
// return a Series ordered by time, ready for resampling.
//
// The SQLite schema is two fixed tables (see the migrations package):
//
//	metrics(id, name UNIQUE, kind, unit, datatype)
//	readings(metric_id, date_time, value, PRIMARY KEY(metric_id, date_time))
//
// Timestamps are stored as "YYYY-MM-DD HH:MM:SS" in UTC.
package metric
