// Package sensor holds the readers attached to the sampling scheduler.
//
// A Device is a physical or simulated sensor board. It publishes a fixed
// table of readable fields, each with a ReadFunc and the datatype its
// values have. The Registry pairs a device with the sensor descriptors
// from configuration and resolves every descriptor's field against the
// table at attach time, so an unknown field is a configuration error
// reported before the first pass rather than a failure during one.
//
// Concrete devices live in the drivers subpackage.
package sensor
