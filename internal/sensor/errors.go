package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrReadFailed wraps any failure returned by a field's ReadFunc.
	ErrReadFailed = errors.New("sensor: read failed")

	// ErrUnknownField is returned when a descriptor names a field the
	// device does not provide.
	ErrUnknownField = errors.New("sensor: unknown field")

	// ErrInvalidDescriptor is returned for malformed sensor descriptors.
	ErrInvalidDescriptor = errors.New("sensor: invalid descriptor")

	// ErrUnknownDriver is returned when configuration names a driver that
	// is not registered.
	ErrUnknownDriver = errors.New("sensor: unknown driver")
)
