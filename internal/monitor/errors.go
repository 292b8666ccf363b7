package monitor

import "errors"

// Domain errors for the monitor package.
var (
	// ErrInvalidInterval is returned when the sampling interval is not positive.
	ErrInvalidInterval = errors.New("invalid sampling interval")

	// ErrAlreadyRunning is returned by Continuous.Run when the loop is
	// already started.
	ErrAlreadyRunning = errors.New("monitor already running")

	// ErrSinkFailed wraps a sink write failure.
	ErrSinkFailed = errors.New("sink write failed")
)
