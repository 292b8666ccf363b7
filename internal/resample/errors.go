package resample

import "errors"

var (
	// ErrOutOfRange is returned under FillRaise when the grid extends past
	// either end of the series.
	ErrOutOfRange = errors.New("resample: grid outside series range")

	// ErrInvalidFill is returned for an unrecognised fill policy name.
	ErrInvalidFill = errors.New("resample: invalid fill policy")

	// ErrInvalidFrequency is returned for a non-positive grid step.
	ErrInvalidFrequency = errors.New("resample: frequency must be positive")

	// ErrUnsorted is returned when series timestamps are not strictly increasing.
	ErrUnsorted = errors.New("resample: series not strictly increasing")

	// ErrTooManyPoints is returned when the grid would exceed MaxPoints.
	ErrTooManyPoints = errors.New("resample: grid too large")
)
