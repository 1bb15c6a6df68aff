package health

import "errors"

var (
	// ErrCheckFailed is returned when one or more critical checks fail.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is reported for a check still running at the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")
)
