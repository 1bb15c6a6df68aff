package resilient

import "errors"

// ErrTimeout is returned when a single attempt exceeds the per-attempt timeout.
// It is joined with context.DeadlineExceeded.
var ErrTimeout = errors.New("resilient: attempt timed out")
