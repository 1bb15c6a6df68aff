package metrics

import "errors"

// ErrAlreadyRegistered is returned when a snapshot collector with the same
// name is registered twice.
var ErrAlreadyRegistered = errors.New("metrics: collector already registered")
