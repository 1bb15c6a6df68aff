package breaker

import "errors"

var (
	// ErrOpen is returned without running the operation while the circuit is open.
	ErrOpen = errors.New("breaker: circuit open")

	// ErrTooManyTrialCalls is returned when the half-open trial slots are all taken.
	ErrTooManyTrialCalls = errors.New("breaker: too many trial calls")
)

// IsRejection reports whether err means the breaker refused to run the operation.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyTrialCalls)
}
