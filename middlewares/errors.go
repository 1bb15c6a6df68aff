package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// PanicError is a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte // nil when stack capture is disabled
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// TimeoutError is reported when a request exceeds its deadline.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

// ErrorHandler writes the response for an error raised by a middleware.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// StatusCode maps middleware and tenant errors to HTTP status codes.
func StatusCode(err error) int {
	var (
		pe *PanicError
		te *TimeoutError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &pe):
		return http.StatusInternalServerError
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	case errors.Is(err, tenant.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, tenant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tenant.ErrInactive):
		return http.StatusForbidden
	case errors.Is(err, tenant.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// DefaultErrorHandler answers with StatusCode(err) and a JSON body carrying
// the status text. Error details are never exposed to the client.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	code := StatusCode(err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: http.StatusText(code)})
}
