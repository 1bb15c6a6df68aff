package tenant

import "errors"

var (
	// ErrNotFound is returned when no tenant matches the identifier.
	// It is never cached and never counted as a dependency failure.
	ErrNotFound = errors.New("tenant: not found")

	// ErrUnavailable is returned when the store is isolated by the circuit breaker.
	ErrUnavailable = errors.New("tenant: store unavailable")

	// ErrBackend wraps store failures. The cause is joined to it.
	ErrBackend = errors.New("tenant: store failure")

	// ErrInvalidIdentifier is returned for malformed slugs, hosts and ids.
	ErrInvalidIdentifier = errors.New("tenant: invalid identifier")

	// ErrInactive is returned for disabled tenants when the resolver rejects them.
	ErrInactive = errors.New("tenant: inactive")
)
