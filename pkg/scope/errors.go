package scope

import "errors"

var (
	// ErrNoScope is returned when the context carries no request scope.
	ErrNoScope = errors.New("scope: no request scope in context")

	// ErrUnknownKind is returned for an entity kind that was never registered.
	ErrUnknownKind = errors.New("scope: unknown entity kind")

	// ErrKindMismatch is returned when a kind is loaded with key or value
	// types other than the ones it was registered with.
	ErrKindMismatch = errors.New("scope: entity kind type mismatch")
)
