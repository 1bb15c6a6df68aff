package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache is a string-keyed value store with TTL support.
// Memory (instantiated with string keys) and Redis both implement it, which
// lets the resilient caller keep its last-known-good values in either.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL
//   - Negative: item never expires
type Cache[V any] interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Has reports whether a key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error
}

// LoadFunc produces the value for a missing key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// LoadTTLFunc produces the value for a missing key together with the TTL to
// store it with. TTL semantics are those of Set.
type LoadTTLFunc[V any] func(ctx context.Context) (V, time.Duration, error)

// Marshaler converts values to bytes for byte-oriented backends such as Redis.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// JSON returns the default JSON marshaler.
func JSON[V any]() Marshaler[V] {
	return jsonMarshaler[V]{}
}
