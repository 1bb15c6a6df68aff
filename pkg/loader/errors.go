package loader

import "errors"

var (
	// ErrReused is the panic value when a loader is used after Close.
	// Loaders live for one request; reusing one is a programming error.
	ErrReused = errors.New("loader: used after close")

	// ErrBatchPanic is returned to every key of a batch whose function panicked.
	ErrBatchPanic = errors.New("loader: batch function panicked")
)
