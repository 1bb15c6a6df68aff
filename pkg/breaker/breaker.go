package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the circuit state.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Breaker isolates callers from a failing dependency.
//
// Closed counts consecutive failures and opens the circuit when the count
// reaches FailureThreshold. Open rejects every call with ErrOpen until
// OpenTimeout has elapsed; the first call after that moves the circuit to
// HalfOpen. HalfOpen admits at most HalfOpenMaxCalls concurrent trials:
// SuccessThreshold consecutive trial successes close the circuit, a single
// trial failure opens it again.
//
// Each transition starts a new generation. Outcomes of calls admitted under an
// older generation are counted in totals but do not move the state machine.
type Breaker struct {
	opts *options
	cfg  Config

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int // consecutive, Closed
	successes  int // consecutive, HalfOpen
	trials     int // in flight, HalfOpen
	openedAt   time.Time

	requests    uint64
	succeeded   uint64
	failed      uint64
	rejected    uint64
	transitions uint64
}

// New creates a breaker in the Closed state.
// Non-positive Config fields fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Breaker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Breaker{
		opts:  o,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.opts.name
}

// Do runs fn if the circuit admits the call.
//
// Rejected calls return ErrOpen or ErrTooManyTrialCalls without running fn.
// Otherwise the error from fn is returned unchanged after its outcome is recorded.
// A panic in fn is recorded as a failure and re-raised.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	gen, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(gen, fmt.Errorf("breaker: operation panicked: %v", r))
			panic(r)
		}
	}()

	err = fn(ctx)
	b.record(gen, err)
	return err
}

// Call runs fn through b and returns its value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// admit decides whether a call may run and returns the generation it belongs to.
func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()

	var notify func()
	now := b.opts.now()

	if b.state == StateOpen {
		if now.Sub(b.openedAt) < b.cfg.OpenTimeout {
			b.rejected++
			b.mu.Unlock()
			return 0, ErrOpen
		}
		notify = b.setState(StateHalfOpen, now)
	}

	if b.state == StateHalfOpen {
		if b.trials >= b.cfg.HalfOpenMaxCalls {
			b.rejected++
			b.mu.Unlock()
			fire(notify)
			return 0, ErrTooManyTrialCalls
		}
		b.trials++
	}

	b.requests++
	gen := b.generation
	b.mu.Unlock()

	fire(notify)
	return gen, nil
}

// record applies the outcome of a call admitted under generation gen.
func (b *Breaker) record(gen uint64, err error) {
	b.mu.Lock()

	if errors.Is(err, context.Canceled) {
		if gen == b.generation && b.state == StateHalfOpen {
			b.trials--
		}
		b.mu.Unlock()
		return
	}

	failure := err != nil && b.opts.isFailure(err)
	if failure {
		b.failed++
	} else {
		b.succeeded++
	}

	if gen != b.generation {
		b.mu.Unlock()
		return
	}

	var notify func()
	now := b.opts.now()

	switch b.state {
	case StateClosed:
		if failure {
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				notify = b.setState(StateOpen, now)
			}
		} else {
			b.failures = 0
		}
	case StateHalfOpen:
		b.trials--
		if failure {
			notify = b.setState(StateOpen, now)
		} else {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				notify = b.setState(StateClosed, now)
			}
		}
	}

	b.mu.Unlock()
	fire(notify)
}

// setState moves to a new generation in state to and resets the counters.
// Caller must hold the mutex. The returned func reports the transition and
// must be called after the mutex is released.
func (b *Breaker) setState(to State, now time.Time) func() {
	from := b.state
	b.state = to
	b.generation++
	b.failures = 0
	b.successes = 0
	b.trials = 0
	b.transitions++
	if to == StateOpen {
		b.openedAt = now
	}

	name := b.opts.name
	return func() {
		b.opts.logger.Info("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
		if b.opts.onStateChange != nil {
			b.opts.onStateChange(name, from, to)
		}
	}
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

// State returns the current state.
// An open circuit whose timeout has elapsed is still reported as open until
// the next call moves it to half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ForceOpen opens the circuit immediately, as if the failure threshold was hit.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	notify := b.setState(StateOpen, b.opts.now())
	b.mu.Unlock()
	fire(notify)
}

// Reset closes the circuit and clears the consecutive counters.
// Totals are kept.
func (b *Breaker) Reset() {
	b.mu.Lock()
	notify := b.setState(StateClosed, b.opts.now())
	b.mu.Unlock()
	fire(notify)
}
