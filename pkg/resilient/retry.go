package resilient

import (
	"context"
	"time"
)

// Strategy selects how the delay between attempts grows.
type Strategy int

const (
	// Fixed waits BaseDelay between attempts.
	Fixed Strategy = iota
	// Linear waits BaseDelay * n after the n-th failed attempt.
	Linear
	// Exponential waits BaseDelay * 2^n after the n-th failed attempt.
	Exponential
)

// RetryPolicy controls re-running a failed operation.
type RetryPolicy struct {
	// Retryable reports whether an error is worth another attempt.
	// Nil retries every failure.
	Retryable func(error) bool

	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int

	Strategy  Strategy
	BaseDelay time.Duration

	// MaxDelay caps Linear and Exponential delays. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns three attempts with exponential backoff
// starting at 100ms and capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Strategy:    Exponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Delay returns how long to wait after the given number of failed attempts.
func (p RetryPolicy) Delay(failed int) time.Duration {
	var d time.Duration
	switch p.Strategy {
	case Linear:
		d = p.BaseDelay * time.Duration(failed)
	case Exponential:
		d = p.BaseDelay
		for range failed {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				break
			}
		}
	default:
		return p.BaseDelay
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func (p RetryPolicy) retryable(err error) bool {
	return p.Retryable == nil || p.Retryable(err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
