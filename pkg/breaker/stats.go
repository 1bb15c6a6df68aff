package breaker

import "time"

// Stats is a point-in-time snapshot of a breaker.
type Stats struct {
	OpenedAt             time.Time
	Name                 string
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	HalfOpenCalls        int
	Requests             uint64
	Successes            uint64
	Failures             uint64
	Rejections           uint64
	Transitions          uint64
}

// SuccessRate returns successes / (successes + failures), or 1 when no call completed.
func (s Stats) SuccessRate() float64 {
	total := s.Successes + s.Failures
	if total == 0 {
		return 1
	}
	return float64(s.Successes) / float64(total)
}

// RejectionRate returns rejections / (requests + rejections), or 0 when idle.
func (s Stats) RejectionRate() float64 {
	total := s.Requests + s.Rejections
	if total == 0 {
		return 0
	}
	return float64(s.Rejections) / float64(total)
}

// Stats returns a snapshot of the breaker counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:                 b.opts.name,
		State:                b.state,
		OpenedAt:             b.openedAt,
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		HalfOpenCalls:        b.trials,
		Requests:             b.requests,
		Successes:            b.succeeded,
		Failures:             b.failed,
		Rejections:           b.rejected,
		Transitions:          b.transitions,
	}
}
