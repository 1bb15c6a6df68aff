package health

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Status values reported for a run and for each check.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports the health of one dependency.
// db.Healthcheck, redis.Healthcheck and Resolver.HealthCheck all match it.
type CheckFunc func(ctx context.Context) error

// Checks maps check names to functions.
type Checks map[string]CheckFunc

// Response is the aggregated result of a run.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the result of one check.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Err returns ErrCheckFailed when the response is unhealthy.
func (r *Response) Err() error {
	if r.Status == StatusUnhealthy {
		return ErrCheckFailed
	}
	return nil
}

// Run executes checks concurrently under a shared deadline.
// A failed critical check makes the run unhealthy; a failed optional check
// makes it degraded. Checks still running at the deadline are reported as
// ErrCheckTimeout.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return run(ctx, checks, o)
}

func run(ctx context.Context, checks Checks, o *options) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
		status  = StatusHealthy
	)

	// Check errors are collected rather than returned so one failure does not
	// cancel the others.
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			err := call(ctx, check)
			res := Check{Status: StatusHealthy, Optional: o.optional[name]}

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				res.Error = err.Error()
				if res.Optional {
					res.Status = StatusDegraded
					if status == StatusHealthy {
						status = StatusDegraded
					}
				} else {
					res.Status = StatusUnhealthy
					status = StatusUnhealthy
				}
				o.logger.WarnContext(ctx, "health check failed",
					"check", name,
					"optional", res.Optional,
					"error", err,
				)
			}
			results[name] = res
			return nil
		})
	}
	_ = g.Wait()

	return &Response{Status: status, Checks: results}
}

// call runs check and stops waiting for it once ctx is done.
func call(ctx context.Context, check CheckFunc) error {
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return errors.Join(ErrCheckTimeout, err)
		}
		return err
	case <-ctx.Done():
		return errors.Join(ErrCheckTimeout, ctx.Err())
	}
}
