package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/resilient"
)

// Collector exports breaker, cache, caller and loader telemetry.
// Event metrics (transitions, batches) are pushed through hooks; counters
// already kept by the components are read on scrape. A nil *Collector is a
// valid no-op sink.
type Collector struct {
	reg  prometheus.Registerer
	opts *options

	transitions   *prometheus.CounterVec
	batchSize     *prometheus.HistogramVec
	batchDuration *prometheus.HistogramVec
	batchErrors   *prometheus.CounterVec
}

// New creates a collector on reg, or on the default registerer when reg is nil.
// It panics if its metrics are already registered on reg.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	b := breaker.New(cfg, breaker.WithOnStateChange(m.OnStateChange))
//	_ = m.RegisterBreaker(b)
//	l := loader.New(ctx, fetch, loader.WithObserver(m))
func New(reg prometheus.Registerer, opts ...Option) *Collector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		reg:  reg,
		opts: o,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: o.namespace,
				Subsystem: "breaker",
				Name:      "transitions_total",
				Help:      "Circuit breaker state transitions.",
			},
			[]string{"breaker", "from", "to"},
		),
		batchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: o.namespace,
				Subsystem: "loader",
				Name:      "batch_size",
				Help:      "Number of distinct keys per batch call.",
				Buckets:   o.sizeBuckets,
			},
			[]string{"loader"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: o.namespace,
				Subsystem: "loader",
				Name:      "batch_duration_seconds",
				Help:      "Duration of batch calls in seconds.",
				Buckets:   o.durationBuckets,
			},
			[]string{"loader"},
		),
		batchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: o.namespace,
				Subsystem: "loader",
				Name:      "batch_errors_total",
				Help:      "Batch calls that returned an error.",
			},
			[]string{"loader"},
		),
	}
}

// OnStateChange counts a breaker transition.
// Its signature matches breaker.WithOnStateChange.
func (c *Collector) OnStateChange(name string, from, to breaker.State) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// ObserveBatch records one loader batch. It implements loader.Observer.
func (c *Collector) ObserveBatch(name string, size int, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.batchSize.WithLabelValues(name).Observe(float64(size))
	c.batchDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		c.batchErrors.WithLabelValues(name).Inc()
	}
}

// RegisterBreaker exports the counters and current state of b, labelled
// with its name.
func (c *Collector) RegisterBreaker(b *breaker.Breaker) error {
	if c == nil || b == nil {
		return nil
	}

	labels := prometheus.Labels{"breaker": b.Name()}
	state := c.desc("breaker", "state", "Current breaker state, 1 for the active one.", labels, "state")
	requests := c.desc("breaker", "requests_total", "Calls admitted by the breaker.", labels)
	successes := c.desc("breaker", "successes_total", "Admitted calls that succeeded.", labels)
	failures := c.desc("breaker", "failures_total", "Admitted calls that failed.", labels)
	rejections := c.desc("breaker", "rejections_total", "Calls rejected without running.", labels)

	return c.register(&snapshotCollector{
		descs: []*prometheus.Desc{state, requests, successes, failures, rejections},
		collect: func(ch chan<- prometheus.Metric) {
			s := b.Stats()
			for _, st := range []breaker.State{breaker.StateClosed, breaker.StateOpen, breaker.StateHalfOpen} {
				v := 0.0
				if s.State == st {
					v = 1
				}
				ch <- prometheus.MustNewConstMetric(state, prometheus.GaugeValue, v, st.String())
			}
			ch <- prometheus.MustNewConstMetric(requests, prometheus.CounterValue, float64(s.Requests))
			ch <- prometheus.MustNewConstMetric(successes, prometheus.CounterValue, float64(s.Successes))
			ch <- prometheus.MustNewConstMetric(failures, prometheus.CounterValue, float64(s.Failures))
			ch <- prometheus.MustNewConstMetric(rejections, prometheus.CounterValue, float64(s.Rejections))
		},
	})
}

// RegisterCache exports the counters returned by stats under the given
// cache name. Pass the Stats method of a cache.Memory.
func (c *Collector) RegisterCache(name string, stats func() cache.Stats) error {
	if c == nil || stats == nil {
		return nil
	}

	labels := prometheus.Labels{"cache": name}
	hits := c.desc("cache", "hits_total", "Lookups served from the cache.", labels)
	misses := c.desc("cache", "misses_total", "Lookups that missed the cache.", labels)
	loads := c.desc("cache", "loads_total", "Loader invocations after a miss.", labels)
	loadErrors := c.desc("cache", "load_errors_total", "Loader invocations that failed.", labels)
	coalesced := c.desc("cache", "coalesced_total", "Misses that joined an in-flight load.", labels)
	evictions := c.desc("cache", "evictions_total", "Entries removed by TTL or idle expiry or by the size limit.", labels)
	entries := c.desc("cache", "entries", "Entries currently stored.", labels)
	inFlight := c.desc("cache", "in_flight_loads", "Loads currently running.", labels)

	return c.register(&snapshotCollector{
		descs: []*prometheus.Desc{hits, misses, loads, loadErrors, coalesced, evictions, entries, inFlight},
		collect: func(ch chan<- prometheus.Metric) {
			s := stats()
			ch <- prometheus.MustNewConstMetric(hits, prometheus.CounterValue, float64(s.Hits))
			ch <- prometheus.MustNewConstMetric(misses, prometheus.CounterValue, float64(s.Misses))
			ch <- prometheus.MustNewConstMetric(loads, prometheus.CounterValue, float64(s.Loads))
			ch <- prometheus.MustNewConstMetric(loadErrors, prometheus.CounterValue, float64(s.LoadErrors))
			ch <- prometheus.MustNewConstMetric(coalesced, prometheus.CounterValue, float64(s.Coalesced))
			ch <- prometheus.MustNewConstMetric(evictions, prometheus.CounterValue, float64(s.Evictions))
			ch <- prometheus.MustNewConstMetric(entries, prometheus.GaugeValue, float64(s.Entries))
			ch <- prometheus.MustNewConstMetric(inFlight, prometheus.GaugeValue, float64(s.InFlight))
		},
	})
}

// RegisterCaller exports the retry, timeout and fallback counters returned
// by stats under the given caller name.
func (c *Collector) RegisterCaller(name string, stats func() resilient.Stats) error {
	if c == nil || stats == nil {
		return nil
	}

	labels := prometheus.Labels{"caller": name}
	calls := c.desc("caller", "calls_total", "Calls made through the resilient caller.", labels)
	retries := c.desc("caller", "retries_total", "Retried attempts.", labels)
	timeouts := c.desc("caller", "timeouts_total", "Attempts that hit the per-attempt timeout.", labels)
	fallbacks := c.desc("caller", "fallbacks_total", "Calls answered from the fallback store.", labels)

	return c.register(&snapshotCollector{
		descs: []*prometheus.Desc{calls, retries, timeouts, fallbacks},
		collect: func(ch chan<- prometheus.Metric) {
			s := stats()
			ch <- prometheus.MustNewConstMetric(calls, prometheus.CounterValue, float64(s.Calls))
			ch <- prometheus.MustNewConstMetric(retries, prometheus.CounterValue, float64(s.Retries))
			ch <- prometheus.MustNewConstMetric(timeouts, prometheus.CounterValue, float64(s.Timeouts))
			ch <- prometheus.MustNewConstMetric(fallbacks, prometheus.CounterValue, float64(s.Fallbacks))
		},
	})
}

func (c *Collector) desc(subsystem, name, help string, constLabels prometheus.Labels, variableLabels ...string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(c.opts.namespace, subsystem, name),
		help,
		variableLabels,
		constLabels,
	)
}

func (c *Collector) register(col prometheus.Collector) error {
	if err := c.reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return errors.Join(ErrAlreadyRegistered, err)
		}
		return err
	}
	return nil
}

// snapshotCollector reads a component's own counters at scrape time.
type snapshotCollector struct {
	collect func(ch chan<- prometheus.Metric)
	descs   []*prometheus.Desc
}

func (s *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range s.descs {
		ch <- d
	}
}

func (s *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	s.collect(ch)
}
