package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Collector.
type Option func(*options)

type options struct {
	namespace       string
	sizeBuckets     []float64
	durationBuckets []float64
}

func defaultOptions() *options {
	return &options{
		namespace:       "dataguard",
		sizeBuckets:     prometheus.ExponentialBuckets(1, 2, 11),
		durationBuckets: prometheus.DefBuckets,
	}
}

// WithNamespace sets the metric name prefix. Default: "dataguard".
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithBatchSizeBuckets sets the histogram buckets for loader batch sizes.
// Default: 1, 2, 4 ... 1024.
func WithBatchSizeBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.sizeBuckets = b
		}
	}
}

// WithDurationBuckets sets the histogram buckets for loader batch latency
// in seconds. Default: prometheus.DefBuckets.
func WithDurationBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.durationBuckets = b
		}
	}
}
