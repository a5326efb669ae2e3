// Package metrics exposes in-process Prometheus instrumentation for
// the monitor pipeline: pool occupancy, cache hit/miss counts, and
// async-logger queue depth. spec.md's Non-goals exclude any
// cross-process metrics aggregation or HTTP exposition endpoint — no
// listener is started here — but the ambient observability pattern
// this codebase otherwise uses (promauto-registered vecs on the
// default registerer) is still worth having for an in-process scrape
// via a host-embedded registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every hangdetect Prometheus collector.
type Metrics struct {
	PoolIdleEvents   prometheus.Gauge
	CacheLookups     *prometheus.CounterVec
	LoggerQueueDepth prometheus.Gauge
	LoggerDropped    prometheus.Counter
}

// New registers and returns the process-wide metric set. Safe to call
// at most once per process; registering the same collector names
// twice panics, matching promauto's own behavior.
func New() *Metrics {
	return &Metrics{
		PoolIdleEvents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hangdetect_timing_event_pool_idle",
			Help: "Number of timing events currently idle in the reuse pool.",
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hangdetect_kernel_name_cache_lookups_total",
			Help: "Kernel-name cache lookups, partitioned by API family and outcome.",
		}, []string{"api", "outcome"}), // api: runtime|driver, outcome: hit|miss
		LoggerQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hangdetect_async_logger_queue_depth",
			Help: "Number of (start, end) event pairs currently queued for the async logger.",
		}),
		LoggerDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hangdetect_async_logger_dropped_total",
			Help: "Event pairs dropped because the async logger's queue was full.",
		}),
	}
}
