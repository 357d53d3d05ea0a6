package jana2

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// The engine shares one metricz.Registry and tracez.Tracer across all
// components in a process, mirroring how an embedder would wire a single
// observability backend for an entire topology rather than one per
// connector as the resilience helpers do for a single pipeline stage.
var (
	obsOnce     sync.Once
	obsMetrics  *metricz.Registry
	obsTracer   *tracez.Tracer
)

func initObservability() {
	obsMetrics = metricz.New()
	obsTracer = tracez.New()

	obsMetrics.Counter(MetricEventsEmitted)
	obsMetrics.Counter(MetricEventsCompleted)
	obsMetrics.Counter(MetricEventsDropped)
	obsMetrics.Gauge(MetricEventsInFlight)
	obsMetrics.Gauge(MetricQueueSize)
	obsMetrics.Gauge(MetricQueueReserved)
	obsMetrics.Counter(MetricFactoryHits)
	obsMetrics.Counter(MetricFactoryProcessed)
	obsMetrics.Gauge(MetricWorkerUsefulMs)
	obsMetrics.Gauge(MetricWorkerIdleMs)
	obsMetrics.Gauge(MetricWorkerRetryMs)
	obsMetrics.Gauge(MetricWorkerSchedMs)
	obsMetrics.Counter(MetricBackpressureStalls)
}

// globalMetrics returns the process-wide metricz.Registry, initializing it
// on first use.
func globalMetrics() *metricz.Registry {
	obsOnce.Do(initObservability)
	return obsMetrics
}

// globalTracer returns the process-wide tracez.Tracer, initializing it on
// first use.
func globalTracer() *tracez.Tracer {
	obsOnce.Do(initObservability)
	return obsTracer
}

// emitSignal publishes a capitan signal with the given fields. Diagnostics
// are opt-in: a signal with no subscribers is a no-op.
func emitSignal(ctx context.Context, sig capitan.Signal, fields ...capitan.Field) {
	capitan.Emit(ctx, sig, fields...)
}
