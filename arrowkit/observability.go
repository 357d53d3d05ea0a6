package arrowkit

import (
	"sync"

	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// arrowkit wrappers share one metricz.Registry and tracez.Tracer across the
// process, same as the root engine's observability.go — a topology may wire
// many RetryProcessor/CircuitBreakerProcessor instances and they report into
// one backend rather than one registry apiece.
var (
	obsOnce    sync.Once
	obsMetrics *metricz.Registry
	obsTracer  *tracez.Tracer
)

func initObservability() {
	obsMetrics = metricz.New()
	obsTracer = tracez.New()

	for _, k := range []metricz.Key{
		MetricRetryAttempts, MetricRetryExhausted,
		MetricBackoffAttempts,
		MetricCircuitBreakerOpen,
		MetricRateLimiterThrottled, MetricRateLimiterDropped,
		MetricTimeoutTriggered, MetricFallbackEngaged,
	} {
		obsMetrics.Counter(k)
	}
	obsMetrics.Gauge(MetricBackoffDelayMs)
}

func globalMetrics() *metricz.Registry {
	obsOnce.Do(initObservability)
	return obsMetrics
}

func globalTracer() *tracez.Tracer {
	obsOnce.Do(initObservability)
	return obsTracer
}
