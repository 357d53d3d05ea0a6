package arrowkit

import (
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Signal constants for arrowkit wrapper events, following the root engine's
// <component>.<event> naming convention.
const (
	SignalCircuitBreakerOpened   capitan.Signal = "arrowkit.circuitbreaker.opened"
	SignalCircuitBreakerClosed   capitan.Signal = "arrowkit.circuitbreaker.closed"
	SignalCircuitBreakerHalfOpen capitan.Signal = "arrowkit.circuitbreaker.half_open"
	SignalCircuitBreakerRejected capitan.Signal = "arrowkit.circuitbreaker.rejected"

	SignalRateLimiterThrottled capitan.Signal = "arrowkit.ratelimiter.throttled"
	SignalRateLimiterDropped   capitan.Signal = "arrowkit.ratelimiter.dropped"

	SignalRetryAttemptFailed capitan.Signal = "arrowkit.retry.attempt_failed"
	SignalRetryExhausted     capitan.Signal = "arrowkit.retry.exhausted"

	SignalBackoffWaiting   capitan.Signal = "arrowkit.backoff.waiting"
	SignalBackoffExhausted capitan.Signal = "arrowkit.backoff.exhausted"

	SignalFallbackEngaged capitan.Signal = "arrowkit.fallback.engaged"
	SignalFallbackFailed  capitan.Signal = "arrowkit.fallback.failed"

	SignalTimeoutTriggered capitan.Signal = "arrowkit.timeout.triggered"
)

// Capitan field keys shared across arrowkit wrappers.
var (
	FieldProcessorName = capitan.NewStringKey("processor_name")
	FieldAttempt        = capitan.NewIntKey("attempt")
	FieldMaxAttempts     = capitan.NewIntKey("max_attempts")
	FieldState           = capitan.NewStringKey("state")
	FieldFailures        = capitan.NewIntKey("failures")
	FieldFailureThreshold = capitan.NewIntKey("failure_threshold")
	FieldDelaySeconds    = capitan.NewFloat64Key("delay_seconds")
	FieldTimeoutSeconds  = capitan.NewFloat64Key("timeout_seconds")
)

// Metric keys shared across arrowkit wrappers.
const (
	MetricRetryAttempts         = metricz.Key("arrowkit.retry.attempts")
	MetricRetryExhausted        = metricz.Key("arrowkit.retry.exhausted")
	MetricBackoffAttempts       = metricz.Key("arrowkit.backoff.attempts")
	MetricBackoffDelayMs        = metricz.Key("arrowkit.backoff.delay_ms")
	MetricCircuitBreakerOpen    = metricz.Key("arrowkit.circuitbreaker.open")
	MetricRateLimiterThrottled  = metricz.Key("arrowkit.ratelimiter.throttled")
	MetricRateLimiterDropped    = metricz.Key("arrowkit.ratelimiter.dropped")
	MetricTimeoutTriggered      = metricz.Key("arrowkit.timeout.triggered")
	MetricFallbackEngaged       = metricz.Key("arrowkit.fallback.engaged")
)

// Trace span and tag keys shared across arrowkit wrappers.
const (
	SpanRetryProcess          = tracez.Key("arrowkit.retry.process")
	SpanBackoffProcess        = tracez.Key("arrowkit.backoff.process")
	SpanCircuitBreakerProcess = tracez.Key("arrowkit.circuitbreaker.process")
	SpanTimeoutProcess        = tracez.Key("arrowkit.timeout.process")
	SpanFallbackProcess       = tracez.Key("arrowkit.fallback.process")

	TagAttempt   = tracez.Tag("arrowkit.attempt")
	TagSuccess   = tracez.Tag("arrowkit.success")
	TagErrorText = tracez.Tag("arrowkit.error")
)

// Hook event keys shared across arrowkit wrappers.
const (
	HookCircuitBreakerStateChange = hookz.Key("arrowkit.circuitbreaker.state_change")
	HookRetryExhausted            = hookz.Key("arrowkit.retry.exhausted")
	HookFallbackEngaged           = hookz.Key("arrowkit.fallback.engaged")
)
