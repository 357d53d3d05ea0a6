package arrowkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jana2-go/jana2"
)

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

var errCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerProcessor wraps a jana2.Processor with the closed/open/
// half-open circuit breaker pattern, failing fast once a downstream
// dependency (e.g. a detector slow-control service) has shown it is down
// rather than queuing every worker behind a slow timeout. Grounded on the
// teacher connector library's CircuitBreaker[T].
//
// CRITICAL: like the teacher connector, this is stateful and must be created
// once per MapArrow and reused across every Fire call, not reconstructed per
// event.
type CircuitBreakerProcessor struct {
	inner            jana2.Processor
	clock            clockz.Clock
	name             string
	state            string
	lastFailTime     time.Time
	mu               sync.Mutex
	resetTimeout     time.Duration
	generation       int
	failureThreshold int
	successThreshold int
	failures         int
	successes        int
}

// NewCircuitBreakerProcessor wraps inner, opening the circuit after
// failureThreshold consecutive failures and attempting recovery after
// resetTimeout.
func NewCircuitBreakerProcessor(name string, inner jana2.Processor, failureThreshold int, resetTimeout time.Duration) *CircuitBreakerProcessor {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreakerProcessor{
		name:             name,
		inner:            inner,
		failureThreshold: failureThreshold,
		successThreshold: 1,
		resetTimeout:     resetTimeout,
		state:            stateClosed,
		clock:            clockz.RealClock,
	}
}

// WithClock overrides the breaker's clock, for deterministic tests via
// clockz.NewFakeClock().
func (cb *CircuitBreakerProcessor) WithClock(clock clockz.Clock) *CircuitBreakerProcessor {
	cb.mu.Lock()
	cb.clock = clock
	cb.mu.Unlock()
	return cb
}

func (cb *CircuitBreakerProcessor) Init(ctx context.Context) error   { return cb.inner.Init(ctx) }
func (cb *CircuitBreakerProcessor) Finish(ctx context.Context) error { return cb.inner.Finish(ctx) }

// Process implements jana2.Processor.
func (cb *CircuitBreakerProcessor) Process(ctx context.Context, e *jana2.Event) error {
	cb.mu.Lock()

	if cb.state == stateOpen && cb.clock.Since(cb.lastFailTime) > cb.resetTimeout {
		cb.state = stateHalfOpen
		cb.failures = 0
		cb.successes = 0
		cb.generation++
		emitSignal(ctx, SignalCircuitBreakerHalfOpen, FieldProcessorName.Field(cb.name), FieldState.Field(cb.state))
	}

	state := cb.state
	generation := cb.generation

	if state == stateOpen {
		cb.mu.Unlock()
		globalMetrics().Counter(MetricCircuitBreakerOpen).Inc()
		emitSignal(ctx, SignalCircuitBreakerRejected, FieldProcessorName.Field(cb.name), FieldState.Field(state))
		return &jana2.EngineError{Kind: jana2.CallbackException, Component: cb.name, Callback: "process", Err: errCircuitOpen, Timestamp: time.Now()}
	}
	cb.mu.Unlock()

	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanCircuitBreakerProcess)
	defer span.Finish()

	err := cb.inner.Process(ctx, e)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.generation != generation {
		// A concurrent half-open probe already resolved; don't let this
		// call's stale result flip the state machine again.
		return err
	}

	if err != nil {
		span.SetTag(TagSuccess, "false")
		cb.onFailure(ctx)
		return &jana2.EngineError{Kind: jana2.CallbackException, Component: cb.name, Callback: "process", Err: err, Timestamp: time.Now()}
	}
	span.SetTag(TagSuccess, "true")
	cb.onSuccess(ctx)
	return nil
}

func (cb *CircuitBreakerProcessor) onSuccess(ctx context.Context) {
	switch cb.state {
	case stateClosed:
		cb.failures = 0
	case stateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = stateClosed
			cb.failures = 0
			cb.successes = 0
			emitSignal(ctx, SignalCircuitBreakerClosed, FieldProcessorName.Field(cb.name), FieldState.Field(cb.state))
		}
	}
}

func (cb *CircuitBreakerProcessor) onFailure(ctx context.Context) {
	cb.lastFailTime = cb.clock.Now()
	switch cb.state {
	case stateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = stateOpen
			emitSignal(ctx, SignalCircuitBreakerOpened, FieldProcessorName.Field(cb.name), FieldState.Field(cb.state), FieldFailures.Field(cb.failures), FieldFailureThreshold.Field(cb.failureThreshold))
		}
	case stateHalfOpen:
		cb.state = stateOpen
		cb.failures = 0
		cb.successes = 0
		emitSignal(ctx, SignalCircuitBreakerOpened, FieldProcessorName.Field(cb.name), FieldState.Field(cb.state))
	}
}

// GetState returns the breaker's current state: "closed", "open", or
// "half-open".
func (cb *CircuitBreakerProcessor) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == stateOpen && cb.clock.Since(cb.lastFailTime) > cb.resetTimeout {
		return stateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to the closed state.
func (cb *CircuitBreakerProcessor) Reset() *CircuitBreakerProcessor {
	cb.mu.Lock()
	cb.state = stateClosed
	cb.failures = 0
	cb.successes = 0
	cb.generation++
	cb.mu.Unlock()
	return cb
}
