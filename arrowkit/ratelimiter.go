package arrowkit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jana2-go/jana2"
)

const (
	rateLimiterModeWait = "wait"
	rateLimiterModeDrop = "drop"
)

var errRateLimited = errors.New("rate limit exceeded")

// RateLimiterProcessor wraps a jana2.Processor with a token-bucket rate
// limit, protecting a rate-sensitive downstream dependency (a calibration
// web service with a per-second quota, say) from the full throughput a
// topology's worker pool could otherwise throw at it. Grounded on the
// teacher connector library's RateLimiter[T].
//
// CRITICAL: stateful, like CircuitBreakerProcessor — construct once per
// MapArrow, not per event.
type RateLimiterProcessor struct {
	inner      jana2.Processor
	clock      clockz.Clock
	name       string
	mode       string
	rate       float64
	tokens     float64
	burst      int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiterProcessor wraps inner, admitting at most ratePerSecond
// events per second on average with bursts up to burst.
func NewRateLimiterProcessor(name string, inner jana2.Processor, ratePerSecond float64, burst int) *RateLimiterProcessor {
	return &RateLimiterProcessor{
		name:       name,
		inner:      inner,
		rate:       ratePerSecond,
		burst:      burst,
		tokens:     float64(burst),
		lastRefill: clockz.RealClock.Now(),
		mode:       rateLimiterModeWait,
		clock:      clockz.RealClock,
	}
}

// WithDropMode rejects events immediately instead of blocking when no token
// is available.
func (r *RateLimiterProcessor) WithDropMode() *RateLimiterProcessor {
	r.mu.Lock()
	r.mode = rateLimiterModeDrop
	r.mu.Unlock()
	return r
}

// WithClock overrides the limiter's clock, for deterministic tests via
// clockz.NewFakeClock().
func (r *RateLimiterProcessor) WithClock(clock clockz.Clock) *RateLimiterProcessor {
	r.mu.Lock()
	r.clock = clock
	r.lastRefill = clock.Now()
	r.mu.Unlock()
	return r
}

func (r *RateLimiterProcessor) Init(ctx context.Context) error   { return r.inner.Init(ctx) }
func (r *RateLimiterProcessor) Finish(ctx context.Context) error { return r.inner.Finish(ctx) }

func (r *RateLimiterProcessor) refillLocked() {
	now := r.clock.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now
	if math.IsInf(r.rate, 1) {
		r.tokens = float64(r.burst)
		return
	}
	r.tokens = math.Min(float64(r.burst), r.tokens+elapsed*r.rate)
}

// Process implements jana2.Processor.
func (r *RateLimiterProcessor) Process(ctx context.Context, e *jana2.Event) error {
	r.mu.Lock()
	r.refillLocked()
	if r.tokens >= 1.0 {
		r.tokens -= 1.0
		r.mu.Unlock()
		return r.inner.Process(ctx, e)
	}

	if r.mode == rateLimiterModeDrop {
		r.mu.Unlock()
		globalMetrics().Counter(MetricRateLimiterDropped).Inc()
		emitSignal(ctx, SignalRateLimiterDropped, FieldProcessorName.Field(r.name))
		return &jana2.EngineError{Kind: jana2.CallbackException, Component: r.name, Callback: "process", Err: errRateLimited, Timestamp: time.Now()}
	}

	wait := r.waitTimeLocked()
	r.mu.Unlock()

	globalMetrics().Counter(MetricRateLimiterThrottled).Inc()
	emitSignal(ctx, SignalRateLimiterThrottled, FieldProcessorName.Field(r.name), FieldDelaySeconds.Field(wait.Seconds()))

	select {
	case <-r.clock.After(wait):
	case <-ctx.Done():
		return &jana2.EngineError{Kind: jana2.Interrupted, Component: r.name, Err: ctx.Err(), Timestamp: time.Now()}
	}

	r.mu.Lock()
	r.refillLocked()
	if r.tokens >= 1.0 {
		r.tokens -= 1.0
	}
	r.mu.Unlock()
	return r.inner.Process(ctx, e)
}

func (r *RateLimiterProcessor) waitTimeLocked() time.Duration {
	if r.rate == 0 {
		return time.Duration(math.MaxInt64)
	}
	if math.IsInf(r.rate, 1) {
		return 0
	}
	needed := 1.0 - r.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / r.rate * float64(time.Second))
}
