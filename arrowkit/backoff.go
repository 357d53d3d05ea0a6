package arrowkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jana2-go/jana2"
)

// BackoffProcessor wraps a jana2.Processor, retrying Process with
// exponentially increasing delay between attempts. Grounded on the teacher
// connector library's Backoff[T]: suited to a remote conditions service that
// needs breathing room rather than an immediate hammering retry.
type BackoffProcessor struct {
	inner       jana2.Processor
	clock       clockz.Clock
	name        string
	baseDelay   time.Duration
	maxAttempts int

	mu sync.RWMutex
}

// NewBackoffProcessor wraps inner, retrying up to maxAttempts times with
// delay doubling from baseDelay after each failure.
func NewBackoffProcessor(name string, inner jana2.Processor, maxAttempts int, baseDelay time.Duration) *BackoffProcessor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &BackoffProcessor{
		name:        name,
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		clock:       clockz.RealClock,
	}
}

// WithClock overrides the backoff's clock, for deterministic tests via
// clockz.NewFakeClock().
func (b *BackoffProcessor) WithClock(clock clockz.Clock) *BackoffProcessor {
	b.mu.Lock()
	b.clock = clock
	b.mu.Unlock()
	return b
}

func (b *BackoffProcessor) Init(ctx context.Context) error   { return b.inner.Init(ctx) }
func (b *BackoffProcessor) Finish(ctx context.Context) error { return b.inner.Finish(ctx) }

// Process implements jana2.Processor.
func (b *BackoffProcessor) Process(ctx context.Context, e *jana2.Event) error {
	b.mu.RLock()
	maxAttempts := b.maxAttempts
	delay := b.baseDelay
	clock := b.clock
	b.mu.RUnlock()

	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanBackoffProcess)
	defer span.Finish()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		globalMetrics().Counter(MetricBackoffAttempts).Inc()
		span.SetTag(TagAttempt, fmt.Sprintf("%d", attempt))

		lastErr = b.inner.Process(ctx, e)
		if lastErr == nil {
			span.SetTag(TagSuccess, "true")
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		emitSignal(ctx, SignalBackoffWaiting,
			FieldProcessorName.Field(b.name),
			FieldAttempt.Field(attempt),
			FieldDelaySeconds.Field(delay.Seconds()),
		)
		globalMetrics().Gauge(MetricBackoffDelayMs).Set(float64(delay.Milliseconds()))

		select {
		case <-clock.After(delay):
			delay *= 2
		case <-ctx.Done():
			span.SetTag(TagSuccess, "false")
			return &jana2.EngineError{Kind: jana2.Interrupted, Component: b.name, Err: ctx.Err(), Timestamp: time.Now()}
		}
	}

	span.SetTag(TagSuccess, "false")
	emitSignal(ctx, SignalBackoffExhausted,
		FieldProcessorName.Field(b.name),
		FieldMaxAttempts.Field(maxAttempts),
	)
	return &jana2.EngineError{Kind: jana2.CallbackException, Component: b.name, Callback: "process", Err: lastErr, Timestamp: time.Now()}
}
