package arrowkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/jana2-go/jana2"
)

func emitSignal(ctx context.Context, sig capitan.Signal, fields ...capitan.Field) {
	capitan.Emit(ctx, sig, fields...)
}

// RetryProcessor wraps a jana2.Processor, retrying Process up to maxAttempts
// times with no delay between attempts. Grounded on the teacher connector
// library's Retry[T]: immediate retry for transient failures where any delay
// would just waste wall-clock time, e.g. a calibration DB read racing a
// connection-pool hiccup.
type RetryProcessor struct {
	inner       jana2.Processor
	name        string
	maxAttempts int

	mu sync.RWMutex
}

// NewRetryProcessor wraps inner, retrying its Process method up to
// maxAttempts times.
func NewRetryProcessor(name string, inner jana2.Processor, maxAttempts int) *RetryProcessor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryProcessor{name: name, inner: inner, maxAttempts: maxAttempts}
}

func (r *RetryProcessor) Init(ctx context.Context) error   { return r.inner.Init(ctx) }
func (r *RetryProcessor) Finish(ctx context.Context) error { return r.inner.Finish(ctx) }

// Process implements jana2.Processor.
func (r *RetryProcessor) Process(ctx context.Context, e *jana2.Event) error {
	r.mu.RLock()
	maxAttempts := r.maxAttempts
	r.mu.RUnlock()

	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanRetryProcess)
	defer span.Finish()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		globalMetrics().Counter(MetricRetryAttempts).Inc()
		span.SetTag(TagAttempt, fmt.Sprintf("%d", attempt))

		lastErr = r.inner.Process(ctx, e)
		if lastErr == nil {
			span.SetTag(TagSuccess, "true")
			return nil
		}

		emitSignal(ctx, SignalRetryAttemptFailed,
			FieldProcessorName.Field(r.name),
			FieldAttempt.Field(attempt),
			FieldMaxAttempts.Field(maxAttempts),
		)

		if ctx.Err() != nil {
			return &jana2.EngineError{Kind: jana2.Interrupted, Component: r.name, Err: ctx.Err(), Timestamp: time.Now()}
		}
	}

	span.SetTag(TagSuccess, "false")
	globalMetrics().Counter(MetricRetryExhausted).Inc()
	emitSignal(ctx, SignalRetryExhausted,
		FieldProcessorName.Field(r.name),
		FieldMaxAttempts.Field(maxAttempts),
	)
	return &jana2.EngineError{Kind: jana2.CallbackException, Component: r.name, Callback: "process", Err: lastErr, Timestamp: time.Now()}
}

// SetMaxAttempts updates the retry budget.
func (r *RetryProcessor) SetMaxAttempts(n int) *RetryProcessor {
	if n < 1 {
		n = 1
	}
	r.mu.Lock()
	r.maxAttempts = n
	r.mu.Unlock()
	return r
}
