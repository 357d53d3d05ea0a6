package arrowkit

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jana2-go/jana2"
)

// TimeoutProcessor wraps a jana2.Processor with a hard per-event wall-clock
// budget, canceling the inner call's context once duration elapses.
// Grounded on the teacher connector library's Timeout[T]; useful wherever a
// remote conditions lookup might hang rather than fail cleanly.
type TimeoutProcessor struct {
	inner    jana2.Processor
	clock    clockz.Clock
	name     string
	duration time.Duration
}

// NewTimeoutProcessor wraps inner, bounding each Process call to duration.
func NewTimeoutProcessor(name string, inner jana2.Processor, duration time.Duration) *TimeoutProcessor {
	return &TimeoutProcessor{name: name, inner: inner, duration: duration, clock: clockz.RealClock}
}

// WithClock overrides the timeout's clock, for deterministic tests via
// clockz.NewFakeClock().
func (t *TimeoutProcessor) WithClock(clock clockz.Clock) *TimeoutProcessor {
	t.clock = clock
	return t
}

func (t *TimeoutProcessor) Init(ctx context.Context) error   { return t.inner.Init(ctx) }
func (t *TimeoutProcessor) Finish(ctx context.Context) error { return t.inner.Finish(ctx) }

// Process implements jana2.Processor.
func (t *TimeoutProcessor) Process(ctx context.Context, e *jana2.Event) error {
	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanTimeoutProcess)
	defer span.Finish()

	deadlineCtx, cancel := t.clock.WithTimeout(ctx, t.duration)
	defer cancel()

	done := make(chan error, 1)
	started := t.clock.Now()
	go func() {
		done <- t.inner.Process(deadlineCtx, e)
	}()

	select {
	case err := <-done:
		if err != nil {
			span.SetTag(TagSuccess, "false")
			return err
		}
		span.SetTag(TagSuccess, "true")
		return nil
	case <-deadlineCtx.Done():
		globalMetrics().Counter(MetricTimeoutTriggered).Inc()
		emitSignal(ctx, SignalTimeoutTriggered, FieldProcessorName.Field(t.name), FieldTimeoutSeconds.Field(t.duration.Seconds()))
		return &jana2.EngineError{
			Kind:      jana2.TimeoutExceeded,
			Component: t.name,
			Callback:  "process",
			Err:       deadlineCtx.Err(),
			Timestamp: started,
			Duration:  t.clock.Since(started),
		}
	}
}
