package arrowkit

import (
	"context"
	"time"

	"github.com/jana2-go/jana2"
)

// FallbackProcessor tries primary, and falls back to secondary if primary
// fails, e.g. reading calibration constants from a live service and falling
// back to a cached snapshot on failure. Grounded on the teacher connector
// library's Fallback[T].
type FallbackProcessor struct {
	name      string
	primary   jana2.Processor
	secondary jana2.Processor
}

// NewFallbackProcessor tries primary first on every Process call, falling
// back to secondary only if primary returns an error.
func NewFallbackProcessor(name string, primary, secondary jana2.Processor) *FallbackProcessor {
	return &FallbackProcessor{name: name, primary: primary, secondary: secondary}
}

func (f *FallbackProcessor) Init(ctx context.Context) error {
	if err := f.primary.Init(ctx); err != nil {
		return err
	}
	return f.secondary.Init(ctx)
}

func (f *FallbackProcessor) Finish(ctx context.Context) error {
	if err := f.primary.Finish(ctx); err != nil {
		return err
	}
	return f.secondary.Finish(ctx)
}

// Process implements jana2.Processor.
func (f *FallbackProcessor) Process(ctx context.Context, e *jana2.Event) error {
	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanFallbackProcess)
	defer span.Finish()

	primaryErr := f.primary.Process(ctx, e)
	if primaryErr == nil {
		span.SetTag(TagSuccess, "true")
		return nil
	}

	globalMetrics().Counter(MetricFallbackEngaged).Inc()
	emitSignal(ctx, SignalFallbackEngaged, FieldProcessorName.Field(f.name))

	if err := f.secondary.Process(ctx, e); err != nil {
		emitSignal(ctx, SignalFallbackFailed, FieldProcessorName.Field(f.name))
		return &jana2.EngineError{Kind: jana2.CallbackException, Component: f.name, Callback: "process", Err: err, Timestamp: time.Now()}
	}
	span.SetTag(TagSuccess, "true")
	return nil
}
