package jana2

import (
	"context"
	"sync/atomic"
	"time"
)

// SinkArrow is the terminal stage of a topology branch: it pops events from
// its input port, invokes any attached LegacyProcessor-style observers via
// the embedder's Processor, clears the event's factory caches, and returns
// the event to the pool.
type SinkArrow struct {
	arrowBase

	processor Processor // optional; nil means "retire with no observation"
	in        *Queue
	pool      *EventPool
	initDone  bool
	completed uint64
}

// NewSinkArrow creates a SinkArrow named name retiring events back to pool.
// Sink is parallel by default, per spec's "Sink (parallel)" classification:
// several workers may retire different events concurrently. Use
// WithParallel(false) if the attached observer Processor is not
// concurrency-safe.
func NewSinkArrow(name string, pool *EventPool) *SinkArrow {
	base := newArrowBase(name, KindSink, true)
	base.isSink = true
	return &SinkArrow{arrowBase: base, pool: pool}
}

// WithParallel overrides whether more than one worker may Fire this sink
// concurrently.
func (a *SinkArrow) WithParallel(parallel bool) *SinkArrow {
	a.isParallel = parallel
	return a
}

// WithProcessor attaches an observer Processor invoked on every event
// immediately before it is retired.
func (a *SinkArrow) WithProcessor(p Processor) *SinkArrow {
	a.processor = p
	return a
}

func (a *SinkArrow) attachInput(q *Queue) { a.in = q }

// Completed returns the number of events this sink has retired.
func (a *SinkArrow) Completed() uint64 { return atomic.LoadUint64(&a.completed) }

// Fire implements Arrow.
func (a *SinkArrow) Fire(ctx context.Context) (FireResult, error) {
	defer a.fireGuard()()

	a.refreshRunningUpstreams()

	front, ok := a.in.Front()
	if !ok {
		if a.maybeFinish(a.in.Size() == 0) {
			a.callFinish(ctx)
			return FireResultFinished, nil
		}
		return FireResultNotReady, nil
	}

	admitted, isBarrier := a.admitBarrier(ctx, front)
	if !admitted {
		return FireResultNotReady, nil
	}
	defer a.releaseBarrierAdmission(ctx, isBarrier)

	e, ok := a.in.Pop()
	if !ok {
		return FireResultNotReady, nil
	}
	a.setState(ArrowActive)

	started := time.Now()
	if a.processor != nil {
		if !a.initDone {
			if err := a.callInit(ctx, started); err != nil {
				a.pool.Put(e)
				return FireResultNotReady, err
			}
			a.initDone = true
		}
		if err := a.callProcess(ctx, e, started); err != nil {
			a.pool.Put(e)
			return FireResultNotReady, err
		}
	}

	atomic.AddUint64(&a.completed, 1)
	globalMetrics().Counter(MetricEventsCompleted).Inc()
	a.pool.Put(e)
	return FireResultSuccess, nil
}

func (a *SinkArrow) callInit(ctx context.Context, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "init", started); rec != nil {
			err = rec
		}
	}()
	if e := a.processor.Init(ctx); e != nil {
		return wrapCallback(ComponentInitFailure, a.name, "", "init", e, started)
	}
	return nil
}

func (a *SinkArrow) callProcess(ctx context.Context, e *Event, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "process", started); rec != nil {
			err = rec
		}
	}()
	if e2 := a.processor.Process(ctx, e); e2 != nil {
		return wrapCallback(CallbackException, a.name, "", "process", e2, started)
	}
	return nil
}

func (a *SinkArrow) callFinish(ctx context.Context) {
	if a.processor == nil {
		emitSignal(ctx, SignalArrowFinished, FieldArrowName.Field(a.name))
		return
	}
	started := time.Now()
	defer recoverCallback(a.name, "", "finish", started)
	_ = a.processor.Finish(ctx)
	emitSignal(ctx, SignalArrowFinished, FieldArrowName.Field(a.name))
}
