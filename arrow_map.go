package jana2

import (
	"context"
	"time"
)

// MapArrow wraps an embedder Processor (or LegacyProcessor), applying it to
// events read from its single input port and pushing them to its single
// output port. A Tap-labeled MapArrow behaves identically at the engine
// level; the Tap/Map distinction is a usage contract on the embedder's
// Processor, not a different Fire implementation.
type MapArrow struct {
	arrowBase

	processor  Processor
	in, out    *Queue
	lastRun    uint32
	haveRun    bool
	initDone   bool
}

// NewMapArrow creates a MapArrow named name wrapping processor. Map is
// parallel by default: more than one worker may Fire it concurrently,
// relying on the embedder's Processor being safe for concurrent use (the
// same contract the teacher's own Chainable[T] implementations carry). Use
// WithParallel(false) to force single-worker serialization if the
// processor is not concurrency-safe.
func NewMapArrow(name string, processor Processor) *MapArrow {
	return &MapArrow{
		arrowBase: newArrowBase(name, KindMap, true),
		processor: processor,
	}
}

// NewTapArrow is an alias of NewMapArrow with KindTap, for Processors
// declared as observers rather than mutators. Unlike Map, Tap defaults to
// non-parallel — "configurable parallel" — since observer processors
// commonly accumulate state (histograms, counters) that isn't inherently
// concurrency-safe; pass WithParallel(true) to opt a stateless Tap in.
func NewTapArrow(name string, processor Processor) *MapArrow {
	a := NewMapArrow(name, processor)
	a.kind = KindTap
	a.isParallel = false
	return a
}

// WithParallel allows the arrow to be Fired by more than one worker
// concurrently, incrementing its thread count accordingly at scheduling
// time.
func (a *MapArrow) WithParallel(parallel bool) *MapArrow {
	a.isParallel = parallel
	return a
}

func (a *MapArrow) attachInput(q *Queue)  { a.in = q }
func (a *MapArrow) attachOutput(q *Queue) { a.out = q }

// Fire implements Arrow.
func (a *MapArrow) Fire(ctx context.Context) (FireResult, error) {
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

	if a.out != nil && !a.out.Reserve() {
		// Leave the event at the front of the input queue: preserves FIFO
		// order for the next Fire attempt instead of popping speculatively.
		return FireResultNotReady, nil
	}

	admitted, isBarrier := a.admitBarrier(ctx, front)
	if !admitted {
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, nil
	}
	defer a.releaseBarrierAdmission(ctx, isBarrier)

	e, ok := a.in.Pop()
	if !ok {
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, nil
	}
	a.setState(ArrowActive)

	started := time.Now()
	if !a.initDone {
		if err := a.callInit(ctx, started); err != nil {
			if a.out != nil {
				a.out.Unreserve()
			}
			return FireResultNotReady, err
		}
		a.initDone = true
	}

	if lp, ok := a.processor.(LegacyProcessor); ok {
		if !a.haveRun || a.lastRun != e.RunNumber {
			if err := a.callLegacyRunCallback(ctx, lp, e.RunNumber, started); err != nil {
				if a.out != nil {
					a.out.Unreserve()
				}
				return FireResultNotReady, err
			}
			a.lastRun = e.RunNumber
			a.haveRun = true
		}
	}

	if err := a.callProcess(ctx, e, started); err != nil {
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, err
	}

	if a.out != nil {
		a.out.PushReserved(e)
	}
	return FireResultSuccess, nil
}

func (a *MapArrow) callInit(ctx context.Context, started time.Time) (err error) {
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

func (a *MapArrow) callLegacyRunCallback(ctx context.Context, lp LegacyProcessor, run uint32, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "begin_run", started); rec != nil {
			err = rec
		}
	}()
	if a.haveRun {
		if e := lp.EndRun(ctx, a.lastRun); e != nil {
			return wrapCallback(CallbackException, a.name, "", "end_run", e, started)
		}
	}
	if e := lp.BeginRun(ctx, run); e != nil {
		return wrapCallback(CallbackException, a.name, "", "begin_run", e, started)
	}
	return nil
}

func (a *MapArrow) callProcess(ctx context.Context, e *Event, started time.Time) (err error) {
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

func (a *MapArrow) callFinish(ctx context.Context) {
	started := time.Now()
	defer recoverCallback(a.name, "", "finish", started)
	_ = a.processor.Finish(ctx)
	emitSignal(ctx, SignalArrowFinished, FieldArrowName.Field(a.name))
}
