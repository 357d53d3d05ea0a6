package jana2

import (
	"context"
	"sync/atomic"
	"time"
)

// SourceArrow wraps an embedder Source, acquiring events from an EventPool,
// stamping their identity, and pushing them downstream. It has no input
// port: it is the topology's entry point for one stream of events.
type SourceArrow struct {
	arrowBase

	source Source
	pool   *EventPool
	out    *Queue

	opened    int32 // atomic bool
	nextEvent uint64
	runNumber uint32
	location  int

	maxEvents uint64 // 0 means unbounded
	skip      uint64
	skipped   uint64
}

// NewSourceArrow creates a SourceArrow named name, reading from source and
// allocating events from pool.
func NewSourceArrow(name string, source Source, pool *EventPool) *SourceArrow {
	base := newArrowBase(name, KindSource, false)
	base.isSource = true
	return &SourceArrow{
		arrowBase: base,
		source:    source,
		pool:      pool,
	}
}

// WithRunNumber sets the run number stamped on every emitted event.
func (a *SourceArrow) WithRunNumber(run uint32) *SourceArrow {
	a.runNumber = run
	return a
}

// WithMaxEvents bounds the number of events this source will emit before
// reporting FailFinished on its own, independent of what Emit returns.
func (a *SourceArrow) WithMaxEvents(n uint64) *SourceArrow {
	a.maxEvents = n
	return a
}

// WithSkip discards the first n successfully emitted events before the
// first one is pushed downstream.
func (a *SourceArrow) WithSkip(n uint64) *SourceArrow {
	a.skip = n
	return a
}

// attachOutput wires this source's output queue. Called by Topology.Connect.
func (a *SourceArrow) attachOutput(q *Queue) { a.out = q }

// Fire implements Arrow: acquire an event, call Emit, stamp identity, push.
func (a *SourceArrow) Fire(ctx context.Context) (FireResult, error) {
	defer a.fireGuard()()

	if atomic.CompareAndSwapInt32(&a.opened, 0, 1) {
		a.setState(ArrowActive)
		started := time.Now()
		if err := a.source.Open(ctx); err != nil {
			return FireResultFinished, wrapCallback(ComponentInitFailure, a.name, "", "open", err, started)
		}
	}

	if a.maxEvents > 0 && atomic.LoadUint64(&a.nextEvent) >= a.maxEvents {
		return a.finish(ctx)
	}

	if a.out != nil && !a.out.Reserve() {
		return FireResultNotReady, nil
	}

	e, ok := a.pool.TryGet(a.location)
	if !ok {
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, nil
	}

	started := time.Now()
	result, emitErr := a.callEmit(ctx, e, started)
	if emitErr != nil {
		a.pool.Put(e)
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, emitErr
	}

	switch result {
	case FailTryAgain:
		a.pool.Put(e)
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, nil
	case FailFinished:
		a.pool.Put(e)
		if a.out != nil {
			a.out.Unreserve()
		}
		return a.finish(ctx)
	}

	for atomic.LoadUint64(&a.skipped) < a.skip {
		atomic.AddUint64(&a.skipped, 1)
		a.pool.Put(e)
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultSuccess, nil
	}

	e.EventNumber = atomic.AddUint64(&a.nextEvent, 1) - 1
	e.RunNumber = a.runNumber
	e.SourceName = a.name

	if a.out != nil {
		a.out.PushReserved(e)
	}
	globalMetrics().Counter(MetricEventsEmitted).Inc()
	return FireResultSuccess, nil
}

func (a *SourceArrow) callEmit(ctx context.Context, e *Event, started time.Time) (result FailResult, err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "emit", started); rec != nil {
			err = rec
		}
	}()
	r, e2 := a.source.Emit(ctx, e)
	if e2 != nil {
		return r, wrapCallback(CallbackException, a.name, "", "emit", e2, started)
	}
	return r, nil
}

func (a *SourceArrow) finish(ctx context.Context) (FireResult, error) {
	if a.State() != ArrowFinished {
		a.setState(ArrowFinished)
		started := time.Now()
		if err := a.source.Close(ctx); err != nil {
			return FireResultFinished, wrapCallback(CallbackException, a.name, "", "close", err, started)
		}
		emitSignal(ctx, SignalArrowFinished, FieldArrowName.Field(a.name))
	}
	return FireResultFinished, nil
}
