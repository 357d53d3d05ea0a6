package jana2

import (
	"context"
	"errors"
	"time"
)

var errSplitIndexOutOfRange = errors.New("split route index out of range")

// Splitter is implemented by embedders that fan a single event out across
// multiple downstream queues, e.g. routing by detector subsystem or level.
// It returns the index (into the SplitArrow's configured output list) to
// route e to.
type Splitter interface {
	Init(ctx context.Context) error
	Route(ctx context.Context, e *Event) (int, error)
}

// SplitArrow ("unfolder") reads one event from its input port and pushes it
// to exactly one of several output ports, chosen by a Splitter. Reserve is
// attempted on the chosen output only, matching the teacher idiom of
// reserving capacity for work not yet produced.
type SplitArrow struct {
	arrowBase

	splitter Splitter
	in       *Queue
	outs     []*Queue
	initDone bool
}

// NewSplitArrow creates a SplitArrow named name routing via splitter to the
// given ordered output queues.
func NewSplitArrow(name string, splitter Splitter, outs ...*Queue) *SplitArrow {
	return &SplitArrow{
		arrowBase: newArrowBase(name, KindSplit, false),
		splitter:  splitter,
		outs:      outs,
	}
}

func (a *SplitArrow) attachInput(q *Queue) { a.in = q }

// Fire implements Arrow.
func (a *SplitArrow) Fire(ctx context.Context) (FireResult, error) {
	defer a.fireGuard()()

	a.refreshRunningUpstreams()

	e, peeked := a.in.Front()
	if !peeked {
		if a.maybeFinish(a.in.Size() == 0) {
			return FireResultFinished, nil
		}
		return FireResultNotReady, nil
	}

	admitted, isBarrier := a.admitBarrier(ctx, e)
	if !admitted {
		return FireResultNotReady, nil
	}
	defer a.releaseBarrierAdmission(ctx, isBarrier)

	started := time.Now()
	if !a.initDone {
		if err := a.callInit(ctx, started); err != nil {
			return FireResultNotReady, err
		}
		a.initDone = true
	}

	idx, err := a.callRoute(ctx, e, started)
	if err != nil {
		return FireResultNotReady, err
	}
	if idx < 0 || idx >= len(a.outs) {
		return FireResultNotReady, &EngineError{Kind: InvalidWiring, Component: a.name, Err: errSplitIndexOutOfRange}
	}

	target := a.outs[idx]
	if !target.Reserve() {
		return FireResultNotReady, nil
	}

	a.setState(ArrowActive)
	e, _ = a.in.Pop()
	target.PushReserved(e)
	return FireResultSuccess, nil
}

func (a *SplitArrow) callInit(ctx context.Context, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "init", started); rec != nil {
			err = rec
		}
	}()
	if e := a.splitter.Init(ctx); e != nil {
		return wrapCallback(ComponentInitFailure, a.name, "", "init", e, started)
	}
	return nil
}

func (a *SplitArrow) callRoute(ctx context.Context, e *Event, started time.Time) (idx int, err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "route", started); rec != nil {
			err = rec
		}
	}()
	i, e2 := a.splitter.Route(ctx, e)
	if e2 != nil {
		return 0, wrapCallback(CallbackException, a.name, "", "route", e2, started)
	}
	return i, nil
}
