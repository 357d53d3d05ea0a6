package jana2

import (
	"context"
	"time"
)

// Folder is implemented by embedders that combine several upstream events
// (e.g. one per detector subevent) into a single downstream event at a
// coarser Level, the inverse of Splitter.
type Folder interface {
	Init(ctx context.Context) error
	// Width reports how many input events must accumulate before Fold is
	// called, e.g. the number of subevents per physics event.
	Width() int
	// Fold combines parts (len(parts) == Width()) into a single output
	// event drawn from pool.
	Fold(ctx context.Context, parts []*Event, pool *EventPool) (*Event, error)
}

// FoldArrow ("gather") accumulates Width() events from its input port
// before producing one output event via Folder.Fold. Accumulated parts are
// released back to the pool by Fold's caller only if Fold does not already
// consume them (e.g. reuse one part's storage as the merged output).
type FoldArrow struct {
	arrowBase

	folder   Folder
	in       *Queue
	out      *Queue
	pool     *EventPool
	initDone bool
	pending  []*Event

	barrierHeld bool // true while an admitted Sequential part is mid-accumulation
	isBarrier   bool
}

// NewFoldArrow creates a FoldArrow named name combining events via folder.
func NewFoldArrow(name string, folder Folder, pool *EventPool) *FoldArrow {
	return &FoldArrow{
		arrowBase: newArrowBase(name, KindFold, false),
		folder:    folder,
		pool:      pool,
	}
}

func (a *FoldArrow) attachInput(q *Queue)  { a.in = q }
func (a *FoldArrow) attachOutput(q *Queue) { a.out = q }

// Fire implements Arrow.
func (a *FoldArrow) Fire(ctx context.Context) (FireResult, error) {
	defer a.fireGuard()()

	a.refreshRunningUpstreams()

	started := time.Now()
	if !a.initDone {
		if err := a.callInit(ctx, started); err != nil {
			return FireResultNotReady, err
		}
		a.initDone = true
	}
	width := a.folder.Width()

	for len(a.pending) < width {
		front, ok := a.in.Front()
		if !ok {
			if a.maybeFinish(a.in.Size() == 0 && len(a.pending) == 0) {
				return FireResultFinished, nil
			}
			return FireResultNotReady, nil
		}

		if !a.barrierHeld {
			admitted, isBarrier := a.admitBarrier(ctx, front)
			if !admitted {
				return FireResultNotReady, nil
			}
			a.barrierHeld = true
			a.isBarrier = isBarrier
		}

		e, ok := a.in.Pop()
		if !ok {
			return FireResultNotReady, nil
		}
		a.pending = append(a.pending, e)
	}

	if a.out != nil && !a.out.Reserve() {
		return FireResultNotReady, nil
	}

	a.setState(ArrowActive)
	parts := a.pending
	a.pending = nil
	isBarrier := a.isBarrier
	a.barrierHeld = false
	a.isBarrier = false
	defer a.releaseBarrierAdmission(ctx, isBarrier)

	merged, err := a.callFold(ctx, parts, started)
	if err != nil {
		if a.out != nil {
			a.out.Unreserve()
		}
		return FireResultNotReady, err
	}

	for _, p := range parts {
		if p != merged {
			a.pool.Put(p)
		}
	}
	if a.out != nil {
		a.out.PushReserved(merged)
	}
	return FireResultSuccess, nil
}

func (a *FoldArrow) callInit(ctx context.Context, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "init", started); rec != nil {
			err = rec
		}
	}()
	if e := a.folder.Init(ctx); e != nil {
		return wrapCallback(ComponentInitFailure, a.name, "", "init", e, started)
	}
	return nil
}

func (a *FoldArrow) callFold(ctx context.Context, parts []*Event, started time.Time) (merged *Event, err error) {
	defer func() {
		if rec := recoverCallback(a.name, "", "fold", started); rec != nil {
			err = rec
		}
	}()
	m, e2 := a.folder.Fold(ctx, parts, a.pool)
	if e2 != nil {
		return nil, wrapCallback(CallbackException, a.name, "", "fold", e2, started)
	}
	return m, nil
}
