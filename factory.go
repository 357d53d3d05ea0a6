package jana2

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status tracks a factory's lifecycle state with respect to the event it is
// currently bound to.
type Status int

const (
	Uninitialized Status = iota
	Unprocessed
	Processed
	Inserted
)

func (s Status) String() string {
	switch s {
	case Unprocessed:
		return "Unprocessed"
	case Processed:
		return "Processed"
	case Inserted:
		return "Inserted"
	default:
		return "Uninitialized"
	}
}

// CreationStatus records how a factory's output came to exist, for
// diagnostics and for the "omni-factory" case where one Process call
// populates several tags at once.
type CreationStatus int

const (
	NotCreatedYet CreationStatus = iota
	CreatedHere
	CreatedInternally
	ReturnedFromCache
)

// Factory[T] lazily computes and memoizes a []T for a single Event, at most
// once, regardless of how many callers ask for it. It mirrors the teacher
// connector library's Chainable[T]: a generic, context-aware, single-method
// unit of work, uniform regardless of concrete type T.
type Factory[T any] interface {
	// Name identifies this factory for diagnostics, tracing, and error
	// attribution.
	Name() string
	// Tag distinguishes multiple factories producing the same type T.
	Tag() string
	// Init is called once, lazily, before the first Process call on any
	// event bound to this factory's type/tag.
	Init(ctx context.Context) error
	// ChangeRun is called whenever an event's RunNumber differs from the
	// last RunNumber this factory observed, after EndRun (when an earlier
	// run was seen) and before BeginRun.
	ChangeRun(ctx context.Context, runNumber uint32) error
	// BeginRun is called after ChangeRun, before the first Process call for
	// the new run.
	BeginRun(ctx context.Context, runNumber uint32) error
	// EndRun is called when the run number is about to change away from
	// the run this factory last processed.
	EndRun(ctx context.Context, runNumber uint32) error
	// Process computes this factory's output collection for event e.
	Process(ctx context.Context, e *Event) ([]T, error)
	// ClearData releases any factory-owned resources associated with the
	// cached output before the event is recycled — the counterpart to the
	// original engine's JFactory::ClearData. Most factories have nothing to
	// release; BaseFactory supplies a no-op default.
	ClearData(ctx context.Context) error
	// Regenerate reports whether this factory's output should be
	// recomputed even if a cached value already exists for the event
	// (used by factories whose output depends on external mutable state).
	Regenerate() bool
}

// BaseFactory is embedded by concrete Factory[T] implementations to supply
// no-op defaults for the lifecycle callbacks a factory does not care about,
// matching the teacher library's preference for small, focused overrides
// over boilerplate interface satisfaction.
type BaseFactory[T any] struct {
	FactoryName string
	FactoryTag  string
}

func (b *BaseFactory[T]) Name() string { return b.FactoryName }
func (b *BaseFactory[T]) Tag() string  { return b.FactoryTag }
func (b *BaseFactory[T]) Init(ctx context.Context) error                        { return nil }
func (b *BaseFactory[T]) ChangeRun(ctx context.Context, runNumber uint32) error  { return nil }
func (b *BaseFactory[T]) BeginRun(ctx context.Context, runNumber uint32) error   { return nil }
func (b *BaseFactory[T]) EndRun(ctx context.Context, runNumber uint32) error     { return nil }
func (b *BaseFactory[T]) ClearData(ctx context.Context) error                   { return nil }
func (b *BaseFactory[T]) Regenerate() bool                                      { return false }

// anyFactory is the non-generic handle a FactorySet stores so that
// factories over heterogeneous T can share one map keyed by (type, tag).
// typedFactory[T] below is the only implementation.
type anyFactory interface {
	name() string
	tag() string
	status() Status
	clearData()
}

// typedFactory binds a user Factory[T] to a single Event's lifecycle: init
// state, last-seen run number, and the memoized output slice.
type typedFactory[T any] struct {
	mu sync.Mutex

	user           Factory[T]
	initialized    bool
	lastRunNumber  uint32
	haveSeenRun    bool
	status         Status
	creationStatus CreationStatus
	data           []T
	err            error
}

func newTypedFactory[T any](user Factory[T]) *typedFactory[T] {
	return &typedFactory[T]{user: user, status: Unprocessed}
}

func (f *typedFactory[T]) name() string { return f.user.Name() }
func (f *typedFactory[T]) tag() string  { return f.user.Tag() }

func (f *typedFactory[T]) status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *typedFactory[T]) clearData() {
	f.mu.Lock()
	user := f.user
	wasInitialized := f.initialized
	f.data = nil
	f.err = nil
	f.status = Unprocessed
	f.creationStatus = NotCreatedYet
	f.mu.Unlock()

	if !wasInitialized {
		return
	}
	if err := f.callClearData(context.Background(), user, time.Now()); err != nil {
		emitSignal(context.Background(), SignalCallbackException,
			FieldComponent.Field(user.Name()),
			FieldErrorMessage.Field(err.Error()))
	}
}

func (f *typedFactory[T]) callClearData(ctx context.Context, user Factory[T], started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(user.Name(), "", "clear_data", started); rec != nil {
			err = rec
		}
	}()
	if e := user.ClearData(ctx); e != nil {
		return wrapCallback(CallbackException, user.Name(), "", "clear_data", e, started)
	}
	return nil
}

// getOrProcess implements the create-on-demand protocol:
//  1. If already Processed or Inserted for this event and Regenerate()
//     is false, return the cached output.
//  2. Lazily Init the factory on first use.
//  3. If the event's run number differs from the last one this factory
//     processed, invoke EndRun (if a run was previously seen), then
//     ChangeRun, then BeginRun.
//  4. Invoke Process, wrapping panics and errors with component
//     attribution.
//  5. Memoize the result (or the error) and mark Processed.
func (f *typedFactory[T]) getOrProcess(ctx context.Context, e *Event) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if (f.status == Processed || f.status == Inserted) && !f.user.Regenerate() {
		f.creationStatus = ReturnedFromCache
		return f.data, f.err
	}

	started := time.Now()
	tracer := globalTracer()
	ctx, span := tracer.StartSpan(ctx, SpanFactoryProcess)
	defer span.Finish()
	span.SetTag(TagFactoryType, fmt.Sprintf("%T", f.user))

	if !f.initialized {
		if err := f.callInit(ctx, started); err != nil {
			f.err = err
			return nil, err
		}
		f.initialized = true
	}

	if !f.haveSeenRun || f.lastRunNumber != e.RunNumber {
		if f.haveSeenRun {
			if err := f.callEndRun(ctx, f.lastRunNumber, started); err != nil {
				f.err = err
				return nil, err
			}
		}
		if err := f.callChangeRun(ctx, e.RunNumber, started); err != nil {
			f.err = err
			return nil, err
		}
		if err := f.callBeginRun(ctx, e.RunNumber, started); err != nil {
			f.err = err
			return nil, err
		}
		f.lastRunNumber = e.RunNumber
		f.haveSeenRun = true
	}

	data, err := f.callProcess(ctx, e, started)
	if err != nil {
		f.err = err
		f.status = Processed
		span.SetTag(TagError, err.Error())
		return nil, err
	}
	f.data = data
	f.err = nil
	f.status = Processed
	f.creationStatus = CreatedHere
	globalMetrics().Counter(MetricFactoryProcessed).Inc()
	return f.data, nil
}

func (f *typedFactory[T]) callInit(ctx context.Context, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(f.user.Name(), "", "init", started); rec != nil {
			err = rec
		}
	}()
	if e := f.user.Init(ctx); e != nil {
		return wrapCallback(ComponentInitFailure, f.user.Name(), "", "init", e, started)
	}
	return nil
}

func (f *typedFactory[T]) callChangeRun(ctx context.Context, run uint32, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(f.user.Name(), "", "change_run", started); rec != nil {
			err = rec
		}
	}()
	if e := f.user.ChangeRun(ctx, run); e != nil {
		return wrapCallback(CallbackException, f.user.Name(), "", "change_run", e, started)
	}
	return nil
}

func (f *typedFactory[T]) callBeginRun(ctx context.Context, run uint32, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(f.user.Name(), "", "begin_run", started); rec != nil {
			err = rec
		}
	}()
	if e := f.user.BeginRun(ctx, run); e != nil {
		return wrapCallback(CallbackException, f.user.Name(), "", "begin_run", e, started)
	}
	return nil
}

func (f *typedFactory[T]) callEndRun(ctx context.Context, run uint32, started time.Time) (err error) {
	defer func() {
		if rec := recoverCallback(f.user.Name(), "", "end_run", started); rec != nil {
			err = rec
		}
	}()
	if e := f.user.EndRun(ctx, run); e != nil {
		return wrapCallback(CallbackException, f.user.Name(), "", "end_run", e, started)
	}
	return nil
}

func (f *typedFactory[T]) callProcess(ctx context.Context, e *Event, started time.Time) (data []T, err error) {
	defer func() {
		if rec := recoverCallback(f.user.Name(), "", "process", started); rec != nil {
			err = rec
		}
	}()
	out, e2 := f.user.Process(ctx, e)
	if e2 != nil {
		if engErr, ok := e2.(*EngineError); ok {
			return nil, engErr
		}
		return nil, wrapCallback(CallbackException, f.user.Name(), "", "process", e2, started)
	}
	return out, nil
}
