package jana2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/hookz"
)

var (
	errAlreadyInitialized = errors.New("topology already initialized")
	errBadTransition      = errors.New("invalid topology state transition")
)

// TopologyState tracks a Topology's lifecycle. Unopened -> Running is
// one-way; Running <-> Paused may cycle any number of times; the
// transition to Finished is terminal.
type TopologyState int32

const (
	TopologyUnopened TopologyState = iota
	TopologyRunning
	TopologyPaused
	TopologyFinished
)

func (s TopologyState) String() string {
	switch s {
	case TopologyRunning:
		return "Running"
	case TopologyPaused:
		return "Paused"
	case TopologyFinished:
		return "Finished"
	default:
		return "Unopened"
	}
}

// TopologyEvent is emitted via hookz on lifecycle transitions, letting an
// embedder observe topology state changes without polling, mirroring the
// teacher connector library's typed hookz.Hooks[Event] convention.
type TopologyEvent struct {
	Topology  string
	From      TopologyState
	To        TopologyState
	Timestamp time.Time
}

// Hook event keys for Topology lifecycle transitions.
const (
	TopologyEventStateChange = hookz.Key("topology.state_change")
	TopologyEventBarrier     = hookz.Key("topology.barrier")
)

// Topology is an immutable wiring of Arrows and Queues once initialized.
// Barrier (sequential) events are drained to quiescence before release:
// when a barrier event reaches the front of any queue, the topology stops
// admitting new non-barrier work on that branch until every in-flight event
// ahead of it has retired.
type Topology struct {
	mu     sync.Mutex
	arrows []Arrow
	queues []*Queue

	state int32 // TopologyState, atomic
	hooks *hookz.Hooks[TopologyEvent]
	name  string

	barrierActive bool
	nonBarrierInFlight int
}

// NewTopology creates an empty, Unopened Topology.
func NewTopology() *Topology {
	return &Topology{
		hooks: hookz.New[TopologyEvent](),
		name:  "topology",
	}
}

// WithName sets the topology's diagnostic name.
func (t *Topology) WithName(name string) *Topology {
	t.name = name
	return t
}

// Connect wires from's output to to's input through a new Queue configured
// by cfg, registers both arrows with the topology if not already present,
// and records from as an upstream of to, so that to does not finish while
// from is still running.
func (t *Topology) Connect(from, to Arrow, cfg QueueConfig) *Queue {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := NewQueue(fmt.Sprintf("%s->%s", from.Name(), to.Name()), cfg)
	t.queues = append(t.queues, q)
	t.registerLocked(from)
	t.registerLocked(to)

	switch f := from.(type) {
	case *SourceArrow:
		f.attachOutput(q)
	case *MapArrow:
		f.attachOutput(q)
	case *SplitArrow:
		// SplitArrow has multiple outputs wired directly at construction;
		// Connect is used only for its single input side.
	case *FoldArrow:
		f.attachOutput(q)
	}

	switch d := to.(type) {
	case *MapArrow:
		d.attachInput(q)
		d.setUpstreams(append(d.upstreams, from))
	case *SplitArrow:
		d.attachInput(q)
		d.setUpstreams(append(d.upstreams, from))
	case *FoldArrow:
		d.attachInput(q)
		d.setUpstreams(append(d.upstreams, from))
	case *SinkArrow:
		d.attachInput(q)
		d.setUpstreams(append(d.upstreams, from))
	}

	return q
}

// topologyBinder is implemented by arrowBase so Connect can wire each arrow
// back to its owning Topology for barrier gating, without widening the
// public Arrow interface.
type topologyBinder interface {
	bindTopology(t *Topology)
}

func (t *Topology) registerLocked(a Arrow) {
	for _, existing := range t.arrows {
		if existing == a {
			return
		}
	}
	t.arrows = append(t.arrows, a)
	if tb, ok := a.(topologyBinder); ok {
		tb.bindTopology(t)
	}
}

// Arrows returns the topology's registered arrows in registration order.
func (t *Topology) Arrows() []Arrow {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Arrow, len(t.arrows))
	copy(out, t.arrows)
	return out
}

// Queues returns the topology's registered queues in connection order.
func (t *Topology) Queues() []*Queue {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Queue, len(t.queues))
	copy(out, t.queues)
	return out
}

// State returns the topology's current lifecycle state.
func (t *Topology) State() TopologyState {
	return TopologyState(atomic.LoadInt32(&t.state))
}

// Initialize activates every registered source arrow and transitions the
// topology from Unopened to Running; upstream relationships are recorded
// earlier, by Connect. It is an error to call Initialize more than once.
func (t *Topology) Initialize(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.state, int32(TopologyUnopened), int32(TopologyRunning)) {
		return &EngineError{Kind: InvalidWiring, Component: t.name, Err: errAlreadyInitialized}
	}

	t.mu.Lock()
	arrows := make([]Arrow, len(t.arrows))
	copy(arrows, t.arrows)
	t.mu.Unlock()

	for _, a := range arrows {
		if a.Kind() == KindSource {
			switch src := a.(type) {
			case *SourceArrow:
				src.setState(ArrowActive)
			}
		}
	}

	t.emitStateChange(ctx, TopologyUnopened, TopologyRunning)
	return nil
}

// Pause transitions a Running topology to Paused. It is a no-op if already
// Paused, and an error if the topology is Unopened or Finished.
func (t *Topology) Pause(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.state, int32(TopologyRunning), int32(TopologyPaused)) {
		if t.State() == TopologyPaused {
			return nil
		}
		return &EngineError{Kind: InvalidWiring, Component: t.name, Err: errBadTransition}
	}
	t.emitStateChange(ctx, TopologyRunning, TopologyPaused)
	return nil
}

// Resume transitions a Paused topology back to Running.
func (t *Topology) Resume(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.state, int32(TopologyPaused), int32(TopologyRunning)) {
		if t.State() == TopologyRunning {
			return nil
		}
		return &EngineError{Kind: InvalidWiring, Component: t.name, Err: errBadTransition}
	}
	t.emitStateChange(ctx, TopologyPaused, TopologyRunning)
	return nil
}

// Finish transitions the topology to the terminal Finished state from
// either Running or Paused.
func (t *Topology) Finish(ctx context.Context) error {
	from := t.State()
	if from == TopologyFinished {
		return nil
	}
	atomic.StoreInt32(&t.state, int32(TopologyFinished))
	t.emitStateChange(ctx, from, TopologyFinished)
	emitSignal(ctx, SignalTopologyFinished, FieldComponent.Field(t.name))
	return nil
}

// IsFinished reports whether every registered arrow has reached
// ArrowFinished.
func (t *Topology) IsFinished() bool {
	t.mu.Lock()
	arrows := make([]Arrow, len(t.arrows))
	copy(arrows, t.arrows)
	t.mu.Unlock()

	for _, a := range arrows {
		if a.State() != ArrowFinished {
			return false
		}
	}
	return len(arrows) > 0
}

func (t *Topology) emitStateChange(ctx context.Context, from, to TopologyState) {
	if t.hooks.ListenerCount(TopologyEventStateChange) > 0 {
		_ = t.hooks.Emit(ctx, TopologyEventStateChange, TopologyEvent{
			Topology: t.name, From: from, To: to, Timestamp: time.Now(),
		})
	}
}

// OnStateChange registers a handler invoked asynchronously on every
// lifecycle transition.
func (t *Topology) OnStateChange(handler func(context.Context, TopologyEvent) error) error {
	_, err := t.hooks.Hook(TopologyEventStateChange, handler)
	return err
}

// OnBarrier registers a handler invoked each time a barrier (sequential)
// event enters isolation. Releasing the barrier emits only
// SignalBarrierReleased, not a hook event.
func (t *Topology) OnBarrier(handler func(context.Context, TopologyEvent) error) error {
	_, err := t.hooks.Hook(TopologyEventBarrier, handler)
	return err
}

// enterBarrier admits a sequential (barrier) event for processing, called by
// an arrow's Fire implementation that has peeked one at the front of its
// input queue. It only succeeds — and only then does the caller actually pop
// and process the event — once no barrier is already active and every
// non-barrier event admitted via admitNonBarrier has retired via
// retireNonBarrier; otherwise it reports false and the caller must return
// FireResultNotReady without popping, so the worker retries later rather
// than blocking. This is what gives the barrier invariant teeth: once true
// is returned, admitNonBarrier refuses every caller until releaseBarrier.
func (t *Topology) enterBarrier(ctx context.Context) bool {
	t.mu.Lock()
	if t.barrierActive || t.nonBarrierInFlight > 0 {
		t.mu.Unlock()
		return false
	}
	t.barrierActive = true
	t.mu.Unlock()

	emitSignal(ctx, SignalBarrierEntered, FieldComponent.Field(t.name))
	if t.hooks.ListenerCount(TopologyEventBarrier) > 0 {
		_ = t.hooks.Emit(ctx, TopologyEventBarrier, TopologyEvent{Topology: t.name, Timestamp: time.Now()})
	}
	return true
}

// releaseBarrier clears barrier isolation once the sequential event admitted
// by a matching enterBarrier call has been fully retired, re-opening
// admitNonBarrier to subsequent events.
func (t *Topology) releaseBarrier(ctx context.Context) {
	t.mu.Lock()
	t.barrierActive = false
	t.mu.Unlock()
	emitSignal(ctx, SignalBarrierReleased, FieldComponent.Field(t.name))
}

// admitNonBarrier registers one non-barrier event as in flight on an arrow
// downstream of the barrier flag. It refuses admission (returns false) while
// a barrier event is active, enforcing "no event is simultaneously in flight
// on any arrow downstream of the barrier flag" together with enterBarrier's
// symmetric drain check. Every true return must be paired with a
// retireNonBarrier call once the event finishes processing on that arrow.
func (t *Topology) admitNonBarrier() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.barrierActive {
		return false
	}
	t.nonBarrierInFlight++
	return true
}

// retireNonBarrier releases one admission granted by admitNonBarrier.
func (t *Topology) retireNonBarrier() {
	t.mu.Lock()
	t.nonBarrierInFlight--
	t.mu.Unlock()
}

// BarrierActive reports whether the topology currently has a sequential
// event draining to isolation.
func (t *Topology) BarrierActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.barrierActive
}
