package jana2

import (
	"context"
	"sync"
	"sync/atomic"
)

// Kind identifies an Arrow's role in the topology.
type Kind int

const (
	KindSource Kind = iota
	KindMap
	KindTap
	KindSplit
	KindFold
	KindSink
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "Source"
	case KindMap:
		return "Map"
	case KindTap:
		return "Tap"
	case KindSplit:
		return "Split"
	case KindFold:
		return "Fold"
	case KindSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// ArrowState tracks an Arrow's lifecycle within a running Topology.
type ArrowState int32

const (
	ArrowInactive ArrowState = iota
	ArrowActive
	ArrowFinished
)

// FireResult reports what a single Fire call accomplished, driving the
// Worker loop's timing classification (useful/retry/idle) and the
// scheduler's next-assignment decision.
type FireResult int

const (
	// FireResultSuccess means useful work was done and progress was made.
	FireResultSuccess FireResult = iota
	// FireResultNotReady means no input was available; the caller should
	// count this toward idle time and try a different arrow.
	FireResultNotReady
	// FireResultFinished means this arrow has no more work, ever.
	FireResultFinished
)

// Arrow is the uniform entry point the Scheduler and Worker depend on,
// regardless of which Kind a concrete arrow is — mirroring the teacher
// connector library's preference for one small Chainable-style method over
// a deep interface hierarchy per stage kind.
type Arrow interface {
	// Name identifies this arrow for diagnostics, tracing, and the
	// PerfSummary.
	Name() string
	// Kind reports the arrow's tagged-union variant.
	Kind() Kind
	// IsParallel reports whether more than one worker may Fire this arrow
	// concurrently.
	IsParallel() bool
	// ThreadCount returns the number of worker slots currently assigned to
	// this arrow by the Scheduler.
	ThreadCount() int
	// State returns the arrow's current lifecycle state.
	State() ArrowState
	// Fire performs one unit of work: pop (or read) input, apply the
	// component's Process-equivalent callback, push output. It must not
	// block indefinitely; FireResultNotReady signals "nothing to do right
	// now" rather than blocking the calling worker.
	Fire(ctx context.Context) (FireResult, error)
	// RunningUpstreams reports how many of this arrow's upstream arrows
	// are still ArrowActive — used to decide when a non-source arrow with
	// an empty input port should transition to ArrowFinished.
	RunningUpstreams() int
}

// arrowBase provides the shared bookkeeping (name, state, thread count,
// upstream tracking) every concrete Arrow variant embeds, matching the
// teacher connector library's convention of small embeddable base structs
// rather than one monolithic struct per connector.
type arrowBase struct {
	name       string
	kind       Kind
	isParallel bool
	isSource   bool
	isSink     bool
	chunksize  int

	state       int32 // ArrowState, accessed atomically
	threadCount int32 // accessed atomically

	mu               sync.Mutex
	upstreams        []Arrow
	runningUpstreams int32

	fireMu sync.Mutex

	topology *Topology // nil for arrows fired directly in unit tests, outside a Topology
}

// bindTopology wires this arrow back to the Topology that registered it, so
// its Fire implementation can gate on barrier admission. Implements
// topologyBinder.
func (b *arrowBase) bindTopology(t *Topology) { b.topology = t }

// admitBarrier gates admission of event e according to the topology's
// barrier protocol: a Sequential (barrier) event must drain the topology to
// isolation via enterBarrier before it may be popped and processed; any
// other event must check in via admitNonBarrier, which refuses admission
// while a barrier is active. Arrows fired outside a Topology (topology ==
// nil, e.g. direct unit-test construction) skip the protocol entirely and
// always admit.
func (b *arrowBase) admitBarrier(ctx context.Context, e *Event) (admitted, isBarrier bool) {
	if b.topology == nil {
		return true, false
	}
	if e.Sequential {
		return b.topology.enterBarrier(ctx), true
	}
	return b.topology.admitNonBarrier(), false
}

// releaseBarrierAdmission releases an admission granted by a prior,
// successful admitBarrier call.
func (b *arrowBase) releaseBarrierAdmission(ctx context.Context, isBarrier bool) {
	if b.topology == nil {
		return
	}
	if isBarrier {
		b.topology.releaseBarrier(ctx)
		return
	}
	b.topology.retireNonBarrier()
}

// fireGuard serializes Fire calls for non-parallel arrows, enforcing the
// invariant that at most one worker fires a given non-parallel arrow at a
// time; parallel arrows skip locking entirely and rely on the embedder's
// Processor being safe for concurrent use.
func (b *arrowBase) fireGuard() func() {
	if b.isParallel {
		return func() {}
	}
	b.fireMu.Lock()
	return b.fireMu.Unlock
}

func newArrowBase(name string, kind Kind, isParallel bool) arrowBase {
	return arrowBase{name: name, kind: kind, isParallel: isParallel, chunksize: 1}
}

func (b *arrowBase) Name() string { return b.name }
func (b *arrowBase) Kind() Kind   { return b.kind }
func (b *arrowBase) IsParallel() bool { return b.isParallel }

func (b *arrowBase) ThreadCount() int { return int(atomic.LoadInt32(&b.threadCount)) }

func (b *arrowBase) setThreadCount(n int) {
	if !b.isParallel && n > 1 {
		n = 1
	}
	atomic.StoreInt32(&b.threadCount, int32(n))
}

// incThreadCount and decThreadCount let a Scheduler track how many workers
// currently hold this arrow assigned, implementing the threadCounter
// interface scheduler.go asserts against.
func (b *arrowBase) incThreadCount() { atomic.AddInt32(&b.threadCount, 1) }
func (b *arrowBase) decThreadCount() {
	if atomic.AddInt32(&b.threadCount, -1) < 0 {
		atomic.StoreInt32(&b.threadCount, 0)
	}
}

func (b *arrowBase) State() ArrowState { return ArrowState(atomic.LoadInt32(&b.state)) }

func (b *arrowBase) setState(s ArrowState) { atomic.StoreInt32(&b.state, int32(s)) }

func (b *arrowBase) RunningUpstreams() int { return int(atomic.LoadInt32(&b.runningUpstreams)) }

func (b *arrowBase) setUpstreams(arrows []Arrow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upstreams = arrows
}

// refreshRunningUpstreams recomputes RunningUpstreams from the live state
// of this arrow's upstreams. Each non-source arrow calls it at the start of
// its own Fire.
func (b *arrowBase) refreshRunningUpstreams() {
	b.mu.Lock()
	ups := b.upstreams
	b.mu.Unlock()

	running := int32(0)
	for _, u := range ups {
		if u.State() != ArrowFinished {
			running++
		}
	}
	atomic.StoreInt32(&b.runningUpstreams, running)
}

// maybeFinish transitions a non-source arrow to ArrowFinished once it has
// no running upstreams left and (the caller asserts) no pending input,
// per the invariant: a non-source arrow is active iff at least one
// upstream is active or its input port is non-empty.
func (b *arrowBase) maybeFinish(inputEmpty bool) bool {
	if b.isSource {
		return false
	}
	if b.RunningUpstreams() == 0 && inputEmpty {
		b.setState(ArrowFinished)
		return true
	}
	return false
}
