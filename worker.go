package jana2

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// WorkerSummary is a point-in-time snapshot of one Worker's timing
// breakdown, rolled up into PerfSummary by ProcessingController.
// MeasurePerformance. Field shape carried from the original engine's
// per-worker performance record.
type WorkerSummary struct {
	WorkerID         int
	CPUID            int
	Pinned           bool
	Heartbeat        time.Time
	TotalUsefulTime  time.Duration
	TotalRetryTime   time.Duration
	TotalIdleTime    time.Duration
	TotalSchedTime   time.Duration
	LastUsefulTime   time.Duration
	LastRetryTime    time.Duration
	LastIdleTime     time.Duration
	LastSchedTime    time.Duration
	SchedulerVisits  uint64
	LastArrowName    string
}

// idleBackoff is how long a worker sleeps after an unproductive scheduler
// round before asking the scheduler again, via clockz.Clock.After so tests
// can drive it deterministically.
const idleBackoff = 2 * time.Millisecond

// Worker runs one goroutine that repeatedly asks the Scheduler for an
// assignment, Fires it, and accumulates timing. Idle backoff always goes
// through an injected clockz.Clock, never a bare time.Sleep, so idle/retry
// behavior is testable with clockz.NewFakeClock() exactly as the resilience
// helpers test their own backoffs.
type Worker struct {
	id        int
	scheduler Scheduler
	topology  *Topology // optional; enables pause-awareness
	clock     clockz.Clock
	pinOS     bool

	mu        sync.Mutex
	summary   WorkerSummary
	lastArrow Arrow

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWorker creates a Worker with the given id, driven by scheduler.
func NewWorker(id int, scheduler Scheduler) *Worker {
	return &Worker{
		id:        id,
		scheduler: scheduler,
		clock:     clockz.RealClock,
		summary:   WorkerSummary{WorkerID: id, CPUID: -1},
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// WithTopology makes the worker pause-aware: while topology reports
// TopologyPaused, the worker idles instead of asking the scheduler for
// assignments.
func (w *Worker) WithTopology(t *Topology) *Worker {
	w.topology = t
	return w
}

// WithClock overrides the worker's clock, for deterministic tests.
func (w *Worker) WithClock(clock clockz.Clock) *Worker {
	w.clock = clock
	return w
}

// WithOSThreadPin requests runtime.LockOSThread for this worker's goroutine,
// for embedders that need CPU affinity (e.g. NUMA-local event pools).
func (w *Worker) WithOSThreadPin(pin bool) *Worker {
	w.pinOS = pin
	return w
}

// Summary returns a copy of this worker's current timing summary.
func (w *Worker) Summary() WorkerSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

// Run executes the worker loop until ctx is canceled or Stop is called.
// ProcessingController.Run and Scale launch it in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)

	if w.pinOS {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		if w.topology != nil && w.topology.State() == TopologyPaused {
			w.idle(ctx)
			continue
		}

		schedStart := w.clock.Now()
		arrow := w.scheduler.NextAssignment(w.id, w.lastArrow)
		schedElapsed := w.clock.Now().Sub(schedStart)

		w.mu.Lock()
		w.summary.TotalSchedTime += schedElapsed
		w.summary.LastSchedTime = schedElapsed
		w.summary.SchedulerVisits++
		w.mu.Unlock()

		if arrow == nil {
			w.idle(ctx)
			continue
		}
		w.lastArrow = arrow

		fireStart := w.clock.Now()
		result, err := arrow.Fire(ctx)
		elapsed := w.clock.Now().Sub(fireStart)
		w.scheduler.ReleaseAssignment(arrow)

		w.mu.Lock()
		w.summary.Heartbeat = w.clock.Now()
		w.summary.LastArrowName = arrow.Name()
		switch {
		case err != nil:
			w.summary.TotalRetryTime += elapsed
			w.summary.LastRetryTime = elapsed
		case result == FireResultNotReady:
			w.summary.TotalIdleTime += elapsed
			w.summary.LastIdleTime = elapsed
		default:
			w.summary.TotalUsefulTime += elapsed
			w.summary.LastUsefulTime = elapsed
		}
		w.mu.Unlock()

		if err != nil {
			emitSignal(ctx, SignalCallbackException,
				FieldComponent.Field(arrow.Name()),
				FieldErrorMessage.Field(err.Error()))
		}
		if result == FireResultNotReady {
			w.idle(ctx)
		}
	}
}

func (w *Worker) idle(ctx context.Context) {
	idleStart := w.clock.Now()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-w.clock.After(idleBackoff):
	}
	elapsed := w.clock.Now().Sub(idleStart)
	w.mu.Lock()
	w.summary.TotalIdleTime += elapsed
	w.summary.LastIdleTime = elapsed
	w.mu.Unlock()
}

// Stop signals the worker loop to exit at its next opportunity by closing
// stopCh; a later call finds stopCh already closed and does nothing.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

// Done returns a channel closed once the worker's Run loop has returned.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }
