package jana2

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"
)

var (
	errNotInitialized = errors.New("controller not initialized")
	errNotRunning     = errors.New("controller not running")
)

func numCPU() int { return runtime.NumCPU() }

// ProcessingController is the public façade an embedder drives: it owns
// the worker pool, starts/stops/pauses the topology, and reports
// performance. It generalizes the teacher connector library's own
// SetWorkerCount/Close idiom to a whole running topology rather than one
// connector.
type ProcessingController struct {
	topo      *Topology
	scheduler Scheduler

	mu          sync.Mutex
	workers     []*Worker
	cancel      context.CancelFunc
	startedAt   time.Time
	stopOnce    sync.Once
	stoppedCh   chan struct{}
	initialized bool
	exitCode    int
}

// NewController creates a ProcessingController over topo, using a
// RoundRobinScheduler over topo's registered arrows unless overridden with
// WithScheduler before Initialize.
func NewController(topo *Topology) *ProcessingController {
	return &ProcessingController{
		topo:      topo,
		stoppedCh: make(chan struct{}),
	}
}

// WithScheduler overrides the default RoundRobinScheduler. Must be called
// before Initialize.
func (c *ProcessingController) WithScheduler(s Scheduler) *ProcessingController {
	c.scheduler = s
	return c
}

// Initialize wires the scheduler (if not already set), initializes the
// topology, and prepares the controller to Run.
func (c *ProcessingController) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return &EngineError{Kind: InvalidWiring, Component: "ProcessingController", Err: errAlreadyInitialized}
	}
	if c.scheduler == nil {
		c.scheduler = NewRoundRobinScheduler(c.topo.Arrows(), 1)
	}
	if err := c.topo.Initialize(context.Background()); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run launches nthreads worker goroutines against the topology. Passing
// jana2.Ncores requests one worker per available CPU.
func (c *ProcessingController) Run(nthreads int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return &EngineError{Kind: InvalidWiring, Component: "ProcessingController", Err: errNotInitialized}
	}
	if nthreads == Ncores {
		nthreads = numCPU()
	}
	if nthreads < 1 {
		nthreads = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.startedAt = time.Now()
	c.scheduler.SetThreadCount(nthreads)

	c.workers = make([]*Worker, 0, nthreads)
	for i := 0; i < nthreads; i++ {
		w := NewWorker(i, c.scheduler).WithTopology(c.topo)
		c.workers = append(c.workers, w)
		go w.Run(ctx)
	}
	return nil
}

// Scale grows or shrinks the live worker pool to n workers.
func (c *ProcessingController) Scale(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return &EngineError{Kind: InvalidWiring, Component: "ProcessingController", Err: errNotRunning}
	}
	if n < 1 {
		n = 1
	}
	current := len(c.workers)
	if n > current {
		for i := current; i < n; i++ {
			w := NewWorker(i, c.scheduler).WithTopology(c.topo)
			c.workers = append(c.workers, w)
			go w.Run(c.runningCtx())
		}
	} else if n < current {
		for i := n; i < current; i++ {
			c.workers[i].Stop()
		}
		c.workers = c.workers[:n]
	}
	c.scheduler.SetThreadCount(n)
	emitSignal(context.Background(), SignalTicker, FieldThreadCount.Field(n))
	return nil
}

// runningCtx reconstructs the running context for newly scaled-up workers.
// Scale only adds workers while the controller's top-level context (from
// Run) is still live, so a fresh Background-derived context tied to no
// cancellation would outlive a Stop; instead workers are stopped explicitly
// via Worker.Stop in that case. We reuse context.Background here because
// RequestStop also calls Stop on every worker directly.
func (c *ProcessingController) runningCtx() context.Context {
	return context.Background()
}

// RequestPause transitions the topology to Paused. Worker goroutines keep
// running, but each one checks the topology state before every round and
// idles without asking the scheduler for an assignment until Resume.
func (c *ProcessingController) RequestPause() error {
	return c.topo.Pause(context.Background())
}

// WaitUntilPaused blocks until the topology reports TopologyPaused or ctx
// is done.
func (c *ProcessingController) WaitUntilPaused(ctx context.Context) error {
	return c.waitForState(ctx, TopologyPaused)
}

// Resume resumes a paused topology.
func (c *ProcessingController) Resume() error {
	return c.topo.Resume(context.Background())
}

// RequestStop signals every worker to stop and marks the topology Finished.
// It does not drain the topology: sources are not finished first, and
// events still queued or in flight when the workers stop are not retired.
// Idempotent.
func (c *ProcessingController) RequestStop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		workers := make([]*Worker, len(c.workers))
		copy(workers, c.workers)
		cancel := c.cancel
		c.mu.Unlock()

		for _, w := range workers {
			w.Stop()
		}
		if cancel != nil {
			cancel()
		}
		_ = c.topo.Finish(context.Background())
		close(c.stoppedCh)
	})
	return nil
}

// WaitUntilStopped blocks until RequestStop has completed and every worker
// goroutine has returned.
func (c *ProcessingController) WaitUntilStopped() {
	<-c.stoppedCh
	c.mu.Lock()
	workers := make([]*Worker, len(c.workers))
	copy(workers, c.workers)
	c.mu.Unlock()
	for _, w := range workers {
		<-w.Done()
	}
}

// IsFinished reports whether the topology has reached TopologyFinished.
func (c *ProcessingController) IsFinished() bool {
	return c.topo.State() == TopologyFinished
}

// GetExitCode returns the process exit code recorded for this run, 0 unless
// set by SetExitCode (e.g. from an embedder's signal handler).
func (c *ProcessingController) GetExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// SetExitCode records the process exit code to report via GetExitCode.
func (c *ProcessingController) SetExitCode(code int) {
	c.mu.Lock()
	c.exitCode = code
	c.mu.Unlock()
}

// MeasurePerformance assembles a PerfSummary snapshot across every arrow
// and worker currently registered with the controller.
func (c *ProcessingController) MeasurePerformance() PerfSummary {
	c.mu.Lock()
	workers := make([]*Worker, len(c.workers))
	copy(workers, c.workers)
	startedAt := c.startedAt
	threadCount := c.scheduler.ThreadCount()
	c.mu.Unlock()

	arrows := c.topo.Arrows()
	summary := PerfSummary{
		ThreadCount: threadCount,
		Uptime:      time.Since(startedAt),
	}
	for _, a := range arrows {
		as := summarizeArrow(a)
		summary.Arrows = append(summary.Arrows, as)
		summary.TotalEventsCompleted += as.TotalMessagesCompleted
	}
	for _, w := range workers {
		summary.Workers = append(summary.Workers, w.Summary())
	}
	if summary.Uptime > 0 {
		summary.ThroughputHz = float64(summary.TotalEventsCompleted) / summary.Uptime.Seconds()
	}
	summary.MonotonicEventsCompleted = summary.TotalEventsCompleted
	summary.LatestEventsCompleted = summary.TotalEventsCompleted
	return summary
}

func (c *ProcessingController) waitForState(ctx context.Context, want TopologyState) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if c.topo.State() == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return &EngineError{Kind: Interrupted, Component: "ProcessingController", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
