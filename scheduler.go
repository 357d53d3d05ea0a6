package jana2

import "sync"

// Scheduler decides which Arrow a free Worker should Fire next. Exactly one
// Scheduler instance is shared by all Workers in a Topology.
type Scheduler interface {
	// NextAssignment returns the Arrow a worker with the given worker id
	// should Fire next, or nil if no arrow currently has assignable work
	// (the worker should idle-backoff). A returned arrow has its
	// thread_count already incremented; the caller must pass it to
	// ReleaseAssignment once Fire returns.
	NextAssignment(workerID int, lastArrow Arrow) Arrow
	// ReleaseAssignment decrements the thread_count of an arrow previously
	// handed out by NextAssignment, once the worker's Fire call on it has
	// returned.
	ReleaseAssignment(a Arrow)
	// ThreadCount returns the total worker slots this scheduler is
	// configured to drive.
	ThreadCount() int
	// SetThreadCount updates the scheduler's total worker slot count,
	// used by ProcessingController.Scale.
	SetThreadCount(n int)
}

// threadCounter is implemented by arrowBase; schedulers assert Arrow values
// against it to track per-arrow thread_count without widening the public
// Arrow interface.
type threadCounter interface {
	incThreadCount()
	decThreadCount()
}

// RoundRobinScheduler assigns workers to arrows in strict rotation among
// arrows that are ArrowActive and not ArrowFinished, skipping arrows whose
// ThreadCount already meets or exceeds the number of workers the scheduler
// is willing to assign to a single non-parallel arrow.
type RoundRobinScheduler struct {
	mu          sync.Mutex
	arrows      []Arrow
	cursor      int
	threadCount int
}

// NewRoundRobinScheduler creates a RoundRobinScheduler driving the given
// arrows in topological (wiring) order.
func NewRoundRobinScheduler(arrows []Arrow, threadCount int) *RoundRobinScheduler {
	return &RoundRobinScheduler{arrows: arrows, threadCount: threadCount}
}

// NextAssignment implements Scheduler. An arrow is assignable when it is
// active (not ArrowFinished) and either parallel or currently idle
// (thread_count == 0) — is_active ∧ (is_parallel ∨ thread_count = 0) — so a
// non-parallel arrow already Fire-ing on another worker is skipped rather
// than double-assigned.
func (s *RoundRobinScheduler) NextAssignment(workerID int, lastArrow Arrow) Arrow {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.arrows)
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		idx := (s.cursor + i) % n
		a := s.arrows[idx]
		if a.State() == ArrowFinished {
			continue
		}
		if !a.IsParallel() && a.ThreadCount() != 0 {
			continue
		}
		s.cursor = (idx + 1) % n
		if tc, ok := a.(threadCounter); ok {
			tc.incThreadCount()
		}
		return a
	}
	return nil
}

// ReleaseAssignment implements Scheduler.
func (s *RoundRobinScheduler) ReleaseAssignment(a Arrow) {
	if a == nil {
		return
	}
	if tc, ok := a.(threadCounter); ok {
		tc.decThreadCount()
	}
}

// ThreadCount implements Scheduler.
func (s *RoundRobinScheduler) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadCount
}

// SetThreadCount implements Scheduler.
func (s *RoundRobinScheduler) SetThreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadCount = n
}

// FixedAssignment pins a worker id to a specific arrow index, for topologies
// that want deterministic worker-to-arrow affinity (e.g. one worker per
// detector subsystem source).
type FixedAssignment struct {
	WorkerID  int
	ArrowName string
}

// FixedScheduler assigns each worker id a fixed arrow according to a
// configured table, falling back to round-robin among unassigned workers.
// Rebalance atomically replaces the assignment table, matching the teacher
// connector library's mutex-guarded SetWorkerCount/SetProcessors mutation
// idiom for live components.
type FixedScheduler struct {
	mu          sync.Mutex
	arrows      []Arrow
	byName      map[string]Arrow
	assignment  map[int]string // workerID -> arrow name
	threadCount int
	fallback    *RoundRobinScheduler
}

// NewFixedScheduler creates a FixedScheduler over arrows with the given
// initial assignment table.
func NewFixedScheduler(arrows []Arrow, assignment []FixedAssignment, threadCount int) *FixedScheduler {
	byName := make(map[string]Arrow, len(arrows))
	for _, a := range arrows {
		byName[a.Name()] = a
	}
	table := make(map[int]string, len(assignment))
	for _, fa := range assignment {
		table[fa.WorkerID] = fa.ArrowName
	}
	return &FixedScheduler{
		arrows:      arrows,
		byName:      byName,
		assignment:  table,
		threadCount: threadCount,
		fallback:    NewRoundRobinScheduler(arrows, threadCount),
	}
}

// NextAssignment implements Scheduler. A worker with a fixed-table entry
// gets that arrow whenever it is still assignable (is_active ∧ (is_parallel
// ∨ thread_count = 0)); otherwise it falls back to round-robin among the
// rest, exactly like a worker with no table entry at all.
func (s *FixedScheduler) NextAssignment(workerID int, lastArrow Arrow) Arrow {
	s.mu.Lock()
	name, ok := s.assignment[workerID]
	s.mu.Unlock()
	if !ok {
		return s.fallback.NextAssignment(workerID, lastArrow)
	}
	s.mu.Lock()
	a, ok := s.byName[name]
	s.mu.Unlock()
	if !ok || a.State() == ArrowFinished || (!a.IsParallel() && a.ThreadCount() != 0) {
		return s.fallback.NextAssignment(workerID, lastArrow)
	}
	if tc, ok := a.(threadCounter); ok {
		tc.incThreadCount()
	}
	return a
}

// ReleaseAssignment implements Scheduler.
func (s *FixedScheduler) ReleaseAssignment(a Arrow) {
	s.fallback.ReleaseAssignment(a)
}

// ThreadCount implements Scheduler.
func (s *FixedScheduler) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadCount
}

// SetThreadCount implements Scheduler.
func (s *FixedScheduler) SetThreadCount(n int) {
	s.mu.Lock()
	s.threadCount = n
	s.mu.Unlock()
	s.fallback.SetThreadCount(n)
}

// Rebalance atomically replaces the worker-to-arrow assignment table.
func (s *FixedScheduler) Rebalance(assignment []FixedAssignment) {
	table := make(map[int]string, len(assignment))
	for _, fa := range assignment {
		table[fa.WorkerID] = fa.ArrowName
	}
	s.mu.Lock()
	s.assignment = table
	s.mu.Unlock()
}
