// Package integration implements spec.md §8's six numbered end-to-end
// scenarios against the public jana2 API, one test per scenario.
package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jana2-go/jana2"
)

type boundedSource struct {
	emitted uint64
	limit   uint64
}

func (s *boundedSource) Open(context.Context) error  { return nil }
func (s *boundedSource) Close(context.Context) error { return nil }
func (s *boundedSource) Emit(_ context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if atomic.LoadUint64(&s.emitted) >= s.limit {
		return jana2.FailFinished, nil
	}
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

type countingProcessor struct {
	mu    sync.Mutex
	seen  int
	inits int
	fins  int
}

func (p *countingProcessor) Init(context.Context) error {
	p.mu.Lock()
	p.inits++
	p.mu.Unlock()
	return nil
}

func (p *countingProcessor) Finish(context.Context) error {
	p.mu.Lock()
	p.fins++
	p.mu.Unlock()
	return nil
}

func (p *countingProcessor) Process(context.Context, *jana2.Event) error {
	p.mu.Lock()
	p.seen++
	p.mu.Unlock()
	return nil
}

// Scenario 1: bounded source, 1 thread.
func TestScenarioBoundedSourceOneThread(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := jana2.NewSourceArrow("emit", &boundedSource{limit: 5}, pool)
	proc := &countingProcessor{}
	stage := jana2.NewMapArrow("count", proc)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology()
	topo.Connect(src, stage, jana2.QueueConfig{Capacity: 4})
	topo.Connect(stage, sink, jana2.QueueConfig{Capacity: 4})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(1); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.Completed() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.seen != 5 {
		t.Errorf("expected processor to see exactly 5 events, saw %d", proc.seen)
	}
	if proc.inits != 1 {
		t.Errorf("expected init called once, got %d", proc.inits)
	}
	if proc.fins != 1 {
		t.Errorf("expected finish called once, got %d", proc.fins)
	}
}

type unboundedSource struct{ emitted uint64 }

func (s *unboundedSource) Open(context.Context) error  { return nil }
func (s *unboundedSource) Close(context.Context) error { return nil }
func (s *unboundedSource) Emit(_ context.Context, e *jana2.Event) (jana2.FailResult, error) {
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

// Scenario 2: unbounded source, manual stop.
func TestScenarioUnboundedSourceManualStop(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := &unboundedSource{}
	srcArrow := jana2.NewSourceArrow("emit", src, pool)
	proc := &countingProcessor{}
	sink := jana2.NewSinkArrow("sink", pool).WithProcessor(proc)

	topo := jana2.NewTopology()
	topo.Connect(srcArrow, sink, jana2.QueueConfig{Capacity: 8})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(1); err != nil {
		t.Fatalf("run: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	processed := sink.Completed()
	emitted := atomic.LoadUint64(&src.emitted)

	if processed == 0 {
		t.Error("expected events_processed > 0")
	}
	proc.mu.Lock()
	fins := proc.fins
	proc.mu.Unlock()
	if fins != 1 {
		t.Errorf("expected finish called once, got %d", fins)
	}
	if processed != emitted {
		t.Errorf("expected events_processed == events_emitted, got processed=%d emitted=%d", processed, emitted)
	}
}

type barrierSource struct{ emitted uint64 }

func (s *barrierSource) Open(context.Context) error  { return nil }
func (s *barrierSource) Close(context.Context) error { return nil }
func (s *barrierSource) Emit(_ context.Context, e *jana2.Event) (jana2.FailResult, error) {
	n := atomic.LoadUint64(&s.emitted)
	if n >= 100 {
		return jana2.FailFinished, nil
	}
	atomic.AddUint64(&s.emitted, 1)
	e.EventNumber = n + 1
	e.Sequential = (n+1)%10 == 0
	return jana2.Success, nil
}

type barrierCounter struct {
	mu        sync.Mutex
	global    uint64
	violation string
}

func (p *barrierCounter) Init(context.Context) error   { return nil }
func (p *barrierCounter) Finish(context.Context) error { return nil }
func (p *barrierCounter) Process(ctx context.Context, e *jana2.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Sequential {
		p.global++
	}
	want := e.EventNumber / 10
	if p.global != want && p.violation == "" {
		p.violation = "global counter diverged from event_number/10"
	}
	return nil
}

// Scenario 3: barrier every 10, 4 threads.
func TestScenarioBarrierEveryTen(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 16, Locations: 1})
	src := jana2.NewSourceArrow("emit", &barrierSource{}, pool)
	counter := &barrierCounter{}
	stage := jana2.NewMapArrow("barrier_check", counter)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology()
	topo.Connect(src, stage, jana2.QueueConfig{Capacity: 16})
	topo.Connect(stage, sink, jana2.QueueConfig{Capacity: 16})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(4); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for sink.Completed() < 100 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.violation != "" {
		t.Error(counter.violation)
	}
	if counter.global != 10 {
		t.Errorf("expected global counter to reach 10 after 100 events, got %d", counter.global)
	}
}

type pressureSource struct{ emitted uint64 }

func (s *pressureSource) Open(context.Context) error  { return nil }
func (s *pressureSource) Close(context.Context) error { return nil }
func (s *pressureSource) Emit(_ context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if atomic.LoadUint64(&s.emitted) >= 30 {
		return jana2.FailFinished, nil
	}
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

type lingeringStage struct{}

func (lingeringStage) Init(context.Context) error   { return nil }
func (lingeringStage) Finish(context.Context) error { return nil }
func (lingeringStage) Process(context.Context, *jana2.Event) error {
	time.Sleep(3 * time.Millisecond)
	return nil
}

// Scenario 4: queue pressure, chunksize=1, max_inflight=3.
func TestScenarioQueuePressure(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 3, Locations: 1})
	src := jana2.NewSourceArrow("emit", &pressureSource{}, pool)
	stage := jana2.NewMapArrow("linger", lingeringStage{})
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology()
	topo.Connect(src, stage, jana2.QueueConfig{Capacity: 1})
	topo.Connect(stage, sink, jana2.QueueConfig{Capacity: 1})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(4); err != nil {
		t.Fatalf("run: %v", err)
	}

	var peak int32
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n := int32(pool.InFlight()); n > atomic.LoadInt32(&peak) {
					atomic.StoreInt32(&peak, n)
				}
			}
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for sink.Completed() < 30 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(stop)
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	if got := atomic.LoadInt32(&peak); got > 3 {
		t.Errorf("expected peak in-flight events never to exceed 3, observed %d", got)
	}
}

type tallyStage struct{ handled uint64 }

func (p *tallyStage) Init(context.Context) error   { return nil }
func (p *tallyStage) Finish(context.Context) error { return nil }
func (p *tallyStage) Process(context.Context, *jana2.Event) error {
	atomic.AddUint64(&p.handled, 1)
	return nil
}

// Scenario 5: fixed scheduler rebalance.
func TestScenarioFixedSchedulerRebalance(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 16, Locations: 1})
	src := jana2.NewSourceArrow("emit", &boundedSource{limit: 400}, pool)
	multiply := &tallyStage{}
	multiplyArrow := jana2.NewMapArrow("multiply", multiply)
	sum := &tallyStage{}
	sumArrow := jana2.NewMapArrow("sum", sum)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology()
	topo.Connect(src, multiplyArrow, jana2.QueueConfig{Capacity: 32})
	topo.Connect(multiplyArrow, sumArrow, jana2.QueueConfig{Capacity: 32})
	topo.Connect(sumArrow, sink, jana2.QueueConfig{Capacity: 32})

	sched := jana2.NewFixedScheduler(topo.Arrows(), []jana2.FixedAssignment{
		{WorkerID: 0, ArrowName: "emit"},
		{WorkerID: 1, ArrowName: "multiply"},
		{WorkerID: 2, ArrowName: "sum"},
	}, 3)

	ctrl := jana2.NewController(topo).WithScheduler(sched)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(3); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.Completed() < 200 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sumBefore := atomic.LoadUint64(&sum.handled)

	sched.Rebalance([]jana2.FixedAssignment{
		{WorkerID: 0, ArrowName: "emit"},
		{WorkerID: 1, ArrowName: "sum"},
		{WorkerID: 2, ArrowName: "sum"},
	})

	deadline = time.Now().Add(2 * time.Second)
	for sink.Completed() < 400 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	sumAfter := atomic.LoadUint64(&sum.handled)
	if sumAfter <= sumBefore {
		t.Errorf("expected sum arrow's handled count to increase after rebalance, before=%d after=%d", sumBefore, sumAfter)
	}
}

type trackHit struct{ X, Y, Z float64 }

type trackFactory struct {
	jana2.BaseFactory[trackHit]
	calls uint64
}

func (f *trackFactory) Process(context.Context, *jana2.Event) ([]trackHit, error) {
	atomic.AddUint64(&f.calls, 1)
	return []trackHit{{X: 1, Y: 2, Z: 3}}, nil
}

type registeringReader struct{ factory *trackFactory }

func (p *registeringReader) Init(context.Context) error   { return nil }
func (p *registeringReader) Finish(context.Context) error { return nil }
func (p *registeringReader) Process(ctx context.Context, e *jana2.Event) error {
	jana2.RegisterFactory[trackHit](e, p.factory)
	_, err := jana2.Get[trackHit](ctx, e, p.factory.Tag())
	return err
}

type plainReader struct{ tag string }

func (p *plainReader) Init(context.Context) error   { return nil }
func (p *plainReader) Finish(context.Context) error { return nil }
func (p *plainReader) Process(ctx context.Context, e *jana2.Event) error {
	_, err := jana2.Get[trackHit](ctx, e, p.tag)
	return err
}

// Scenario 6: factory caching across two readers.
func TestScenarioFactoryCaching(t *testing.T) {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := jana2.NewSourceArrow("emit", &boundedSource{limit: 20}, pool)

	factory := &trackFactory{}
	factory.FactoryName = "tracking"
	factory.FactoryTag = "tracks"
	readerA := jana2.NewMapArrow("read_a", &registeringReader{factory: factory})
	readerB := jana2.NewMapArrow("read_b", &plainReader{tag: "tracks"})
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology()
	topo.Connect(src, readerA, jana2.QueueConfig{Capacity: 8})
	topo.Connect(readerA, readerB, jana2.QueueConfig{Capacity: 8})
	topo.Connect(readerB, sink, jana2.QueueConfig{Capacity: 8})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.Run(2); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.Completed() < 20 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	calls := atomic.LoadUint64(&factory.calls)
	completed := sink.Completed()
	if calls != completed {
		t.Errorf("expected factory Process invoked exactly once per event (%d), got %d", completed, calls)
	}
}
