package jana2

import (
	"context"
	"sync"
	"testing"
)

// fakeSource emits n events then FailFinished, matching spec scenario 1
// ("bounded source, 1 thread").
type fakeSource struct {
	mu     sync.Mutex
	n      int
	emitted int
	opened bool
	closed bool
}

func (s *fakeSource) Open(ctx context.Context) error {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) Emit(ctx context.Context, e *Event) (FailResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitted >= s.n {
		return FailFinished, nil
	}
	s.emitted++
	return Success, nil
}

// fakeProcessor counts invocations and records init/finish calls.
type fakeProcessor struct {
	mu        sync.Mutex
	processed int
	inits     int
	finishes  int
}

func (p *fakeProcessor) Init(ctx context.Context) error {
	p.mu.Lock()
	p.inits++
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessor) Process(ctx context.Context, e *Event) error {
	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessor) Finish(ctx context.Context) error {
	p.mu.Lock()
	p.finishes++
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessor) snapshot() (processed, inits, finishes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.inits, p.finishes
}

// fakeSplitter routes even-numbered events to output 0, odd to output 1.
type fakeSplitter struct{}

func (fakeSplitter) Init(ctx context.Context) error { return nil }
func (fakeSplitter) Route(ctx context.Context, e *Event) (int, error) {
	return int(e.EventNumber % 2), nil
}

// fakeFolder merges parts by reusing the first part's storage as output.
type fakeFolder struct{ width int }

func (f *fakeFolder) Init(ctx context.Context) error { return nil }
func (f *fakeFolder) Width() int                      { return f.width }
func (f *fakeFolder) Fold(ctx context.Context, parts []*Event, pool *EventPool) (*Event, error) {
	merged := parts[0]
	merged.Level = LevelPhysicsEvent
	return merged, nil
}

func newTestPool() *EventPool {
	return NewEventPool(PoolConfig{MaxInflight: 8, Locations: 1})
}

func TestSourceArrowFiresUntilExhaustedThenFinishes(t *testing.T) {
	pool := newTestPool()
	out := NewQueue("out", QueueConfig{Capacity: 4})
	src := NewSourceArrow("src", &fakeSource{n: 2}, pool)
	src.attachOutput(out)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := src.Fire(ctx)
		if err != nil {
			t.Fatalf("unexpected error on Fire %d: %v", i, err)
		}
		if res != FireResultSuccess {
			t.Fatalf("expected FireResultSuccess on Fire %d, got %v", i, res)
		}
	}
	if out.Size() != 2 {
		t.Fatalf("expected 2 events pushed downstream, got %d", out.Size())
	}

	res, err := src.Fire(ctx)
	if err != nil {
		t.Fatalf("unexpected error on exhausting Fire: %v", err)
	}
	if res != FireResultFinished {
		t.Fatalf("expected FireResultFinished once the source is exhausted, got %v", res)
	}
	if src.State() != ArrowFinished {
		t.Fatalf("expected arrow state Finished, got %v", src.State())
	}
}

func TestMapArrowProcessesAndForwards(t *testing.T) {
	in := NewQueue("in", QueueConfig{Capacity: 4})
	out := NewQueue("out", QueueConfig{Capacity: 4})
	e := newEvent(0)
	in.TryPush(e)

	proc := &fakeProcessor{}
	m := NewMapArrow("m", proc)
	m.attachInput(in)
	m.attachOutput(out)

	res, err := m.Fire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != FireResultSuccess {
		t.Fatalf("expected FireResultSuccess, got %v", res)
	}
	if processed, inits, _ := proc.snapshot(); processed != 1 || inits != 1 {
		t.Fatalf("expected one init and one process call, got processed=%d inits=%d", processed, inits)
	}
	if out.Size() != 1 {
		t.Fatalf("expected event forwarded to output, got size %d", out.Size())
	}
}

func TestMapArrowLeavesInputInPlaceWhenOutputFull(t *testing.T) {
	in := NewQueue("in", QueueConfig{Capacity: 4})
	out := NewQueue("out", QueueConfig{Capacity: 1})
	out.TryPush(newEvent(0)) // fill output to capacity

	e := newEvent(0)
	in.TryPush(e)

	m := NewMapArrow("m", &fakeProcessor{})
	m.attachInput(in)
	m.attachOutput(out)

	res, err := m.Fire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != FireResultNotReady {
		t.Fatalf("expected FireResultNotReady when output is full, got %v", res)
	}
	if in.Size() != 1 {
		t.Fatalf("expected event to remain at the front of the input queue, got size %d", in.Size())
	}
	front, ok := in.Front()
	if !ok || front != e {
		t.Fatalf("expected the original event still at the front, got %+v ok=%v", front, ok)
	}
}

func TestSplitArrowRoutesByIndex(t *testing.T) {
	in := NewQueue("in", QueueConfig{Capacity: 4})
	out0 := NewQueue("out0", QueueConfig{Capacity: 4})
	out1 := NewQueue("out1", QueueConfig{Capacity: 4})

	even := newEvent(0)
	even.EventNumber = 2
	odd := newEvent(0)
	odd.EventNumber = 3
	in.TryPush(even)
	in.TryPush(odd)

	s := NewSplitArrow("split", fakeSplitter{}, out0, out1)
	s.attachInput(in)

	ctx := context.Background()
	if _, err := s.Fire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Fire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out0.Size() != 1 {
		t.Fatalf("expected even event routed to out0, got size %d", out0.Size())
	}
	if out1.Size() != 1 {
		t.Fatalf("expected odd event routed to out1, got size %d", out1.Size())
	}
}

func TestFoldArrowAccumulatesBeforeProducing(t *testing.T) {
	in := NewQueue("in", QueueConfig{Capacity: 4})
	out := NewQueue("out", QueueConfig{Capacity: 4})
	pool := newTestPool()

	in.TryPush(newEvent(0))

	f := NewFoldArrow("fold", &fakeFolder{width: 2}, pool)
	f.attachInput(in)
	f.attachOutput(out)

	ctx := context.Background()
	res, err := f.Fire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != FireResultNotReady {
		t.Fatalf("expected FireResultNotReady with only one of two parts accumulated, got %v", res)
	}
	if out.Size() != 0 {
		t.Fatalf("expected nothing produced yet, got size %d", out.Size())
	}

	in.TryPush(newEvent(0))
	res, err = f.Fire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != FireResultSuccess {
		t.Fatalf("expected FireResultSuccess once both parts accumulated, got %v", res)
	}
	if out.Size() != 1 {
		t.Fatalf("expected one merged event produced, got size %d", out.Size())
	}
}

func TestSinkArrowRetiresEventsToPool(t *testing.T) {
	in := NewQueue("in", QueueConfig{Capacity: 4})
	pool := newTestPool()
	e, err := pool.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error acquiring event: %v", err)
	}
	in.TryPush(e)

	proc := &fakeProcessor{}
	sink := NewSinkArrow("sink", pool).WithProcessor(proc)
	sink.attachInput(in)

	res, err := sink.Fire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != FireResultSuccess {
		t.Fatalf("expected FireResultSuccess, got %v", res)
	}
	if sink.Completed() != 1 {
		t.Fatalf("expected Completed() == 1, got %d", sink.Completed())
	}
	if processed, _, _ := proc.snapshot(); processed != 1 {
		t.Fatalf("expected the observer processed the event once, got %d", processed)
	}
}
