package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jana2-go/jana2"
)

// countingSource emits events 1..n, then reports FailFinished.
type countingSource struct {
	n       uint64
	emitted uint64
}

func (s *countingSource) Open(ctx context.Context) error  { return nil }
func (s *countingSource) Close(ctx context.Context) error { return nil }
func (s *countingSource) Emit(ctx context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if s.emitted >= s.n {
		return jana2.FailFinished, nil
	}
	s.emitted++
	return jana2.Success, nil
}

// countingProcessor counts every event it sees.
type countingProcessor struct {
	mu    sync.Mutex
	seen  int
	inits int
	fins  int
}

func (p *countingProcessor) Init(ctx context.Context) error {
	p.mu.Lock()
	p.inits++
	p.mu.Unlock()
	return nil
}
func (p *countingProcessor) Finish(ctx context.Context) error {
	p.mu.Lock()
	p.fins++
	p.mu.Unlock()
	return nil
}
func (p *countingProcessor) Process(ctx context.Context, e *jana2.Event) error {
	p.mu.Lock()
	p.seen++
	p.mu.Unlock()
	return nil
}

// runBoundedSourceDemo implements scenario 1: a source bounded to 5 events
// on a single worker thread. The processor should see exactly 5 events,
// with Init and Finish each called exactly once.
func runBoundedSourceDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := jana2.NewSourceArrow("emit", &countingSource{n: 5}, pool)
	proc := &countingProcessor{}
	mapArrow := jana2.NewMapArrow("count", proc)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("bounded-source")
	topo.Connect(src, mapArrow, jana2.QueueConfig{Capacity: 8})
	topo.Connect(mapArrow, sink, jana2.QueueConfig{Capacity: 8})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(1); err != nil {
		panic(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.Completed() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	fmt.Printf("bounded source demo: processed=%d init_calls=%d finish_calls=%d completed=%d\n",
		proc.seen, proc.inits, proc.fins, sink.Completed())
}
