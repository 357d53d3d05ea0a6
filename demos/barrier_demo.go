package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jana2-go/jana2"
)

// barrierSource emits 100 events, flagging every 10th as Sequential.
type barrierSource struct{ emitted uint64 }

func (s *barrierSource) Open(ctx context.Context) error  { return nil }
func (s *barrierSource) Close(ctx context.Context) error { return nil }
func (s *barrierSource) Emit(ctx context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if s.emitted >= 100 {
		return jana2.FailFinished, nil
	}
	s.emitted++
	if s.emitted%10 == 0 {
		e.Sequential = true
	}
	return jana2.Success, nil
}

// barrierCounter increments a shared counter on barrier events and asserts
// it against event_number/10 on every event, failing loudly if the barrier
// isolation the topology promises was violated.
type barrierCounter struct {
	mu        sync.Mutex
	global    uint64
	violation string
}

func (p *barrierCounter) Init(ctx context.Context) error   { return nil }
func (p *barrierCounter) Finish(ctx context.Context) error { return nil }
func (p *barrierCounter) Process(ctx context.Context, e *jana2.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Sequential {
		p.global++
	}
	want := (e.EventNumber + 1) / 10
	if p.global != want {
		p.violation = fmt.Sprintf("event %d: global=%d want=%d", e.EventNumber, p.global, want)
	}
	return nil
}

// runBarrierDemo implements scenario 3: a 100-event run with every 10th
// event flagged sequential, run under 4 worker threads.
func runBarrierDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 16, Locations: 1})
	src := jana2.NewSourceArrow("emit", &barrierSource{}, pool)
	counter := &barrierCounter{}
	mapArrow := jana2.NewMapArrow("barrier_check", counter)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("barrier-every-10")
	topo.Connect(src, mapArrow, jana2.QueueConfig{Capacity: 16})
	topo.Connect(mapArrow, sink, jana2.QueueConfig{Capacity: 16})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(4); err != nil {
		panic(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for sink.Completed() < 100 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	counter.mu.Lock()
	violation := counter.violation
	global := counter.global
	counter.mu.Unlock()

	if violation != "" {
		fmt.Printf("barrier demo: FAILED: %s\n", violation)
		return
	}
	fmt.Printf("barrier demo: completed=%d barrier_hits=%d (no violations)\n", sink.Completed(), global)
}
