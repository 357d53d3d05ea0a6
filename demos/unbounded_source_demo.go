package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jana2-go/jana2"
)

// freeRunningSource never reports FailFinished on its own; it emits as fast
// as it is asked to.
type freeRunningSource struct{ emitted uint64 }

func (s *freeRunningSource) Open(ctx context.Context) error  { return nil }
func (s *freeRunningSource) Close(ctx context.Context) error { return nil }
func (s *freeRunningSource) Emit(ctx context.Context, e *jana2.Event) (jana2.FailResult, error) {
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

// runUnboundedSourceDemo implements scenario 2: an unbounded source run for
// a fixed wall-clock window, then stopped manually via RequestStop.
// RequestStop does not drain the topology, so events_processed falls short
// of events_emitted by the events still queued when the workers stopped.
func runUnboundedSourceDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 32, Locations: 1})
	src := &freeRunningSource{}
	srcArrow := jana2.NewSourceArrow("emit", src, pool)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("unbounded-source")
	topo.Connect(srcArrow, sink, jana2.QueueConfig{Capacity: 32})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(1); err != nil {
		panic(err)
	}

	time.Sleep(500 * time.Millisecond)
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	emitted := atomic.LoadUint64(&src.emitted)
	fmt.Printf("unbounded source demo: events_emitted=%d events_processed=%d\n", emitted, sink.Completed())
}
