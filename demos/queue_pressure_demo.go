package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jana2-go/jana2"
)

// slowSource emits freely but is paired with a max_inflight=3 pool: once 3
// events are outstanding the SourceArrow finds no free event and reports
// FireResultNotReady without calling Emit.
type slowSource struct{ emitted uint64 }

func (s *slowSource) Open(ctx context.Context) error  { return nil }
func (s *slowSource) Close(ctx context.Context) error { return nil }
func (s *slowSource) Emit(ctx context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if atomic.LoadUint64(&s.emitted) >= 50 {
		return jana2.FailFinished, nil
	}
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

// lingeringProcessor holds every event briefly before forwarding it, so the
// pool's in-flight count stays visibly non-zero long enough to observe.
type lingeringProcessor struct{}

func (p *lingeringProcessor) Init(ctx context.Context) error   { return nil }
func (p *lingeringProcessor) Finish(ctx context.Context) error { return nil }
func (p *lingeringProcessor) Process(ctx context.Context, e *jana2.Event) error {
	time.Sleep(5 * time.Millisecond)
	return nil
}

// runQueuePressureDemo implements scenario 4: chunksize=1 queues with
// max_inflight=3. A background watcher samples EventPool.InFlight while the
// topology runs; the observed peak must never exceed 3.
func runQueuePressureDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 3, Locations: 1})
	src := jana2.NewSourceArrow("emit", &slowSource{}, pool)
	mapArrow := jana2.NewMapArrow("linger", &lingeringProcessor{})
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("queue-pressure")
	topo.Connect(src, mapArrow, jana2.QueueConfig{Capacity: 1})
	topo.Connect(mapArrow, sink, jana2.QueueConfig{Capacity: 1})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(4); err != nil {
		panic(err)
	}

	var peak int32
	stopWatch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopWatch:
				return
			case <-ticker.C:
				n := int32(pool.InFlight())
				for {
					cur := atomic.LoadInt32(&peak)
					if n <= cur || atomic.CompareAndSwapInt32(&peak, cur, n) {
						break
					}
				}
			}
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for sink.Completed() < 50 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(stopWatch)
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	fmt.Printf("queue pressure demo: completed=%d peak_in_flight=%d (bound=3)\n", sink.Completed(), atomic.LoadInt32(&peak))
}
