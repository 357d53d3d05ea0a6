package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jana2-go/jana2"
	"github.com/jana2-go/jana2/arrowkit"
)

// flakyDetectorRead fails every third call, simulating a detector readout
// stage prone to transient hiccups.
type flakyDetectorRead struct{ calls uint64 }

func (p *flakyDetectorRead) Init(ctx context.Context) error   { return nil }
func (p *flakyDetectorRead) Finish(ctx context.Context) error { return nil }
func (p *flakyDetectorRead) Process(ctx context.Context, e *jana2.Event) error {
	n := atomic.AddUint64(&p.calls, 1)
	if n%3 == 0 {
		return errors.New("detector readout timed out")
	}
	return nil
}

// runResilientSourceDemo wires arrowkit's retry and circuit-breaker
// connectors around a flaky stage inside a real topology, demonstrating
// that transient failures are absorbed without the event being dropped.
func runResilientSourceDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := jana2.NewSourceArrow("emit", &countingEmitSource{limit: 60}, pool)

	flaky := &flakyDetectorRead{}
	retried := arrowkit.NewRetryProcessor("readout_retry", flaky, 3)
	guarded := arrowkit.NewCircuitBreakerProcessor("readout_breaker", retried, 5, 50*time.Millisecond)
	stage := jana2.NewMapArrow("readout", guarded)
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("resilient-source")
	topo.Connect(src, stage, jana2.QueueConfig{Capacity: 8})
	topo.Connect(stage, sink, jana2.QueueConfig{Capacity: 8})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(2); err != nil {
		panic(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for sink.Completed() < 60 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	fmt.Printf("resilient source demo: completed=%d raw_detector_calls=%d breaker_state=%s\n",
		sink.Completed(), atomic.LoadUint64(&flaky.calls), guarded.GetState())
}
