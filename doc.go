// Package jana2 provides a multithreaded, streaming event-processing engine
// for high-energy and nuclear physics reconstruction.
//
// # Overview
//
// The engine pulls events from one or more user-supplied Sources, pushes
// them through a pipeline of Arrows (map/tap/split/fold/sink stages wired
// into a Topology), and retires them at sustained high throughput across
// many worker goroutines. Two computation models operate on an event as it
// travels the pipeline:
//
//   - Factories lazily compute and memoize typed collections on demand,
//     exactly once per event, no matter how many Processors ask for them.
//   - Processors observe (or, if declared non-parallel, mutate) events as
//     they pass through, without owning the event's lifecycle.
//
// # Installation
//
//	go get github.com/jana2-go/jana2
//
// Requires Go 1.23+ for generic type constraints.
//
// # Core Concepts
//
// The public surface an embedder drives is ProcessingController:
//
//	ctrl := jana2.NewController(topo)
//	if err := ctrl.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	ctrl.Run(4)
//	summary := ctrl.MeasurePerformance()
//	ctrl.RequestStop()
//	ctrl.WaitUntilStopped()
//
// A Topology is built from Arrows connected by Queues:
//
//	topo := jana2.NewTopology()
//	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 64})
//	src := jana2.NewSourceArrow("reader", mySource, pool)
//	mapper := jana2.NewMapArrow("reconstruct", myProcessor)
//	sink := jana2.NewSinkArrow("writer", pool)
//	topo.Connect(src, mapper, jana2.QueueConfig{Capacity: 16})
//	topo.Connect(mapper, sink, jana2.QueueConfig{Capacity: 16})
//
// # Factories
//
// A Factory[T] is registered on an Event's FactorySet and computed lazily
// the first time any Processor calls jana2.Get[T]:
//
//	type TrackFactory struct{ jana2.BaseFactory[Track] }
//
//	func (f *TrackFactory) Process(ctx context.Context, e *jana2.Event) ([]Track, error) {
//	    hits, err := jana2.Get[Hit](ctx, e, "")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return reconstructTracks(hits), nil
//	}
//
// # Design philosophy
//
// Carried from the connector library this engine's ambient stack is
// grounded on:
//
//   - Components are uniform behind small interfaces (Arrow.Fire,
//     Factory[T].Process) so the scheduler and worker loop never need to
//     know about a stage's concrete kind.
//   - Queues and pools are the only state shared across goroutines; every
//     other structure (a Factory, an Event's factory set) is effectively
//     goroutine-local for the duration one worker owns it.
//   - The EventPool backpressure-stall timer and the worker idle backoff go
//     through an injected clockz.Clock, so they are deterministically
//     testable with a fake clock; other timestamps use the time package.
//   - Observability (metricz counters/gauges, tracez spans, hookz typed
//     lifecycle hooks, capitan structured signals) is wired in from the
//     start, not bolted on.
//
// For runnable topologies, see the demos package. For the resilience
// helpers (retry, circuit breaker, rate limiter, fallback) a Processor
// author can compose with, see the arrowkit package.
package jana2
