package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jana2-go/jana2"
)

// trackHit is the collection type the caching factory produces.
type trackHit struct{ X, Y, Z float64 }

// trackFactory computes trackHits exactly once per event no matter how many
// downstream readers call jana2.Get for its tag.
type trackFactory struct {
	jana2.BaseFactory[trackHit]
	calls uint64
}

func newTrackFactory() *trackFactory {
	f := &trackFactory{}
	f.FactoryName = "tracking"
	f.FactoryTag = "tracks"
	return f
}

func (f *trackFactory) Process(ctx context.Context, e *jana2.Event) ([]trackHit, error) {
	atomic.AddUint64(&f.calls, 1)
	return []trackHit{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, nil
}

// trackReaderA and trackReaderB both pull the same factory tag from the same
// event; only the first reader to touch a given event should trigger Process.
type trackReaderA struct{ factory *trackFactory }

func (p *trackReaderA) Init(ctx context.Context) error   { return nil }
func (p *trackReaderA) Finish(ctx context.Context) error { return nil }
func (p *trackReaderA) Process(ctx context.Context, e *jana2.Event) error {
	jana2.RegisterFactory[trackHit](e, p.factory)
	_, err := jana2.Get[trackHit](ctx, e, p.factory.Tag())
	return err
}

type trackReaderB struct{}

func (p *trackReaderB) Init(ctx context.Context) error   { return nil }
func (p *trackReaderB) Finish(ctx context.Context) error { return nil }
func (p *trackReaderB) Process(ctx context.Context, e *jana2.Event) error {
	_, err := jana2.Get[trackHit](ctx, e, "tracks")
	return err
}

// runFactoryCachingDemo implements scenario 6: two Map stages in the same
// topology both read the "tracks" factory tag off each event; the factory's
// internal call counter must equal the number of events, not twice that.
func runFactoryCachingDemo() {
	pool := jana2.NewEventPool(jana2.PoolConfig{MaxInflight: 8, Locations: 1})
	src := jana2.NewSourceArrow("emit", &countingEmitSource{limit: 40}, pool)

	factory := newTrackFactory()
	readerA := jana2.NewMapArrow("read_a", &trackReaderA{factory: factory})
	readerB := jana2.NewMapArrow("read_b", &trackReaderB{})
	sink := jana2.NewSinkArrow("sink", pool)

	topo := jana2.NewTopology().WithName("factory-caching")
	topo.Connect(src, readerA, jana2.QueueConfig{Capacity: 8})
	topo.Connect(readerA, readerB, jana2.QueueConfig{Capacity: 8})
	topo.Connect(readerB, sink, jana2.QueueConfig{Capacity: 8})

	ctrl := jana2.NewController(topo)
	if err := ctrl.Initialize(); err != nil {
		panic(err)
	}
	if err := ctrl.Run(2); err != nil {
		panic(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.Completed() < 40 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctrl.RequestStop()
	ctrl.WaitUntilStopped()

	calls := atomic.LoadUint64(&factory.calls)
	completed := sink.Completed()
	fmt.Printf("factory caching demo: completed=%d factory_process_calls=%d (want %d)\n", completed, calls, completed)
	if calls != completed {
		fmt.Println("factory caching demo: WARNING factory was recomputed instead of served from cache")
	}
}
