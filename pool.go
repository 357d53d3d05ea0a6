package jana2

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// backpressureStallInterval is how long EventPool.Get waits with no
// progress before emitting SignalBackpressureStall.
const backpressureStallInterval = 500 * time.Millisecond

// PoolConfig configures an EventPool's capacity and NUMA sharding.
type PoolConfig struct {
	MaxInflight int
	Locations   int // number of NUMA partitions; 1 disables sharding
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxInflight <= 0 {
		c.MaxInflight = 64
	}
	if c.Locations <= 0 {
		c.Locations = 1
	}
	return c
}

// EventPool is a bounded, NUMA-partitioned free list of Events. Get blocks
// (respecting ctx cancellation) when max_inflight events are already in
// flight; Put returns an event to its originating partition and bumps its
// generation. Grounded on the teacher connector library's WorkerPool
// semaphore-plus-clock pattern, generalized from a fixed worker count to a
// free list of recyclable Events.
type EventPool struct {
	cfg   PoolConfig
	clock clockz.Clock

	mu    sync.Mutex
	sems  []chan struct{} // one semaphore per location, capacity max_inflight/locations
	free  [][]*Event      // one free list per location
}

// NewEventPool creates an EventPool bounded by cfg.MaxInflight, split evenly
// across cfg.Locations NUMA partitions.
func NewEventPool(cfg PoolConfig) *EventPool {
	cfg = cfg.withDefaults()
	perLoc := cfg.MaxInflight / cfg.Locations
	if perLoc <= 0 {
		perLoc = 1
	}
	p := &EventPool{
		cfg:   cfg,
		clock: clockz.RealClock,
		sems:  make([]chan struct{}, cfg.Locations),
		free:  make([][]*Event, cfg.Locations),
	}
	for i := range p.sems {
		p.sems[i] = make(chan struct{}, perLoc)
	}
	return p
}

// WithClock overrides the pool's clock, for deterministic backpressure-stall
// tests via clockz.NewFakeClock().
func (p *EventPool) WithClock(clock clockz.Clock) *EventPool {
	p.clock = clock
	return p
}

// MaxInflight returns the pool's configured bound.
func (p *EventPool) MaxInflight() int { return p.cfg.MaxInflight }

// InFlight reports the number of events currently checked out across every
// location, for diagnostics and demos observing backpressure behavior.
func (p *EventPool) InFlight() int { return p.inflight() }

// TryGet acquires an Event from the given location's free list without
// blocking, allocating a new one if the partition has spare capacity.
// It reports ok=false immediately if max_inflight is already reached for
// that location — the non-blocking contract Fire implementations require,
// since a Fire must never park a worker goroutine waiting on pool capacity
// (the worker that would free a slot downstream may be the very one
// blocked here).
func (p *EventPool) TryGet(location int) (e *Event, ok bool) {
	location = p.normalize(location)
	sem := p.sems[location]

	select {
	case sem <- struct{}{}:
		return p.takeOrAllocate(location), true
	default:
		return nil, false
	}
}

// Get acquires an Event from the given location's free list, allocating a
// new one if the partition has spare capacity, or blocking until one is
// returned via Put or ctx is canceled. Blocking past the configured stall
// interval emits SignalBackpressureStall. For use outside a Fire call path
// (e.g. test setup, administrative tooling) — SourceArrow.Fire uses the
// non-blocking TryGet instead.
func (p *EventPool) Get(ctx context.Context, location int) (*Event, error) {
	location = p.normalize(location)
	sem := p.sems[location]

	select {
	case sem <- struct{}{}:
		return p.takeOrAllocate(location), nil
	default:
	}

	stallTimer := p.clock.After(backpressureStallInterval)
	for {
		select {
		case sem <- struct{}{}:
			return p.takeOrAllocate(location), nil
		case <-ctx.Done():
			return nil, &EngineError{Kind: Interrupted, Component: "EventPool", Err: ctx.Err()}
		case <-stallTimer:
			globalMetrics().Counter(MetricBackpressureStalls).Inc()
			emitSignal(ctx, SignalBackpressureStall, FieldComponent.Field("EventPool"))
			stallTimer = p.clock.After(backpressureStallInterval)
		}
	}
}

// Put clears and returns e to its originating location's free list, bumping
// its generation so stale references become detectable.
func (p *EventPool) Put(e *Event) {
	location := p.normalize(e.location)
	e.reset()
	e.location = location

	p.mu.Lock()
	p.free[location] = append(p.free[location], e)
	p.mu.Unlock()

	<-p.sems[location]
	globalMetrics().Gauge(MetricEventsInFlight).Set(float64(p.inflight()))
}

func (p *EventPool) takeOrAllocate(location int) *Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free[location])
	var e *Event
	if n > 0 {
		e = p.free[location][n-1]
		p.free[location] = p.free[location][:n-1]
	} else {
		e = newEvent(location)
	}
	globalMetrics().Gauge(MetricEventsInFlight).Set(float64(p.inflightLocked()))
	return e
}

func (p *EventPool) inflight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflightLocked()
}

func (p *EventPool) inflightLocked() int {
	total := 0
	for _, s := range p.sems {
		total += len(s)
	}
	return total
}

func (p *EventPool) normalize(location int) int {
	if location < 0 || location >= len(p.sems) {
		return 0
	}
	return location
}
