package jana2

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Level identifies the granularity an Event represents in the physics
// hierarchy, from a single readout block up through an entire run.
type Level int

const (
	LevelNone Level = iota
	LevelSubevent
	LevelPhysicsEvent
	LevelTimeslice
	LevelBlock
	LevelRun
)

func (l Level) String() string {
	switch l {
	case LevelSubevent:
		return "Subevent"
	case LevelPhysicsEvent:
		return "PhysicsEvent"
	case LevelTimeslice:
		return "Timeslice"
	case LevelBlock:
		return "Block"
	case LevelRun:
		return "Run"
	default:
		return "None"
	}
}

// Event is the unit of work that flows through a Topology. Its identity
// fields (EventNumber, RunNumber, Level, Sequential) are immutable once
// emitted by a Source; its FactorySet is mutated only by the goroutine
// that currently owns the event.
//
// An Event is obtained from, and returned to, an EventPool; Generation
// increases each time the pool recycles the underlying struct, letting
// code that retained a *Event past a Put detect the staleness.
type Event struct {
	EventNumber uint64
	RunNumber   uint32
	Level       Level
	Sequential  bool // "barrier" flag: must be processed in isolation

	SourceName string
	PluginName string

	location   int   // NUMA/pool location this event was allocated from
	generation uint64 // bumped by the pool on every recycle

	mu       sync.Mutex
	factories *FactorySet
	parents   map[Level]*Event
}

// newEvent allocates a fresh Event bound to the given pool location. Called
// only by EventPool.
func newEvent(location int) *Event {
	return &Event{
		location:  location,
		factories: newFactorySet(),
		parents:   make(map[Level]*Event),
	}
}

// reset clears an Event's mutable state for reuse by the pool, bumping its
// generation so stale references become detectable.
func (e *Event) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EventNumber = 0
	e.RunNumber = 0
	e.Level = LevelNone
	e.Sequential = false
	e.SourceName = ""
	e.PluginName = ""
	e.factories.clear()
	for k := range e.parents {
		delete(e.parents, k)
	}
	atomic.AddUint64(&e.generation, 1)
}

// Generation reports the event's current recycle generation, for staleness
// checks against a previously captured value.
func (e *Event) Generation() uint64 {
	return atomic.LoadUint64(&e.generation)
}

// Location reports the NUMA/pool location this event was allocated from.
func (e *Event) Location() int {
	return e.location
}

// SetParent records the parent Event at a coarser Level, for hierarchical
// level relationships (e.g. a PhysicsEvent's parent Timeslice).
func (e *Event) SetParent(level Level, parent *Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parents[level] = parent
}

// Parent returns the parent Event at the given Level, if one was recorded.
func (e *Event) Parent(level Level) (*Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.parents[level]
	return p, ok
}

// String implements fmt.Stringer for log/trace attribution.
func (e *Event) String() string {
	tag := "event"
	if e.Sequential {
		tag = "barrier-event"
	}
	return fmt.Sprintf("%s#%d(run=%d,level=%s)", tag, e.EventNumber, e.RunNumber, e.Level)
}

// Insert stores pre-computed values of type T under the given tag, marking
// the corresponding factory Inserted rather than Processed. Useful for
// Sources that produce raw collections directly rather than through a
// registered Factory.
func Insert[T any](e *Event, tag string, values []T) {
	f := getOrCreateTypedFactory[T](e, tag)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = values
	f.status = Inserted
	f.creationStatus = CreatedInternally
}

// Get lazily computes (if necessary) and returns the typed collection tagged
// tag on event e, per the create-on-demand protocol of FactorySet.
func Get[T any](ctx context.Context, e *Event, tag string) ([]T, error) {
	f := getOrCreateTypedFactory[T](e, tag)
	return f.getOrProcess(ctx, e)
}

// GetCollection is an alias of Get using the default (empty) tag.
func GetCollection[T any](ctx context.Context, e *Event) ([]T, error) {
	return Get[T](ctx, e, "")
}
