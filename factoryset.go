package jana2

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// factoryKey identifies a factory slot by its output type and tag.
type factoryKey struct {
	typ reflect.Type
	tag string
}

// FactorySet is the (type, tag) → Factory map owned by exactly one Event.
// Lookup is O(1). A FactorySet is obtained from the EventPool along with
// its Event and is cleared, not reallocated, when the event is recycled.
type FactorySet struct {
	mu    sync.Mutex
	slots map[factoryKey]anyFactory
}

func newFactorySet() *FactorySet {
	return &FactorySet{slots: make(map[factoryKey]anyFactory)}
}

func (fs *FactorySet) clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, f := range fs.slots {
		f.clearData()
	}
}

// registerFactory binds a user Factory[T] into this event's factory set
// under its declared tag, replacing any previously auto-registered stub for
// the same (type, tag). Intended for Sources/Topology wiring that registers
// factories explicitly rather than relying on lazy auto-vivification.
func (fs *FactorySet) registerFactory(key factoryKey, f anyFactory) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.slots[key] = f
}

// getOrCreateTypedFactory returns the typedFactory[T] for (T, tag) on event
// e, lazily creating an unbound one (with no registered Factory[T]) on
// first access from Insert. Get requires a Factory[T] to already be
// registered — either explicitly via Topology wiring, or implicitly when
// the event's source/factory registry auto-vivifies one per the
// create-on-demand protocol.
func getOrCreateTypedFactory[T any](e *Event, tag string) *typedFactory[T] {
	key := factoryKey{typ: reflect.TypeOf((*T)(nil)).Elem(), tag: tag}

	e.factories.mu.Lock()
	defer e.factories.mu.Unlock()

	if existing, ok := e.factories.slots[key]; ok {
		tf, ok := existing.(*typedFactory[T])
		if !ok {
			panic(fmt.Sprintf("jana2: factory slot %v has wrong concrete type %T", key, existing))
		}
		return tf
	}

	tf := newTypedFactory[T](&insertOnlyFactory[T]{tag: tag})
	e.factories.slots[key] = tf
	return tf
}

// RegisterFactory binds a user Factory[T] into event e's factory set under
// f's own Tag, so a later Get[T](ctx, e, f.Tag()) is served by f instead of
// auto-vivifying the insert-only stub. A Source or Topology wiring step
// calls this once per event for every Factory it wants live on that event;
// Get still lazily invokes Process on first use, preserving the
// create-on-demand protocol.
func RegisterFactory[T any](e *Event, f Factory[T]) {
	key := factoryKey{typ: reflect.TypeOf((*T)(nil)).Elem(), tag: f.Tag()}
	e.factories.registerFactory(key, newTypedFactory[T](f))
}

// insertOnlyFactory is the placeholder Factory[T] bound to a typed slot
// that has only ever been populated via Insert, never registered with a
// real Factory[T]. Its Process returns FactoryNotFound, matching the
// protocol's failure semantics for a tag nobody produces.
type insertOnlyFactory[T any] struct {
	BaseFactory[T]
	tag string
}

func (f *insertOnlyFactory[T]) Process(ctx context.Context, e *Event) ([]T, error) {
	return nil, &EngineError{
		Kind:      FactoryNotFound,
		Component: fmt.Sprintf("%T", *new(T)),
		Callback:  "process",
		Err:       fmt.Errorf("no factory registered for tag %q", f.tag),
	}
}
