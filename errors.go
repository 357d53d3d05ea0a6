package jana2

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an engine-level failure. See §7 of the design for
// the full taxonomy.
type ErrorKind string

const (
	// ComponentInitFailure is returned when a Source, Processor, or
	// Factory fails during its init/open lifecycle callback.
	ComponentInitFailure ErrorKind = "ComponentInitFailure"
	// CallbackException wraps a panic or error raised from user code,
	// attributed to the component, plugin, and callback that raised it.
	CallbackException ErrorKind = "CallbackException"
	// BackpressureStall is raised when the event pool has been exhausted
	// with no progress for longer than the configured stall interval.
	BackpressureStall ErrorKind = "BackpressureStall"
	// TimeoutExceeded is raised when a single event exceeds its
	// configured per-event wall-clock budget.
	TimeoutExceeded ErrorKind = "TimeoutExceeded"
	// Interrupted is raised when a signal handler or embedder calls
	// RequestStop while work is in flight.
	Interrupted ErrorKind = "Interrupted"
	// FactoryNotFound is raised when an event's FactorySet has no entry
	// for the requested (type, tag) pair.
	FactoryNotFound ErrorKind = "FactoryNotFound"
	// QueueOverflow indicates an internal invariant violation: a push
	// was attempted that would have exceeded a queue's capacity.
	QueueOverflow ErrorKind = "QueueOverflow"
	// InvalidWiring is raised when a Topology is wired inconsistently
	// (e.g. an arrow with a dangling port) before initialization.
	InvalidWiring ErrorKind = "InvalidWiring"
)

// EngineError provides rich attribution for an engine-level failure: which
// component, plugin, and callback raised it, when, and how long the
// callback ran before failing. It generalizes the teacher connector
// library's per-processor *Error[T] to the engine's component model.
type EngineError struct {
	Kind      ErrorKind
	Component string // arrow/factory/processor name
	Plugin    string // logical grouping the component belongs to, if any
	Callback  string // lifecycle callback name (init, process, emit, ...)
	Err       error
	Timestamp time.Time
	Duration  time.Duration
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e == nil {
		return "<nil>"
	}
	loc := e.Component
	if e.Callback != "" {
		loc = fmt.Sprintf("%s.%s", loc, e.Callback)
	}
	if e.Plugin != "" {
		loc = fmt.Sprintf("%s[%s]", loc, e.Plugin)
	}
	if loc == "" {
		loc = "engine"
	}
	return fmt.Sprintf("%s: %s failed after %v: %v", e.Kind, loc, e.Duration, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is/errors.As.
func (e *EngineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an EngineError with the same Kind, enabling
// errors.Is(err, &EngineError{Kind: jana2.FactoryNotFound}) style checks.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// wrapCallback wraps an error raised from user code with component/plugin/
// callback attribution, per §4.1's failure semantics.
func wrapCallback(kind ErrorKind, component, plugin, callback string, err error, started time.Time) *EngineError {
	return &EngineError{
		Kind:      kind,
		Component: component,
		Plugin:    plugin,
		Callback:  callback,
		Err:       err,
		Timestamp: started,
		Duration:  time.Since(started),
	}
}

// recoverCallback converts a panic raised from user code into a
// CallbackException, matching the teacher connector library's panic-to-error
// convention at component boundaries.
func recoverCallback(component, plugin, callback string, started time.Time) (err *EngineError) {
	if r := recover(); r != nil {
		rerr, ok := r.(error)
		if !ok {
			rerr = fmt.Errorf("%v", r)
		}
		err = wrapCallback(CallbackException, component, plugin, callback, rerr, started)
	}
	return err
}
