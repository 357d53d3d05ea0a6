package arrowkit

import (
	"context"
	"testing"

	"github.com/jana2-go/jana2"
)

func TestFallbackProcessorSkipsSecondaryWhenPrimarySucceeds(t *testing.T) {
	primary := &alwaysSucceedProcessor{}
	secondary := &alwaysSucceedProcessor{}
	fb := NewFallbackProcessor("fallback-test", primary, secondary)

	if err := fb.Process(context.Background(), &jana2.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.callCount() != 1 {
		t.Fatalf("expected primary called once, got %d", primary.callCount())
	}
	if secondary.callCount() != 0 {
		t.Fatalf("expected secondary never called, got %d", secondary.callCount())
	}
}

func TestFallbackProcessorEngagesSecondaryOnPrimaryFailure(t *testing.T) {
	primary := &alwaysFailProcessor{}
	secondary := &alwaysSucceedProcessor{}
	fb := NewFallbackProcessor("fallback-test", primary, secondary)

	if err := fb.Process(context.Background(), &jana2.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secondary.callCount() != 1 {
		t.Fatalf("expected secondary called once, got %d", secondary.callCount())
	}
}

func TestFallbackProcessorReturnsErrorWhenBothFail(t *testing.T) {
	primary := &alwaysFailProcessor{}
	secondary := &alwaysFailProcessor{}
	fb := NewFallbackProcessor("fallback-test", primary, secondary)

	err := fb.Process(context.Background(), &jana2.Event{})
	if err == nil {
		t.Fatal("expected error when both primary and secondary fail")
	}
	engErr, ok := err.(*jana2.EngineError)
	if !ok || engErr.Kind != jana2.CallbackException {
		t.Fatalf("expected CallbackException EngineError, got %T: %v", err, err)
	}
}
