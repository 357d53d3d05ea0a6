package jana2

import (
	"context"
	"testing"
)

func buildTestTopology() (*Topology, *SourceArrow, *MapArrow, *SinkArrow) {
	pool := newTestPool()
	src := NewSourceArrow("src", &fakeSource{n: 3}, pool)
	mapA := NewMapArrow("map", &fakeProcessor{})
	sink := NewSinkArrow("sink", pool)

	topo := NewTopology().WithName("test")
	topo.Connect(src, mapA, QueueConfig{Capacity: 4})
	topo.Connect(mapA, sink, QueueConfig{Capacity: 4})
	return topo, src, mapA, sink
}

func TestTopologyConnectRegistersArrowsAndQueues(t *testing.T) {
	topo, _, _, _ := buildTestTopology()
	if got := len(topo.Arrows()); got != 3 {
		t.Fatalf("expected 3 registered arrows, got %d", got)
	}
	if got := len(topo.Queues()); got != 2 {
		t.Fatalf("expected 2 connecting queues, got %d", got)
	}
}

func TestTopologyInitializeActivatesSourcesAndRejectsSecondCall(t *testing.T) {
	topo, src, _, _ := buildTestTopology()
	ctx := context.Background()

	if err := topo.Initialize(ctx); err != nil {
		t.Fatalf("unexpected error on Initialize: %v", err)
	}
	if topo.State() != TopologyRunning {
		t.Fatalf("expected TopologyRunning, got %v", topo.State())
	}
	if src.State() != ArrowActive {
		t.Fatalf("expected source arrow activated, got %v", src.State())
	}

	err := topo.Initialize(ctx)
	if err == nil {
		t.Fatal("expected error on second Initialize call")
	}
	engErr, ok := err.(*EngineError)
	if !ok || engErr.Kind != InvalidWiring {
		t.Fatalf("expected InvalidWiring EngineError, got %T: %v", err, err)
	}
}

func TestTopologyPauseResumeCycle(t *testing.T) {
	topo, _, _, _ := buildTestTopology()
	ctx := context.Background()
	if err := topo.Initialize(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := topo.Pause(ctx); err != nil {
		t.Fatalf("unexpected error pausing: %v", err)
	}
	if topo.State() != TopologyPaused {
		t.Fatalf("expected TopologyPaused, got %v", topo.State())
	}
	// Pausing an already-paused topology is a no-op, not an error.
	if err := topo.Pause(ctx); err != nil {
		t.Fatalf("expected idempotent Pause, got error: %v", err)
	}

	if err := topo.Resume(ctx); err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	if topo.State() != TopologyRunning {
		t.Fatalf("expected TopologyRunning after resume, got %v", topo.State())
	}
	if err := topo.Resume(ctx); err != nil {
		t.Fatalf("expected idempotent Resume, got error: %v", err)
	}
}

func TestTopologyPauseBeforeInitializeIsBadTransition(t *testing.T) {
	topo := NewTopology()
	err := topo.Pause(context.Background())
	if err == nil {
		t.Fatal("expected error pausing an unopened topology")
	}
	engErr, ok := err.(*EngineError)
	if !ok || engErr.Kind != InvalidWiring {
		t.Fatalf("expected InvalidWiring EngineError, got %T: %v", err, err)
	}
}

func TestTopologyFinishIsTerminalAndIdempotent(t *testing.T) {
	topo, _, _, _ := buildTestTopology()
	ctx := context.Background()
	if err := topo.Initialize(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := topo.Finish(ctx); err != nil {
		t.Fatalf("unexpected error finishing: %v", err)
	}
	if topo.State() != TopologyFinished {
		t.Fatalf("expected TopologyFinished, got %v", topo.State())
	}
	if err := topo.Finish(ctx); err != nil {
		t.Fatalf("expected idempotent Finish, got error: %v", err)
	}
	// No arrow has actually Fired to completion, so IsFinished must still be
	// false even though the topology itself reached TopologyFinished.
	if topo.IsFinished() {
		t.Fatal("expected IsFinished to reflect arrow state, not topology state")
	}
}

func TestTopologyBarrierEnterReleaseIsIdempotent(t *testing.T) {
	topo, _, _, _ := buildTestTopology()
	ctx := context.Background()

	if topo.BarrierActive() {
		t.Fatal("expected no active barrier initially")
	}
	topo.enterBarrier(ctx)
	if !topo.BarrierActive() {
		t.Fatal("expected barrier active after enterBarrier")
	}
	topo.enterBarrier(ctx) // re-entrant, should not panic or double-count
	if !topo.BarrierActive() {
		t.Fatal("expected barrier to remain active")
	}
	topo.releaseBarrier(ctx)
	if topo.BarrierActive() {
		t.Fatal("expected barrier released")
	}
}
