package jana2

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestEventPoolGetPutRecyclesAndBumpsGeneration(t *testing.T) {
	pool := NewEventPool(PoolConfig{MaxInflight: 2})
	ctx := context.Background()

	e1, err := pool.Get(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen0 := e1.Generation()
	pool.Put(e1)

	e2, err := pool.Get(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e2 != e1 {
		t.Fatal("expected recycled event to be the same pointer")
	}
	if e2.Generation() != gen0+1 {
		t.Fatalf("expected generation to bump on recycle, got %d want %d", e2.Generation(), gen0+1)
	}
}

func TestEventPoolBlocksAtMaxInflight(t *testing.T) {
	pool := NewEventPool(PoolConfig{MaxInflight: 1})
	ctx := context.Background()

	e, err := pool.Get(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx2, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Get(ctx2, 0); err == nil {
		t.Fatal("expected second Get to block and time out while pool is exhausted")
	}

	pool.Put(e)
	e2, err := pool.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error after Put freed capacity: %v", err)
	}
	if e2 == nil {
		t.Fatal("expected a non-nil event after capacity freed")
	}
}

func TestEventPoolBackpressureStallUsesFakeClock(t *testing.T) {
	clock := clockz.NewFakeClock()
	pool := NewEventPool(PoolConfig{MaxInflight: 1}).WithClock(clock)
	ctx := context.Background()

	e, err := pool.Get(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	blockedCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_, _ = pool.Get(blockedCtx, 0)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	clock.Advance(backpressureStallInterval)
	clock.BlockUntilReady()

	cancel()
	<-done
	pool.Put(e)
}
