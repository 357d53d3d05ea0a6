package testing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jana2-go/jana2"
)

func TestMockProcessorRecordsCalls(t *testing.T) {
	mock := NewMockProcessor(t, "stage")
	ctx := context.Background()

	e1 := &jana2.Event{EventNumber: 1}
	e2 := &jana2.Event{EventNumber: 2}

	if err := mock.Process(ctx, e1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.Process(ctx, e2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	AssertProcessed(t, mock, 2)
	if mock.LastEvent() != e2 {
		t.Error("expected last event to be e2")
	}
	if len(mock.CallHistory()) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(mock.CallHistory()))
	}
}

func TestMockProcessorWithReturn(t *testing.T) {
	wantErr := errors.New("boom")
	mock := NewMockProcessor(t, "stage").WithReturn(wantErr)

	if err := mock.Process(context.Background(), &jana2.Event{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestMockProcessorWithDelayRespectsCancellation(t *testing.T) {
	mock := NewMockProcessor(t, "stage").WithDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := mock.Process(ctx, &jana2.Event{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockProcessorWithPanic(t *testing.T) {
	mock := NewMockProcessor(t, "stage").WithPanic("boom")

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected panic %q, got %v", "boom", r)
		}
	}()
	_ = mock.Process(context.Background(), &jana2.Event{})
}

func TestMockProcessorHistorySizeLimit(t *testing.T) {
	mock := NewMockProcessor(t, "stage").WithHistorySize(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = mock.Process(ctx, &jana2.Event{EventNumber: uint64(i)})
	}

	history := mock.CallHistory()
	if len(history) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(history))
	}
	if history[1].Event.EventNumber != 4 {
		t.Errorf("expected most recent entry to be event 4, got %d", history[1].Event.EventNumber)
	}
}

func TestMockProcessorReset(t *testing.T) {
	mock := NewMockProcessor(t, "stage")
	_ = mock.Process(context.Background(), &jana2.Event{})
	mock.Reset()
	AssertNotProcessed(t, mock)
	if mock.LastEvent() != nil {
		t.Error("expected last event to be cleared after reset")
	}
}

func TestAssertProcessedBetween(t *testing.T) {
	mock := NewMockProcessor(t, "stage")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = mock.Process(ctx, &jana2.Event{})
	}
	AssertProcessedBetween(t, mock, 1, 5)
}

func TestChaosProcessorInjectsFailures(t *testing.T) {
	inner := NewMockProcessor(t, "inner")
	chaos := NewChaosProcessor("chaos", inner, ChaosConfig{FailureRate: 1.0, Seed: 42})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = chaos.Process(ctx, &jana2.Event{})
	}

	stats := chaos.Stats()
	if stats.TotalCalls != 10 {
		t.Fatalf("expected 10 total calls, got %d", stats.TotalCalls)
	}
	if stats.FailedCalls != 10 {
		t.Fatalf("expected all 10 calls to fail at failure rate 1.0, got %d", stats.FailedCalls)
	}
	if stats.FailureRate() != 1.0 {
		t.Errorf("expected failure rate 1.0, got %f", stats.FailureRate())
	}
}

func TestChaosProcessorInjectsTimeouts(t *testing.T) {
	inner := NewMockProcessor(t, "inner")
	chaos := NewChaosProcessor("chaos", inner, ChaosConfig{TimeoutRate: 1.0, Seed: 7})

	err := chaos.Process(context.Background(), &jana2.Event{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if chaos.Stats().TimeoutCalls != 1 {
		t.Errorf("expected 1 timeout call recorded")
	}
}

func TestChaosProcessorDelegatesToWrapped(t *testing.T) {
	inner := NewMockProcessor(t, "inner")
	chaos := NewChaosProcessor("chaos", inner, ChaosConfig{Seed: 1})

	if err := chaos.Process(context.Background(), &jana2.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AssertProcessed(t, inner, 1)
}

func TestFakeSourceEmitsThenFinishes(t *testing.T) {
	src := &FakeSource{Count: 3}
	ctx := context.Background()

	var successCount int
	for i := 0; i < 4; i++ {
		res, err := src.Emit(ctx, &jana2.Event{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res == jana2.Success {
			successCount++
		}
	}
	if successCount != 3 {
		t.Fatalf("expected 3 successful emits, got %d", successCount)
	}
	if res, _ := src.Emit(ctx, &jana2.Event{}); res != jana2.FailFinished {
		t.Fatalf("expected FailFinished after exhausting count, got %v", res)
	}
	if src.Emitted() != 3 {
		t.Errorf("expected Emitted()==3, got %d", src.Emitted())
	}
}

func TestWaitForCalls(t *testing.T) {
	mock := NewMockProcessor(t, "stage")
	var done int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = mock.Process(context.Background(), &jana2.Event{})
		atomic.StoreInt32(&done, 1)
	}()

	if !WaitForCalls(mock, 1, time.Second) {
		t.Fatal("expected WaitForCalls to observe the call within timeout")
	}
	if atomic.LoadInt32(&done) != 1 {
		t.Error("expected goroutine to have completed")
	}
}

func TestWaitForCallsTimesOut(t *testing.T) {
	mock := NewMockProcessor(t, "stage")
	if WaitForCalls(mock, 1, 30*time.Millisecond) {
		t.Fatal("expected WaitForCalls to time out with no calls made")
	}
}

func TestParallelTest(t *testing.T) {
	var count int64
	ParallelTest(t, 20, func(int) {
		atomic.AddInt64(&count, 1)
	})
	if count != 20 {
		t.Fatalf("expected 20 invocations, got %d", count)
	}
}

func TestMeasureLatency(t *testing.T) {
	d := MeasureLatency(func() { time.Sleep(10 * time.Millisecond) })
	if d < 10*time.Millisecond {
		t.Errorf("expected measured latency >= 10ms, got %v", d)
	}
}

func TestMeasureLatencyWithResult(t *testing.T) {
	result, d := MeasureLatencyWithResult(func() int {
		time.Sleep(5 * time.Millisecond)
		return 42
	})
	if result != 42 {
		t.Errorf("expected result 42, got %d", result)
	}
	if d < 5*time.Millisecond {
		t.Errorf("expected measured latency >= 5ms, got %v", d)
	}
}
