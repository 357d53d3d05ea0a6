// Package testing provides test doubles and assertion helpers for jana2
// topologies: mock Sources and Processors that record calls, and a chaos
// wrapper that injects configurable failures, latency, and panics.
//
// Example usage:
//
//	func TestMyStage(t *testing.T) {
//		mock := testing.NewMockProcessor(t, "mock-stage")
//		mock.WithReturn(nil)
//
//		err := mock.Process(context.Background(), &jana2.Event{})
//
//		require.NoError(t, err)
//		testing.AssertProcessed(t, mock, 1)
//	}
package testing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jana2-go/jana2"
)

// MockProcessor is a configurable jana2.Processor double. It tracks calls,
// allows configuring a return error and delay, and provides assertion
// methods for verifying stage behavior.
type MockProcessor struct { //nolint:govet // fieldalignment: test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	lastEvent   *jana2.Event
	returnErr   error
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall
	maxHistory  int
}

// MockCall represents a single call to the mock processor.
type MockCall struct {
	Event     *jana2.Event
	Timestamp time.Time
}

// NewMockProcessor creates a new mock Processor for testing.
func NewMockProcessor(t *testing.T, name string) *MockProcessor {
	return &MockProcessor{
		t:          t,
		name:       name,
		maxHistory: 100,
	}
}

// WithReturn configures the mock to return err for all subsequent calls.
func (m *MockProcessor) WithReturn(err error) *MockProcessor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnErr = err
	return m
}

// WithDelay configures the mock to delay execution, useful for testing
// timeout behavior.
func (m *MockProcessor) WithDelay(d time.Duration) *MockProcessor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic configures the mock to panic with msg on every subsequent
// Process call.
func (m *MockProcessor) WithPanic(msg string) *MockProcessor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize configures how many calls to keep in history. 0 disables
// history tracking.
func (m *MockProcessor) WithHistorySize(size int) *MockProcessor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Init implements jana2.Processor.
func (*MockProcessor) Init(context.Context) error { return nil }

// Finish implements jana2.Processor.
func (*MockProcessor) Finish(context.Context) error { return nil }

// Process implements jana2.Processor. It records the call and returns the
// configured error, potentially after a delay or panic.
func (m *MockProcessor) Process(ctx context.Context, e *jana2.Event) error {
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastEvent = e
	if m.maxHistory > 0 {
		m.callHistory = append(m.callHistory, MockCall{Event: e, Timestamp: time.Now()})
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:]
		}
	}
	delay := m.delay
	returnErr := m.returnErr
	panicMsg := m.panicMsg
	m.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return returnErr
}

// CallCount returns the number of times Process has been called.
func (m *MockProcessor) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastEvent returns the event from the most recent call.
func (m *MockProcessor) LastEvent() *jana2.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastEvent
}

// CallHistory returns a copy of all recorded calls.
func (m *MockProcessor) CallHistory() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking and resets the mock to initial state.
func (m *MockProcessor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastEvent = nil
	m.callHistory = nil
}

// Assertion Helpers

// AssertProcessed verifies that a mock processor was called exactly n times.
func AssertProcessed(t *testing.T, mock *MockProcessor, expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock processor %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotProcessed verifies that a mock processor was never called.
func AssertNotProcessed(t *testing.T, mock *MockProcessor) {
	t.Helper()
	AssertProcessed(t, mock, 0)
}

// AssertProcessedBetween verifies that a mock processor was called between
// min and max times, inclusive.
func AssertProcessedBetween(t *testing.T, mock *MockProcessor, minCalls, maxCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls < minCalls || actualCalls > maxCalls {
		t.Errorf("expected mock processor %s to be called between %d and %d times, but was called %d times",
			mock.name, minCalls, maxCalls, actualCalls)
	}
}

// ChaosProcessor wraps a jana2.Processor and randomly introduces failures,
// latency, and panics for resilience testing of arrowkit-wrapped stages.
type ChaosProcessor struct { //nolint:govet // fieldalignment: test helper struct optimized for functionality over memory efficiency
	name         string
	wrapped      jana2.Processor
	failureRate  float64
	latencyMin   time.Duration
	latencyMax   time.Duration
	timeoutRate  float64
	panicRate    float64
	rng          *mathrand.Rand
	mu           sync.Mutex
	totalCalls   int64
	failedCalls  int64
	timeoutCalls int64
	panicCalls   int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	FailureRate float64       // probability of returning an error (0.0 to 1.0)
	LatencyMin  time.Duration // minimum additional latency to inject
	LatencyMax  time.Duration // maximum additional latency to inject
	TimeoutRate float64       // probability of simulating a context timeout (0.0 to 1.0)
	PanicRate   float64       // probability of panicking (0.0 to 1.0)
	Seed        int64         // random seed for reproducible chaos (0 for random seed)
}

// NewChaosProcessor creates a chaos processor wrapping another Processor.
func NewChaosProcessor(name string, wrapped jana2.Processor, config ChaosConfig) *ChaosProcessor {
	seed := config.Seed
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			seed = time.Now().UnixNano()
		} else {
			seed = int64(seedBytes[0])<<56 | int64(seedBytes[1])<<48 | int64(seedBytes[2])<<40 | int64(seedBytes[3])<<32 |
				int64(seedBytes[4])<<24 | int64(seedBytes[5])<<16 | int64(seedBytes[6])<<8 | int64(seedBytes[7])
		}
	}

	return &ChaosProcessor{
		name:        name,
		wrapped:     wrapped,
		failureRate: config.FailureRate,
		latencyMin:  config.LatencyMin,
		latencyMax:  config.LatencyMax,
		timeoutRate: config.TimeoutRate,
		panicRate:   config.PanicRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Init implements jana2.Processor.
func (c *ChaosProcessor) Init(ctx context.Context) error { return c.wrapped.Init(ctx) }

// Finish implements jana2.Processor.
func (c *ChaosProcessor) Finish(ctx context.Context) error { return c.wrapped.Finish(ctx) }

// Process implements jana2.Processor with chaos injection.
func (c *ChaosProcessor) Process(ctx context.Context, e *jana2.Event) error {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	if c.rng.Float64() < c.panicRate {
		c.mu.Unlock()
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos processor induced panic")
	}

	var latency time.Duration
	if c.latencyMax > c.latencyMin {
		latencyRange := c.latencyMax - c.latencyMin
		latency = c.latencyMin + time.Duration(c.rng.Int63n(int64(latencyRange)))
	} else if c.latencyMin > 0 {
		latency = c.latencyMin
	}

	simulateTimeout := c.rng.Float64() < c.timeoutRate
	injectFailure := c.rng.Float64() < c.failureRate
	c.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if simulateTimeout {
		atomic.AddInt64(&c.timeoutCalls, 1)
		return context.DeadlineExceeded
	}

	err := c.wrapped.Process(ctx, e)

	if injectFailure && err == nil {
		atomic.AddInt64(&c.failedCalls, 1)
		return errors.New("chaos processor induced failure")
	}

	return err
}

// Stats returns statistics about chaos injection.
func (c *ChaosProcessor) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:   atomic.LoadInt64(&c.totalCalls),
		FailedCalls:  atomic.LoadInt64(&c.failedCalls),
		TimeoutCalls: atomic.LoadInt64(&c.timeoutCalls),
		PanicCalls:   atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls   int64
	FailedCalls  int64
	TimeoutCalls int64
	PanicCalls   int64
}

// FailureRate returns the actual failure rate observed.
func (s ChaosStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// TimeoutRate returns the actual timeout rate observed.
func (s ChaosStats) TimeoutRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TimeoutCalls) / float64(s.TotalCalls)
}

// PanicRate returns the actual panic rate observed.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d (%.1f%%), Timeouts: %d (%.1f%%), Panics: %d (%.1f%%)}",
		s.TotalCalls, s.FailedCalls, s.FailureRate()*100,
		s.TimeoutCalls, s.TimeoutRate()*100,
		s.PanicCalls, s.PanicRate()*100)
}

// FakeSource is a deterministic jana2.Source double that emits up to Count
// events, then reports FailFinished.
type FakeSource struct {
	Count    uint64
	emitted  uint64
	OpenErr  error
	CloseErr error
}

func (s *FakeSource) Open(context.Context) error  { return s.OpenErr }
func (s *FakeSource) Close(context.Context) error { return s.CloseErr }

func (s *FakeSource) Emit(_ context.Context, e *jana2.Event) (jana2.FailResult, error) {
	if atomic.LoadUint64(&s.emitted) >= s.Count {
		return jana2.FailFinished, nil
	}
	atomic.AddUint64(&s.emitted, 1)
	return jana2.Success, nil
}

// Emitted reports how many events this source has produced so far.
func (s *FakeSource) Emitted() uint64 { return atomic.LoadUint64(&s.emitted) }

// Helper Functions

// WaitForCalls waits for a mock processor to be called at least n times,
// with a timeout. Returns true if the expected calls were reached.
func WaitForCalls(mock *MockProcessor, expectedCalls int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if mock.CallCount() >= expectedCalls {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// ParallelTest runs a test function in parallel with multiple goroutines,
// useful for testing concurrent behavior of parallel-declared Processors.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}

// MeasureLatency measures the latency of a function call.
func MeasureLatency(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

// MeasureLatencyWithResult measures the latency of a function call and
// returns both the result and duration.
func MeasureLatencyWithResult[T any](fn func() T) (T, time.Duration) {
	start := time.Now()
	result := fn()
	return result, time.Since(start)
}
