package arrowkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jana2-go/jana2"
)

// countingProcessor fails the first failCount calls, then succeeds.
type countingProcessor struct {
	mu        sync.Mutex
	calls     int
	failCount int
	failErr   error
}

func (p *countingProcessor) Init(ctx context.Context) error   { return nil }
func (p *countingProcessor) Finish(ctx context.Context) error { return nil }
func (p *countingProcessor) Process(ctx context.Context, e *jana2.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failCount {
		if p.failErr != nil {
			return p.failErr
		}
		return errors.New("transient failure")
	}
	return nil
}

func (p *countingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// alwaysFailProcessor always fails.
type alwaysFailProcessor struct{ err error }

func (p *alwaysFailProcessor) Init(ctx context.Context) error   { return nil }
func (p *alwaysFailProcessor) Finish(ctx context.Context) error { return nil }
func (p *alwaysFailProcessor) Process(ctx context.Context, e *jana2.Event) error {
	if p.err != nil {
		return p.err
	}
	return errors.New("always fails")
}

// slowProcessor blocks until ctx is canceled or delay elapses.
type slowProcessor struct{ delay time.Duration }

func (p *slowProcessor) Init(ctx context.Context) error   { return nil }
func (p *slowProcessor) Finish(ctx context.Context) error { return nil }
func (p *slowProcessor) Process(ctx context.Context, e *jana2.Event) error {
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// alwaysSucceedProcessor always succeeds and counts its calls.
type alwaysSucceedProcessor struct {
	mu    sync.Mutex
	calls int
}

func (p *alwaysSucceedProcessor) Init(ctx context.Context) error   { return nil }
func (p *alwaysSucceedProcessor) Finish(ctx context.Context) error { return nil }
func (p *alwaysSucceedProcessor) Process(ctx context.Context, e *jana2.Event) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil
}

func (p *alwaysSucceedProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
