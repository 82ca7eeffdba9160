package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/garyjia/ai-claims/internal/ai"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// Task is the handle for one background pipeline run
type Task struct {
	ClaimID string

	done  chan struct{}
	claim *entity.Claim
	route ai.Route
	err   error
}

func newTask(claimID string) *Task {
	return &Task{
		ClaimID: claimID,
		done:    make(chan struct{}),
	}
}

// Done is closed once the run has finished and its writes are stored
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes or ctx is done.
// It returns the claim as the run left it.
func (t *Task) Wait(ctx context.Context) (*entity.Claim, error) {
	select {
	case <-t.done:
		return t.claim.Clone(), t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Route is the routing branch taken. Empty until Done, and when processing failed.
func (t *Task) Route() ai.Route {
	select {
	case <-t.done:
		return t.route
	default:
		return ""
	}
}

func (t *Task) finish(claim *entity.Claim, route ai.Route, err error) {
	t.claim = claim
	t.route = route
	t.err = err
	close(t.done)
}

type taskFunc func(ctx context.Context) (*entity.Claim, ai.Route, error)

// taskTracker owns every pipeline goroutine so Shutdown can wait for them
type taskTracker struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
}

// newTaskTracker bounds concurrent runs to maxConcurrent; zero means unbounded
func newTaskTracker(maxConcurrent int) *taskTracker {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &taskTracker{
		ctx:    ctx,
		cancel: cancel,
	}
	if maxConcurrent > 0 {
		tr.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return tr
}

func (tr *taskTracker) isClosed() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.closed
}

// reserve takes a slot that shutdown waits for. Every reserved task must
// be passed to run or release.
func (tr *taskTracker) reserve(claimID string) (*Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.closed {
		return nil, ErrServiceClosed
	}
	tr.wg.Add(1)
	return newTask(claimID), nil
}

// release gives back a reserved slot whose run will never start
func (tr *taskTracker) release(task *Task) {
	task.finish(nil, "", ErrServiceClosed)
	tr.wg.Done()
}

// run executes fn for a reserved task on its own goroutine
func (tr *taskTracker) run(task *Task, fn taskFunc) {
	go func() {
		defer tr.wg.Done()

		if tr.sem != nil {
			if err := tr.sem.Acquire(tr.ctx, 1); err != nil {
				task.finish(nil, "", err)
				return
			}
			defer tr.sem.Release(1)
		}

		claim, route, err := fn(tr.ctx)
		task.finish(claim, route, err)
	}()
}

// shutdown stops new runs and waits for running ones.
// When ctx expires first the remaining runs are cancelled.
func (tr *taskTracker) shutdown(ctx context.Context) error {
	tr.mu.Lock()
	tr.closed = true
	tr.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tr.cancel()
		return nil
	case <-ctx.Done():
		tr.cancel()
		<-done
		return ctx.Err()
	}
}
