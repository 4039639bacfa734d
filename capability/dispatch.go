package capability

import (
	"context"
	"fmt"
	"sync"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// Task is work that must run on the UI goroutine.
type Task func() (any, error)

// Dispatcher runs tasks on the UI goroutine and waits for their result.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) (any, error)
}

// Inline runs tasks on the calling goroutine. Use it when the embedder has no
// UI loop, or in tests.
type Inline struct{}

func (Inline) Dispatch(ctx context.Context, task Task) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, sberrors.Cancelled(err)
	}
	return runTask(task)
}

type taskResult struct {
	value any
	err   error
}

type queuedTask struct {
	task   Task
	result chan taskResult
}

// UIQueue is a task queue owned by the UI goroutine. Other goroutines enqueue
// a task and block on its result; the UI loop calls Drain every iteration, or
// hands its goroutine to Run.
type UIQueue struct {
	tasks     chan queuedTask
	done      chan struct{}
	closeOnce sync.Once
}

// NewUIQueue creates a queue holding up to size pending tasks. 0 means 16.
func NewUIQueue(size int) *UIQueue {
	if size <= 0 {
		size = 16
	}
	return &UIQueue{
		tasks: make(chan queuedTask, size),
		done:  make(chan struct{}),
	}
}

// Dispatch enqueues task and waits until the UI goroutine ran it or ctx ends.
// A task abandoned by ctx still runs; its result is discarded.
func (q *UIQueue) Dispatch(ctx context.Context, task Task) (any, error) {
	qt := queuedTask{task: task, result: make(chan taskResult, 1)}

	select {
	case <-q.done:
		return nil, sberrors.ChannelClosed("ui queue")
	default:
	}

	select {
	case q.tasks <- qt:
	case <-q.done:
		return nil, sberrors.ChannelClosed("ui queue")
	case <-ctx.Done():
		return nil, sberrors.Cancelled(ctx.Err())
	}

	select {
	case r := <-qt.result:
		return r.value, r.err
	case <-q.done:
		return nil, sberrors.ChannelClosed("ui queue")
	case <-ctx.Done():
		return nil, sberrors.Cancelled(ctx.Err())
	}
}

// Drain runs every task queued so far and returns how many ran.
// Call it only from the UI goroutine.
func (q *UIQueue) Drain() int {
	n := 0
	for {
		select {
		case qt := <-q.tasks:
			q.run(qt)
			n++
		default:
			return n
		}
	}
}

// Run executes tasks as they arrive until ctx ends or the queue closes.
func (q *UIQueue) Run(ctx context.Context) error {
	for {
		select {
		case qt := <-q.tasks:
			q.run(qt)
		case <-q.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pending returns the number of queued tasks.
func (q *UIQueue) Pending() int {
	return len(q.tasks)
}

// Close rejects further tasks and releases waiting callers.
func (q *UIQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *UIQueue) run(qt queuedTask) {
	v, err := runTask(qt.task)
	qt.result <- taskResult{value: v, err: err}
}

func runTask(task Task) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ui task panicked: %v", r)
		}
	}()
	return task()
}

var (
	_ Dispatcher = Inline{}
	_ Dispatcher = (*UIQueue)(nil)
)
