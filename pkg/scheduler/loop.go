package scheduler

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned when posting to a closed loop.
var ErrLoopClosed = errors.New("scheduler: loop closed")

// Loop owns a single goroutine that runs posted tasks one at a time. After
// each task it drains the callbacks the task scheduled, so a store driven
// exclusively through the loop observes one flush per task.
//
// Schedule must only be called from inside a task running on the loop.
type Loop struct {
	tasks  chan loopTask
	micro  *Queue
	closed chan struct{}
	once   sync.Once
}

type loopTask struct {
	fn   func()
	done chan struct{}
}

// NewLoop constructs a loop whose task channel holds up to buffer entries.
func NewLoop(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		tasks:  make(chan loopTask, buffer),
		micro:  NewQueue(),
		closed: make(chan struct{}),
	}
}

// Schedule defers fn until the running task returns.
func (l *Loop) Schedule(fn func()) {
	l.micro.Schedule(fn)
}

// Post enqueues fn without waiting for it to run.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	return l.post(ctx, loopTask{fn: fn})
}

// Do runs fn on the loop and waits until fn and every callback it scheduled
// have completed.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	if err := l.post(ctx, loopTask{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return ErrLoopClosed
	}
}

func (l *Loop) post(ctx context.Context, task loopTask) error {
	if task.fn == nil {
		return errors.New("scheduler: task is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-l.closed:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return ErrLoopClosed
	}
}

// Run processes tasks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.closed:
			return nil
		case task := <-l.tasks:
			task.fn()
			l.micro.Drain()
			if task.done != nil {
				close(task.done)
			}
		}
	}
}

// Close stops the loop. Pending tasks are discarded.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.closed)
	})
}
