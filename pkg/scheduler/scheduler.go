// Package scheduler provides the deferred-callback primitive used to batch
// store notifications: a callback scheduled now runs after the current
// synchronous work unwinds, before the next unit of outer work starts.
package scheduler

import "sync"

// Scheduler defers fn until the current unit of work completes.
type Scheduler interface {
	Schedule(fn func())
}

// Drainer runs every deferred callback that is ready, including callbacks
// scheduled while draining, and reports how many ran.
type Drainer interface {
	Drain() int
}

// Func adapts a plain function to Scheduler.
type Func func(fn func())

// Schedule implements Scheduler.
func (f Func) Schedule(fn func()) {
	if f != nil && fn != nil {
		f(fn)
	}
}

// Queue is a FIFO of deferred callbacks drained explicitly by the host.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule appends fn to the queue.
func (q *Queue) Schedule(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// Len returns the number of pending callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs callbacks in FIFO order until the queue is empty.
func (q *Queue) Drain() int {
	ran := 0
	for {
		fn := q.next()
		if fn == nil {
			return ran
		}
		fn()
		ran++
	}
}

func (q *Queue) next() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn
}
