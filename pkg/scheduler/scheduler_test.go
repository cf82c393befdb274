package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestQueueDrainRunsNestedCallbacksInOrder(t *testing.T) {
	q := NewQueue()
	var order []string
	q.Schedule(func() {
		order = append(order, "first")
		q.Schedule(func() { order = append(order, "nested") })
	})
	q.Schedule(func() { order = append(order, "second") })
	q.Schedule(nil)

	if q.Len() != 2 {
		t.Fatalf("expected 2 pending callbacks, got %d", q.Len())
	}
	if ran := q.Drain(); ran != 3 {
		t.Fatalf("expected 3 callbacks to run, got %d", ran)
	}
	if diff := cmp.Diff([]string{"first", "second", "nested"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if q.Drain() != 0 {
		t.Fatalf("expected empty queue after drain")
	}
}

func TestFuncScheduler(t *testing.T) {
	var ran bool
	s := Func(func(fn func()) { fn() })
	s.Schedule(func() { ran = true })
	if !ran {
		t.Fatalf("expected callback to run")
	}
}

func TestLoopDoDrainsScheduledCallbacks(t *testing.T) {
	loop := NewLoop(4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = loop.Run(ctx) }()
	defer loop.Close()

	var order []string
	err := loop.Do(ctx, func() {
		order = append(order, "task")
		loop.Schedule(func() {
			order = append(order, "deferred")
			loop.Schedule(func() { order = append(order, "chained") })
		})
		order = append(order, "task-end")
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if diff := cmp.Diff([]string{"task", "task-end", "deferred", "chained"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopClosed(t *testing.T) {
	loop := NewLoop(0)
	loop.Close()
	loop.Close()
	if err := loop.Post(context.Background(), func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("expected ErrLoopClosed, got %v", err)
	}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("expected closed loop to return nil, got %v", err)
	}
}

func TestLoopRunStopsOnContext(t *testing.T) {
	loop := NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
