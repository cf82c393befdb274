package scopes

import (
	"context"
	"time"

	"github.com/goliatone/go-scopes/pkg/activity"
	"github.com/goliatone/go-scopes/pkg/tree"
	"github.com/google/uuid"
)

// batch tracks the scope paths written since the last flush. pending is set
// while a flush is scheduled.
type batch struct {
	pending bool
	paths   []string
	seen    map[string]struct{}
}

func (b *batch) add(path string) {
	if _, ok := b.seen[path]; ok {
		return
	}
	b.seen[path] = struct{}{}
	b.paths = append(b.paths, path)
}

func (b *batch) take() []string {
	paths := b.paths
	if _, whole := b.seen[tree.Whole]; whole {
		paths = []string{tree.Whole}
	}
	*b = batch{}
	return paths
}

func (e *engine) enqueue(path string) {
	if e.readOnly {
		return
	}
	if !e.batch.pending {
		e.batch = batch{pending: true, seen: make(map[string]struct{})}
		e.batch.add(path)
		e.cfg.scheduler.Schedule(e.flush)
		return
	}
	e.batch.add(path)
}

// flush publishes the pending batch. The batch is reset before handlers run
// so writes made by handlers start a new one.
func (e *engine) flush() {
	if !e.batch.pending {
		return
	}
	modified := e.batch.take()

	previous := e.previous
	e.previous = e.state

	event := UpdateEvent{
		Store:         e.store,
		PreviousState: previous,
		Modified:      modified,
		Revision:      e.revision,
		BatchID:       uuid.NewString(),
		previous: &lazyStore{build: func() *Store {
			return newStore(e.tpl, e.cfg, previous, true)
		}},
	}

	start := time.Now()
	e.bus.Emit(EventUpdate, event)
	e.cfg.logger.LogEvent(LogEvent{
		Kind:     LogKindFlush,
		StoreID:  e.id,
		Modified: append([]string(nil), modified...),
		Revision: event.Revision,
		Duration: time.Since(start),
	})
	e.notifyActivity(event)
}

func (e *engine) notifyActivity(event UpdateEvent) {
	if !e.activity.Enabled() {
		return
	}
	events := activity.BuildBatchEvents(activity.BatchInput{
		StoreID:    e.id,
		BatchID:    event.BatchID,
		Revision:   event.Revision,
		Modified:   event.Modified,
		OccurredAt: time.Now().UTC(),
	}, tree.Whole)
	if err := e.activity.EmitAll(context.Background(), events); err != nil {
		e.cfg.logger.LogEvent(LogEvent{
			Kind:     LogKindActivity,
			StoreID:  e.id,
			Modified: append([]string(nil), event.Modified...),
			Revision: event.Revision,
			Err:      err,
		})
	}
}
