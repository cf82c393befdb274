package snapshot

import (
	"context"
	"fmt"
	"sync"

	scopes "github.com/goliatone/go-scopes"
	"github.com/goliatone/go-scopes/pkg/events"
	"github.com/goliatone/go-scopes/pkg/tree"
)

// Recorder saves a store's state after every flushed batch.
type Recorder struct {
	store     *scopes.Store
	snapshots Store
	ctx       context.Context
	onError   func(error)

	mu  sync.Mutex
	sub events.Subscription
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithContext sets the context passed to Store.Save from update handlers.
func WithContext(ctx context.Context) RecorderOption {
	return func(r *Recorder) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// WithErrorHandler receives save failures raised while recording updates.
func WithErrorHandler(fn func(error)) RecorderOption {
	return func(r *Recorder) {
		r.onError = fn
	}
}

// NewRecorder constructs a recorder for store. Call Start to subscribe.
func NewRecorder(store *scopes.Store, snapshots Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:     store,
		snapshots: snapshots,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Start subscribes to the store's update events. Calling it twice is a
// no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub.ID != "" {
		return
	}
	r.sub = r.store.OnUpdate(r.record)
}

// Stop unsubscribes from the store.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub.ID == "" {
		return
	}
	r.store.Off(r.sub)
	r.sub = events.Subscription{}
}

func (r *Recorder) record(ev scopes.UpdateEvent) {
	_, err := r.save(r.ctx, ev.Store.GetState(), Meta{
		StoreID:  ev.Store.ID(),
		Revision: ev.Revision,
		Modified: ev.Modified,
		Extra:    map[string]string{"batch_id": ev.BatchID},
	})
	if err != nil && r.onError != nil {
		r.onError(err)
	}
}

// Capture saves the store's current state outside of an update.
func (r *Recorder) Capture(ctx context.Context) (Meta, error) {
	return r.save(ctx, r.store.GetState(), Meta{
		StoreID:  r.store.ID(),
		Revision: r.store.Revision(),
	})
}

func (r *Recorder) save(ctx context.Context, state any, meta Meta) (Meta, error) {
	plain, ok := tree.Native(state).(map[string]any)
	if !ok {
		return Meta{}, fmt.Errorf("snapshot: store %s holds %T, not a mapping", meta.StoreID, state)
	}
	saved, err := r.snapshots.Save(ctx, plain, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: save revision %d: %w", meta.Revision, err)
	}
	return saved, nil
}

// Restore hydrates the store with snapshot id. A non-empty etag must match
// the snapshot's ETag.
func (r *Recorder) Restore(ctx context.Context, id, etag string) (Meta, error) {
	state, meta, ok, err := r.snapshots.Load(ctx, id)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: load %q: %w", id, err)
	}
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if etag != "" && meta.ETag != etag {
		return meta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, etag, meta.ETag)
	}
	if err := r.store.Hydrate(state); err != nil {
		return meta, fmt.Errorf("snapshot: restore %q: %w", id, err)
	}
	return meta, nil
}
