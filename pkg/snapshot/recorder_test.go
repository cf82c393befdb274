package snapshot

import (
	"context"
	"errors"
	"testing"

	scopes "github.com/goliatone/go-scopes"
	"github.com/goliatone/go-scopes/pkg/tree"
	"github.com/google/go-cmp/cmp"
)

func newCounterStore(t *testing.T) *scopes.Store {
	t.Helper()
	store, err := scopes.New(scopes.Template{
		"counter": scopes.Sub(0, scopes.Template{
			"inc": scopes.Method(func(c *scopes.Context, _ ...any) (any, error) {
				return c.Set(c.Get().(int) + 1)
			}),
		}),
		"user": scopes.Sub(map[string]any{"name": "Ada"}, nil),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestRecorderSavesEveryFlush(t *testing.T) {
	store := newCounterStore(t)
	history := NewMemoryStore(0)
	recorder := NewRecorder(store, history)
	recorder.Start()
	recorder.Start()

	store.Call("counter", "inc")
	store.Call("counter", "inc")
	store.Flush()
	user, _ := store.Scope("user")
	user.Set(map[string]any{"name": "Grace"})
	store.Flush()

	list, err := history.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two snapshots, got %d", len(list))
	}
	if list[0].Revision != 2 || list[1].Revision != 3 {
		t.Fatalf("unexpected revisions %d %d", list[0].Revision, list[1].Revision)
	}
	if diff := cmp.Diff([]string{"user"}, list[1].Modified); diff != "" {
		t.Fatalf("modified mismatch (-want +got):\n%s", diff)
	}
	if list[0].StoreID != store.ID() || list[0].Extra["batch_id"] == "" {
		t.Fatalf("expected store and batch identifiers, got %+v", list[0])
	}

	recorder.Stop()
	store.Call("counter", "inc")
	store.Flush()
	if history.Len() != 2 {
		t.Fatalf("stopped recorder must not save")
	}
}

func TestRecorderRestore(t *testing.T) {
	store := newCounterStore(t)
	history := NewMemoryStore(0)
	recorder := NewRecorder(store, history)
	ctx := context.Background()

	store.Call("counter", "inc")
	first, err := recorder.Capture(ctx)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	store.Call("counter", "inc")
	store.Call("counter", "inc")
	store.Flush()

	var updates []scopes.UpdateEvent
	store.OnUpdate(func(ev scopes.UpdateEvent) { updates = append(updates, ev) })

	if _, err := recorder.Restore(ctx, first.SnapshotID, "stale"); !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
	if _, err := recorder.Restore(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	meta, err := recorder.Restore(ctx, first.SnapshotID, first.ETag)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if meta.Revision != 1 {
		t.Fatalf("expected restored revision 1, got %d", meta.Revision)
	}
	counter, _ := store.Scope("counter")
	if counter.Get() != 1 {
		t.Fatalf("expected counter 1 after restore, got %v", counter.Get())
	}
	if _, ok := store.GetState().(*tree.Map); !ok {
		t.Fatalf("expected restored state to be frozen")
	}
	store.Flush()
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	if diff := cmp.Diff([]string{"*"}, updates[0].Modified); diff != "" {
		t.Fatalf("modified mismatch (-want +got):\n%s", diff)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, map[string]any, Meta) (Meta, error) {
	return Meta{}, errors.New("disk full")
}

func TestRecorderReportsSaveErrors(t *testing.T) {
	store := newCounterStore(t)
	var reported []error
	recorder := NewRecorder(store, failingStore{NewMemoryStore(0)},
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
		WithContext(context.Background()),
	)
	recorder.Start()

	store.Call("counter", "inc")
	store.Flush()
	if len(reported) != 1 {
		t.Fatalf("expected one reported error, got %d", len(reported))
	}
	if _, err := recorder.Capture(context.Background()); err == nil {
		t.Fatalf("expected capture to fail")
	}
}
