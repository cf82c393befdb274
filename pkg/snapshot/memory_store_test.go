package snapshot

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	state := map[string]any{"user": map[string]any{"name": "Ada"}}

	saved, err := store.Save(ctx, state, Meta{Revision: 3, Extra: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.SnapshotID == "" || saved.ETag == "" || saved.UpdatedAt.IsZero() || saved.Revision != 3 {
		t.Fatalf("expected generated metadata, got %+v", saved)
	}

	state["user"].(map[string]any)["name"] = "changed"
	saved.Extra["k"] = "changed"

	loaded, meta, ok, err := store.Load(ctx, saved.SnapshotID)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(map[string]any{"user": map[string]any{"name": "Ada"}}, loaded); diff != "" {
		t.Fatalf("stored state must be isolated (-want +got):\n%s", diff)
	}
	if meta.Extra["k"] != "v" {
		t.Fatalf("stored meta must be isolated, got %v", meta.Extra)
	}

	loaded["user"].(map[string]any)["name"] = "again"
	reloaded, _, _, _ := store.Load(ctx, saved.SnapshotID)
	if reloaded["user"].(map[string]any)["name"] != "Ada" {
		t.Fatalf("loaded state must be a copy")
	}

	if _, _, ok, err := store.Load(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing snapshot to report ok=false, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreCapacity(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		meta, err := store.Save(ctx, map[string]any{"n": i}, Meta{Revision: uint64(i + 1)})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, meta.SnapshotID)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 retained snapshots, got %d", store.Len())
	}
	if _, _, ok, _ := store.Load(ctx, ids[0]); ok {
		t.Fatalf("expected oldest snapshot to be evicted")
	}
	list, _ := store.List(ctx)
	revisions := []uint64{list[0].Revision, list[1].Revision}
	if diff := cmp.Diff([]uint64{2, 3}, revisions); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Save(ctx, map[string]any{"n": 9}, Meta{SnapshotID: ids[2]}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("overwriting must not grow the store")
	}
}

func TestETagIsDeterministic(t *testing.T) {
	a, err := ETag(map[string]any{"x": 1, "y": []any{"a"}})
	if err != nil {
		t.Fatalf("etag: %v", err)
	}
	b, _ := ETag(map[string]any{"y": []any{"a"}, "x": 1})
	c, _ := ETag(map[string]any{"x": 2, "y": []any{"a"}})
	if a != b || a == c {
		t.Fatalf("expected etag to follow content: %s %s %s", a, b, c)
	}
	if _, err := ETag(map[string]any{"fn": func() {}}); err == nil {
		t.Fatalf("expected unencodable state to fail")
	}
}
