package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("snapshot: not found")
	ErrETagMismatch = errors.New("snapshot: etag mismatch")
)

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	StoreID    string            `json:"store_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	Revision   uint64            `json:"revision"`
	Modified   []string          `json:"modified,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves state snapshots.
type Store interface {
	Load(ctx context.Context, id string) (state map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, state map[string]any, meta Meta) (Meta, error)
	// List returns the metadata of the retained snapshots, oldest first.
	List(ctx context.Context) ([]Meta, error)
}

// etagNamespace scopes the name-based UUIDs used as ETags.
var etagNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/goliatone/go-scopes/snapshot"))

// ETag derives a deterministic tag from the JSON encoding of state.
func ETag(state map[string]any) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("snapshot: etag: %w", err)
	}
	return uuid.NewSHA1(etagNamespace, raw).String(), nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.StoreID != "" {
		out.StoreID = override.StoreID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if override.Revision != 0 {
		out.Revision = override.Revision
	}
	if override.Modified != nil {
		out.Modified = override.Modified
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Modified != nil {
		out.Modified = append([]string(nil), meta.Modified...)
	}
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
