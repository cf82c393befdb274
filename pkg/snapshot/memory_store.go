package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-scopes/layering"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store that retains the most recent snapshots.
// Saved and loaded states are deep copies, so callers may modify them.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	records  map[string]memoryRecord
}

type memoryRecord struct {
	state map[string]any
	meta  Meta
}

// NewMemoryStore constructs a store keeping at most capacity snapshots. A
// capacity of zero or less keeps every snapshot.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity, records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, id string) (map[string]any, Meta, bool, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return layering.Clone(record.state), cloneMeta(record.meta), true, nil
}

// Save stores state, filling SnapshotID, ETag and UpdatedAt when meta leaves
// them empty. Saving an existing SnapshotID replaces that snapshot in place.
func (s *MemoryStore) Save(_ context.Context, state map[string]any, meta Meta) (Meta, error) {
	stored := layering.Clone(state)
	defaults := Meta{SnapshotID: uuid.NewString(), UpdatedAt: time.Now().UTC()}
	if meta.ETag == "" {
		etag, err := ETag(stored)
		if err != nil {
			return Meta{}, err
		}
		defaults.ETag = etag
	}
	saved := cloneMeta(mergeMeta(defaults, meta))

	s.mu.Lock()
	if _, exists := s.records[saved.SnapshotID]; !exists {
		s.order = append(s.order, saved.SnapshotID)
	}
	s.records[saved.SnapshotID] = memoryRecord{state: stored, meta: saved}
	for s.capacity > 0 && len(s.order) > s.capacity {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()
	return cloneMeta(saved), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Meta, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneMeta(s.records[id].meta))
	}
	return out, nil
}

// Len returns the number of retained snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
