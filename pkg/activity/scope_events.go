package activity

import (
	"strings"
	"time"
)

const (
	// VerbScopeUpdated is emitted once per modified scope in a flushed batch.
	VerbScopeUpdated = "scope.updated"
	// VerbStoreHydrated is emitted when a batch replaced the whole tree.
	VerbStoreHydrated = "store.hydrated"

	ObjectTypeScope = "scope"
	ObjectTypeStore = "store"
)

// BatchInput describes one flushed change batch.
type BatchInput struct {
	StoreID    string
	BatchID    string
	Revision   uint64
	Modified   []string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildScopeUpdatedEvent constructs the event for a single modified scope.
func BuildScopeUpdatedEvent(input BatchInput, path string) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["path"] = path
	metadata["batch_size"] = len(input.Modified)
	objectID := strings.TrimSpace(path)
	if objectID == "" {
		objectID = "root"
	}
	return buildEvent(VerbScopeUpdated, ObjectTypeScope, objectID, input, metadata)
}

// BuildStoreHydratedEvent constructs the event for a whole-tree replacement.
func BuildStoreHydratedEvent(input BatchInput) Event {
	objectID := strings.TrimSpace(input.StoreID)
	if objectID == "" {
		objectID = ObjectTypeStore
	}
	return buildEvent(VerbStoreHydrated, ObjectTypeStore, objectID, input, cloneMap(input.Metadata))
}

// BuildBatchEvents expands a batch into events: a single hydrate event when
// the batch contains the whole-tree marker, otherwise one event per path.
func BuildBatchEvents(input BatchInput, wholeMarker string) []Event {
	for _, path := range input.Modified {
		if path == wholeMarker {
			return []Event{BuildStoreHydratedEvent(input)}
		}
	}
	events := make([]Event, 0, len(input.Modified))
	for _, path := range input.Modified {
		events = append(events, BuildScopeUpdatedEvent(input, path))
	}
	return events
}

func buildEvent(verb, objectType, objectID string, input BatchInput, metadata map[string]any) Event {
	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		StoreID:    strings.TrimSpace(input.StoreID),
		BatchID:    strings.TrimSpace(input.BatchID),
		Revision:   input.Revision,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
