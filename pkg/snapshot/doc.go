// Package snapshot keeps a history of a scopes.Store's state.
//
// A Recorder subscribes to a store's update events and saves the state tree
// of every flushed batch into a Store. A saved snapshot can later be
// restored, which hydrates the live store with it and reports "*" in the
// store's next update.
//
// Snapshots are plain map[string]any trees. Meta.ETag is derived from the
// JSON encoding of the tree, so two snapshots of equal state share an ETag
// and callers can use it for optimistic concurrency when restoring.
//
// Data flow:
//
//	scopes.Store --update--> Recorder -> Store.Save
//	Store.Load -> Recorder.Restore -> scopes.Store.Hydrate
package snapshot
