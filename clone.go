package scopes

import "github.com/goliatone/go-scopes/pkg/tree"

// Clone returns an independent copy of s: the state is deep-copied, caches
// start empty and handlers are not carried over. The clone shares the
// source's scheduler. A read-only clone ignores writes and hydrates, never
// records method results and never emits update events.
func Clone(s *Store, readOnly bool) *Store {
	if s == nil {
		return nil
	}
	state := s.e.tpl.freeze(tree.DeepClone(s.e.state))
	return newStore(s.e.tpl, s.e.cfg, state, readOnly)
}

// Clone is shorthand for Clone(s, readOnly).
func (s *Store) Clone(readOnly bool) *Store {
	return Clone(s, readOnly)
}
