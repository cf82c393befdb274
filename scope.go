package scopes

import (
	"github.com/goliatone/go-scopes/internal/hydrate"
	"github.com/goliatone/go-scopes/pkg/tree"
)

// Scope is a handle to one node of a store's scope tree.
type Scope struct {
	e   *engine
	idx int
}

// Path returns the scope's dot path; the root scope's path is empty.
func (s *Scope) Path() string {
	return s.e.nodes[s.idx].spec.path
}

// Name returns the last segment of the scope's path.
func (s *Scope) Name() string {
	return s.e.nodes[s.idx].spec.name
}

// Store returns the store owning the scope.
func (s *Scope) Store() *Store {
	return s.e.store
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	parent := s.e.nodes[s.idx].spec.parent
	if parent < 0 {
		return nil
	}
	return s.e.scopes[parent]
}

// Children returns the nested scopes in name order.
func (s *Scope) Children() []*Scope {
	children := s.e.nodes[s.idx].spec.children
	out := make([]*Scope, 0, len(children))
	for _, idx := range children {
		out = append(out, s.e.scopes[idx])
	}
	return out
}

// Methods returns the scope's method names in name order.
func (s *Scope) Methods() []string {
	return append([]string(nil), s.e.nodes[s.idx].spec.names...)
}

// Scope resolves a path relative to s.
func (s *Scope) Scope(path string) (*Scope, error) {
	return s.e.scope(tree.Join(s.Path(), path))
}

// Get returns the scope's current value.
func (s *Scope) Get() any {
	return s.e.read(s.idx)
}

// Set stores value at the scope's path and returns the stored, frozen value.
// Passing the reference already stored fails with ErrInvariantViolation;
// passing an equal value, or writing to a read-only store, changes nothing.
func (s *Scope) Set(value any) (any, error) {
	return s.e.write(s.idx, value)
}

// Call invokes a scope method, returning a memoized result when the scope
// has not changed since an earlier call with equal arguments.
func (s *Scope) Call(method string, args ...any) (any, error) {
	return s.e.call(s.idx, method, args)
}

// Decode copies the scope's value into out, matching struct fields by their
// json tag.
func (s *Scope) Decode(out any) error {
	return hydrate.Into(tree.Native(s.Get()), out)
}

// Context is passed to method bodies. It is bound to the scope the method
// was declared on.
type Context struct {
	scope *Scope
}

// Get returns the owning scope's current value.
func (c *Context) Get() any {
	return c.scope.Get()
}

// Set writes the owning scope.
func (c *Context) Set(value any) (any, error) {
	return c.scope.Set(value)
}

// Call invokes another method of the owning scope.
func (c *Context) Call(method string, args ...any) (any, error) {
	return c.scope.Call(method, args...)
}

// Scope returns the owning scope.
func (c *Context) Scope() *Scope {
	return c.scope
}

// Store returns the root store, for cross-scope access.
func (c *Context) Store() *Store {
	return c.scope.Store()
}
