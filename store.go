// Package scopes implements an in-process hierarchical state container.
//
// A Store is compiled from a Template into a tree of scopes. Each scope is
// bound to a dot path of a single immutable state tree, exposes Get and Set
// for that path and runs user methods whose results are memoized until the
// scope's value changes. Writes performed before the store's scheduler runs
// its deferred callbacks are reported together in one "update" event.
package scopes

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-scopes/pkg/activity"
	"github.com/goliatone/go-scopes/pkg/events"
	"github.com/goliatone/go-scopes/pkg/scheduler"
	"github.com/goliatone/go-scopes/pkg/tree"
	"github.com/google/uuid"
)

// Event names emitted by a Store.
const (
	EventUpdate     = "update"
	EventFetchScope = "fetchScope"
)

// Store is the root of a scope tree.
type Store struct {
	e *engine
}

// engine holds all mutable store state. Scope and Store are thin facades
// over it.
type engine struct {
	id       string
	store    *Store
	tpl      *compiledTemplate
	cfg      storeConfig
	readOnly bool

	nodes  []*node
	scopes []*Scope

	state    any
	previous any
	revision uint64

	batch    batch
	bus      *events.Bus
	activity *activity.Emitter
}

type node struct {
	spec       *nodeSpec
	cache      map[string]cacheEntry
	generation uint64
}

// UpdateEvent is the payload of the "update" event.
type UpdateEvent struct {
	Store *Store
	// PreviousState is the state tree as of the previous flush, or as
	// constructed when this is the first one.
	PreviousState any
	// Modified lists the distinct scope paths written in the batch in
	// first-write order, or only "*" when the whole tree was replaced.
	Modified []string
	Revision uint64
	BatchID  string

	previous *lazyStore
}

// PreviousStore returns a read-only store over PreviousState. It is built on
// first use.
func (ev UpdateEvent) PreviousStore() *Store {
	if ev.previous == nil {
		return nil
	}
	return ev.previous.get()
}

type lazyStore struct {
	once  sync.Once
	build func() *Store
	store *Store
}

func (l *lazyStore) get() *Store {
	l.once.Do(func() {
		l.store = l.build()
	})
	return l.store
}

// FetchEvent is the payload of the "fetchScope" event.
type FetchEvent struct {
	Store *Store
	Scope string
}

// New compiles template into a store seeded with the template defaults.
func New(template Template, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	tpl, err := compileTemplate(template, cfg)
	if err != nil {
		return nil, err
	}
	return newStore(tpl, cfg, tpl.freeze(tree.DeepClone(tpl.defaults)), false), nil
}

func newStore(tpl *compiledTemplate, cfg storeConfig, state any, readOnly bool) *Store {
	e := &engine{
		id:       uuid.NewString(),
		tpl:      tpl,
		cfg:      cfg,
		readOnly: readOnly,
		state:    state,
		previous: state,
		bus:      events.NewBus(),
		activity: activity.NewEmitter(cfg.activityHooks, cfg.activity),
	}
	e.store = &Store{e: e}
	e.nodes = make([]*node, len(tpl.nodes))
	e.scopes = make([]*Scope, len(tpl.nodes))
	for i, spec := range tpl.nodes {
		e.nodes[i] = &node{spec: spec, cache: make(map[string]cacheEntry)}
		e.scopes[i] = &Scope{e: e, idx: i}
	}
	return e.store
}

// ID returns the store's unique identifier.
func (s *Store) ID() string {
	return s.e.id
}

// ReadOnly reports whether the store ignores writes.
func (s *Store) ReadOnly() bool {
	return s.e.readOnly
}

// Revision counts the state changes applied to the store.
func (s *Store) Revision() uint64 {
	return s.e.revision
}

// GetState returns the live state tree. Callers must not modify it.
func (s *Store) GetState() any {
	return s.e.state
}

// Root returns the top-level scope.
func (s *Store) Root() *Scope {
	return s.e.scopes[0]
}

// Scope returns the scope registered at path.
func (s *Store) Scope(path string) (*Scope, error) {
	return s.e.scope(path)
}

// Call invokes method on the scope at path.
func (s *Store) Call(path, method string, args ...any) (any, error) {
	scope, err := s.e.scope(path)
	if err != nil {
		return nil, err
	}
	return scope.Call(method, args...)
}

// On registers handler for event.
func (s *Store) On(event string, handler events.Handler) events.Subscription {
	return s.e.bus.On(event, handler)
}

// Off removes a handler registered with On.
func (s *Store) Off(sub events.Subscription) bool {
	return s.e.bus.Off(sub)
}

// Emit publishes a custom event synchronously and returns the number of
// handlers invoked.
func (s *Store) Emit(event string, payload any) int {
	return s.e.bus.Emit(event, payload)
}

// OnUpdate registers fn for batched update events.
func (s *Store) OnUpdate(fn func(UpdateEvent)) events.Subscription {
	if fn == nil {
		return events.Subscription{}
	}
	return s.e.bus.On(EventUpdate, func(payload any) {
		if ev, ok := payload.(UpdateEvent); ok {
			fn(ev)
		}
	})
}

// OnFetch registers fn for fetchScope events.
func (s *Store) OnFetch(fn func(FetchEvent)) events.Subscription {
	if fn == nil {
		return events.Subscription{}
	}
	return s.e.bus.On(EventFetchScope, func(payload any) {
		if ev, ok := payload.(FetchEvent); ok {
			fn(ev)
		}
	})
}

// Flush runs the callbacks pending on the store's scheduler when it can be
// drained and reports how many ran. Schedulers driven elsewhere return 0.
func (s *Store) Flush() int {
	if drainer, ok := s.e.cfg.scheduler.(scheduler.Drainer); ok {
		return drainer.Drain()
	}
	return 0
}

func (e *engine) scope(path string) (*Scope, error) {
	idx, ok := e.tpl.index[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, path)
	}
	return e.scopes[idx], nil
}

func (e *engine) read(idx int) any {
	n := e.nodes[idx]
	value, _ := tree.Lookup(e.state, n.spec.segments)
	if e.cfg.emitOnFetch {
		e.bus.Emit(EventFetchScope, FetchEvent{Store: e.store, Scope: n.spec.path})
	}
	return value
}

func (e *engine) write(idx int, value any) (any, error) {
	n := e.nodes[idx]
	current, _ := tree.Lookup(e.state, n.spec.segments)
	if e.readOnly {
		return current, nil
	}
	if tree.SameReference(current, value) {
		return nil, fmt.Errorf("%w: scope %q was given the value it already stores; pass a new value", ErrInvariantViolation, scopeLabel(n.spec.path))
	}
	if e.unchanged(current, value) {
		return current, nil
	}

	if idx == 0 {
		if !tree.IsMapping(value) {
			return nil, fmt.Errorf("%w: root scope requires a mapping, got %T", ErrIncompatibleState, value)
		}
		e.replace(e.tpl.freeze(value))
		e.logSet(n.spec.path)
		return e.state, nil
	}

	next, err := tree.Write(e.state, n.spec.segments, value)
	if err != nil {
		return nil, fmt.Errorf("scopes: set %s: %w", n.spec.path, err)
	}
	e.state = next
	e.revision++
	e.invalidate(idx)
	e.enqueue(n.spec.path)
	e.logSet(n.spec.path)
	stored, _ := tree.Lookup(next, n.spec.segments)
	return stored, nil
}

// replace swaps in a whole new state tree.
func (e *engine) replace(state any) {
	e.state = state
	e.revision++
	e.invalidateAll()
	e.enqueue(tree.Whole)
}

func (e *engine) unchanged(current, value any) bool {
	if e.cfg.shallowCompare {
		return sameArg(current, value)
	}
	return tree.Equal(current, value)
}

func (e *engine) logSet(path string) {
	e.cfg.logger.LogEvent(LogEvent{
		Kind:     LogKindSet,
		StoreID:  e.id,
		Scope:    path,
		Revision: e.revision,
	})
}
