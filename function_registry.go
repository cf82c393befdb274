package scopes

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-scopes/pkg/tree"
)

// Function is a registered helper that only sees its arguments.
type Function func(args ...any) (any, error)

// FunctionCall describes one invocation made by an expression method.
type FunctionCall struct {
	Name string
	// Scope is the path of the scope whose method made the call. It is empty
	// for root methods and for standalone evaluations.
	Scope string
	Args  []any
}

// ScopedFunction is a registered helper that also sees the calling scope.
type ScopedFunction func(call FunctionCall) (any, error)

type registeredFunction struct {
	within string
	fn     ScopedFunction
}

func (f registeredFunction) visibleFrom(scope string) bool {
	return f.within == tree.Root || f.within == scope || tree.IsAncestor(f.within, scope)
}

// FunctionRegistry holds the helpers expression methods can call, keyed by
// lower-cased name. A helper may be limited to one scope subtree.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// Register makes fn callable from every scope.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("scopes: function %q is nil", name)
	}
	return r.RegisterWithin(tree.Root, name, func(call FunctionCall) (any, error) {
		return fn(call.Args...)
	})
}

// RegisterScoped makes fn callable from every scope and hands it the path of
// the calling scope.
func (r *FunctionRegistry) RegisterScoped(name string, fn ScopedFunction) error {
	return r.RegisterWithin(tree.Root, name, fn)
}

// RegisterWithin makes fn callable only from methods of the scope at path and
// its descendants.
func (r *FunctionRegistry) RegisterWithin(path, name string, fn ScopedFunction) error {
	if fn == nil {
		return fmt.Errorf("scopes: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("scopes: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("scopes: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{within: path, fn: fn}
	return nil
}

// Clone returns a copy that can be extended without affecting r.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]registeredFunction, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call invokes name as a root scope method would.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	return r.Invoke(FunctionCall{Name: name, Args: args})
}

// Invoke runs the function named by call on behalf of call.Scope.
func (r *FunctionRegistry) Invoke(call FunctionCall) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: registry is nil", ErrUnknownFunction)
	}
	r.mu.RLock()
	registered, ok := r.functions[strings.ToLower(call.Name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrUnknownFunction, call.Name)
	}
	if !registered.visibleFrom(call.Scope) {
		return nil, fmt.Errorf("%w: %q is limited to %q, called from %q", ErrUnknownFunction, call.Name, registered.within, scopeLabel(call.Scope))
	}
	return registered.fn(call)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// invoker returns a helper bound to scope, shaped for evaluator bindings.
func (r *FunctionRegistry) invoker(scope, name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Invoke(FunctionCall{Name: name, Scope: scope, Args: args})
	}
}

// WithFunctionRegistry makes registry available to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithScopedFunction registers fn under name for the default evaluator. The
// function receives the path of the scope whose method called it.
func WithScopedFunction(name string, fn ScopedFunction) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.RegisterScoped(name, fn)
	}
}
