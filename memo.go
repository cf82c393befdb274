package scopes

import (
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-scopes/pkg/tree"
)

// cacheEntry is the last result of one method. It is valid while the node's
// generation still equals the generation observed when the body started.
type cacheEntry struct {
	args       []any
	result     any
	generation uint64
}

func (e *engine) call(idx int, name string, args []any) (any, error) {
	n := e.nodes[idx]
	spec, ok := n.spec.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, scopeLabel(n.spec.path), name)
	}
	if entry, ok := n.cache[name]; ok && entry.generation == n.generation && argsEqual(entry.args, args) {
		return entry.result, nil
	}

	generation := n.generation
	stored := append([]any(nil), args...)
	result, err := e.invoke(idx, spec, args)
	if err != nil {
		return nil, &MethodError{Scope: n.spec.path, Method: name, Err: err}
	}
	if !e.readOnly {
		n.cache[name] = cacheEntry{args: stored, result: result, generation: generation}
	}
	return result, nil
}

func (e *engine) invoke(idx int, spec *methodSpec, args []any) (any, error) {
	ctx := &Context{scope: e.scopes[idx]}
	if spec.fn != nil {
		return spec.fn(ctx, args...)
	}

	path := e.nodes[idx].spec.path
	rule := RuleContext{
		Value:    tree.Native(ctx.Get()),
		Args:     append([]any(nil), args...),
		Scope:    path,
		Metadata: map[string]any{"store_id": e.id, "method": spec.name},
	}
	start := time.Now()
	value, err := spec.rule.Evaluate(rule)
	engineName := evaluatorEngineName(spec.evaluator)
	err = wrapEvaluationError(engineName, spec.expression, path, err)
	e.cfg.logger.LogEvent(LogEvent{
		Kind:     LogKindEvaluation,
		StoreID:  e.id,
		Scope:    path,
		Method:   spec.name,
		Engine:   engineName,
		Expr:     spec.expression,
		Revision: e.revision,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// invalidate drops the cached results that may depend on the node at idx:
// its own, its ancestors' and its descendants'.
func (e *engine) invalidate(idx int) {
	for p := idx; p >= 0; p = e.nodes[p].spec.parent {
		e.nodes[p].generation++
	}
	e.invalidateBelow(idx)
}

func (e *engine) invalidateBelow(idx int) {
	for _, child := range e.nodes[idx].spec.children {
		e.nodes[child].generation++
		e.invalidateBelow(child)
	}
}

func (e *engine) invalidateAll() {
	for _, n := range e.nodes {
		n.generation++
	}
}

func argsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameArg(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameArg compares reference types by identity and everything else with ==.
// Functions never compare equal.
func sameArg(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

func comparableEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
