package scopes

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExprMethods(t *testing.T) {
	store := mustNew(t, Template{
		"counter": Sub(3, Template{
			"double": Expr("value * 2"),
			"add":    Expr("value + args[0]"),
		}),
		"user": Sub(map[string]any{"name": "Ada", "roles": []any{"admin", "ops"}}, Template{
			"label":   Expr(`name + " (" + join(roles, ",") + ")"`),
			"isAdmin": Expr(`"admin" in value.roles`),
			"where":   Expr(`scope + ":" + metadata.method`),
		}),
	})

	cases := []struct {
		path, method string
		args         []any
		want         any
	}{
		{"counter", "double", nil, 6},
		{"counter", "add", []any{4}, 7},
		{"user", "label", nil, "Ada (admin,ops)"},
		{"user", "isAdmin", nil, true},
		{"user", "where", nil, "user:where"},
	}
	for _, tc := range cases {
		got, err := store.Call(tc.path, tc.method, tc.args...)
		if err != nil {
			t.Fatalf("%s.%s: %v", tc.path, tc.method, err)
		}
		if got != tc.want {
			t.Fatalf("%s.%s: expected %#v, got %#v", tc.path, tc.method, tc.want, got)
		}
	}

	mustSet(t, mustScope(t, store, "counter"), 10)
	if got, _ := store.Call("counter", "double"); got != 20 {
		t.Fatalf("expected recomputed expression, got %v", got)
	}
}

func TestExprRuntimeErrorsAreMethodErrors(t *testing.T) {
	store := mustNew(t, Template{
		"counter": Sub(3, Template{"first": Expr("args[0] * 2")}),
	})
	_, err := store.Call("counter", "first")
	var methodErr *MethodError
	var evalErr *EvaluationError
	if !errors.As(err, &methodErr) || !errors.As(err, &evalErr) {
		t.Fatalf("expected MethodError wrapping EvaluationError, got %T: %v", err, err)
	}
	if evalErr.Scope != "counter" || evalErr.Engine != "expr" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
}

func TestExprCustomFunctionsAreMemoized(t *testing.T) {
	calls := 0
	store := mustNew(t, Template{
		"price": Sub(100, Template{
			"gross": Expr("vat(value)"),
			"net":   Expr(`call("vat", value) - value`),
		}),
	}, WithCustomFunction("VAT", func(args ...any) (any, error) {
		calls++
		amount, ok := args[0].(int)
		if !ok {
			return nil, errors.New("vat expects an int")
		}
		return amount * 120 / 100, nil
	}))

	for i := 0; i < 3; i++ {
		got, err := store.Call("price", "gross")
		if err != nil || got != 120 {
			t.Fatalf("gross: %v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one evaluation, got %d", calls)
	}
	if got, _ := store.Call("price", "net"); got != 20 {
		t.Fatalf("expected net 20, got %v", got)
	}
}

func TestExprProgramCacheIsShared(t *testing.T) {
	cache := NewMemoryProgramCache()
	template := Template{"counter": Sub(1, Template{"double": Expr("value * 2")})}
	mustNew(t, template, WithProgramCache(cache))
	mustNew(t, template, WithProgramCache(cache))
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
	if _, ok := cache.Get("expr:value * 2"); !ok {
		t.Fatalf("expected program keyed by engine and expression")
	}
}

func TestExprEvaluatorStandalone(t *testing.T) {
	evaluator := NewExprEvaluator()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := evaluator.Evaluate(RuleContext{Value: map[string]any{"n": 2}, Now: &now}, "n + now.Year()")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != 2027 {
		t.Fatalf("expected 2027, got %v", got)
	}
	if _, err := evaluator.Evaluate(RuleContext{}, ""); err == nil || !strings.HasPrefix(err.Error(), "scopes: expr evaluator") {
		t.Fatalf("expected empty expression error, got %v", err)
	}
	if evaluatorEngineName(evaluator) != "expr" || evaluatorEngineName(nil) != "unknown" {
		t.Fatalf("unexpected engine names")
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return len(args), nil }
	if err := registry.Register("Count", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("count", fn); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register("", fn); err == nil {
		t.Fatalf("expected empty name to fail")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function to fail")
	}
	clone := registry.Clone()
	clone.Register("extra", fn)
	if len(registry.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("expected clone to be independent")
	}
	got, err := registry.Call("COUNT", 1, 2)
	if err != nil || got != 2 {
		t.Fatalf("call: %v %v", got, err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestRegistryLimitsFunctionsToSubtree(t *testing.T) {
	registry := NewFunctionRegistry()
	audit := func(call FunctionCall) (any, error) { return "audited " + call.Scope, nil }
	if err := registry.RegisterWithin("user", "audit", audit); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, scope := range []string{"user", "user.profile"} {
		got, err := registry.Invoke(FunctionCall{Name: "AUDIT", Scope: scope})
		if err != nil || got != "audited "+scope {
			t.Fatalf("invoke from %q: %v %v", scope, got, err)
		}
	}
	for _, scope := range []string{"", "users", "counter"} {
		if _, err := registry.Invoke(FunctionCall{Name: "audit", Scope: scope}); !errors.Is(err, ErrUnknownFunction) {
			t.Fatalf("expected %q to be outside the subtree, got %v", scope, err)
		}
	}
}

func TestExprFunctionsReceiveCallingScope(t *testing.T) {
	cache := NewMemoryProgramCache()
	registry := NewFunctionRegistry()
	registry.RegisterWithin("user", "owner", func(call FunctionCall) (any, error) {
		return strings.ToUpper(call.Scope), nil
	})
	store := mustNew(t, Template{
		"user": Sub(map[string]any{"name": "Ada"}, Template{
			"where": Expr("whereami()"),
			"owner": Expr(`call("owner")`),
			"profile": Sub(map[string]any{}, Template{
				"where": Expr("whereami()"),
				"owner": Expr("owner()"),
			}),
		}),
		"counter": Sub(0, Template{
			"where": Expr("whereami()"),
			"owner": Expr("owner()"),
		}),
	},
		WithProgramCache(cache),
		WithFunctionRegistry(registry),
		WithScopedFunction("whereami", func(call FunctionCall) (any, error) {
			return call.Scope, nil
		}),
	)

	cases := []struct{ path, method, want string }{
		{"user", "where", "user"},
		{"user.profile", "where", "user.profile"},
		{"counter", "where", "counter"},
		{"user", "owner", "USER"},
		{"user.profile", "owner", "USER.PROFILE"},
	}
	for _, tc := range cases {
		got, err := store.Call(tc.path, tc.method)
		if err != nil || got != tc.want {
			t.Fatalf("%s.%s: expected %q, got %v (%v)", tc.path, tc.method, tc.want, got, err)
		}
	}
	if _, err := store.Call("counter", "owner"); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected owner() to be unavailable outside user, got %v", err)
	}
	if _, ok := cache.Get("expr:user.profile:whereami()"); !ok {
		t.Fatalf("expected programs calling functions to be cached per scope")
	}
}
