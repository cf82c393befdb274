package scopes

import (
	"errors"
	"testing"
)

func TestCELMethods(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		n, ok := args[0].(int64)
		if !ok {
			return nil, errors.New("double expects an int64")
		}
		return n * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cel := NewCELEvaluator(CELWithFunctionRegistry(registry), CELWithProgramCache(NewMemoryProgramCache()))

	store := mustNew(t, Template{
		"counter": Sub(3, Template{
			"triple":  Expr("value * 3"),
			"doubled": Expr(`call("double", [value])`),
			"plus":    Expr("value + args[0]"),
		}),
		"user": Sub(map[string]any{"name": "Ada"}, Template{
			"greeting": Expr(`"hi " + value.name + " from " + scope`),
		}),
	}, WithEvaluator(cel))

	cases := []struct {
		path, method string
		args         []any
		want         any
	}{
		{"counter", "triple", nil, int64(9)},
		{"counter", "doubled", nil, int64(6)},
		{"counter", "plus", []any{int64(2)}, int64(5)},
		{"user", "greeting", nil, "hi Ada from user"},
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
}

func TestCELPerMethodEvaluator(t *testing.T) {
	store := mustNew(t, Template{
		"counter": Sub(4, Template{
			"viaExpr": Expr("value / 2"),
			"viaCEL":  ExprWith(NewCELEvaluator(), "value / 2"),
		}),
	})
	viaExpr, err := store.Call("counter", "viaExpr")
	if err != nil {
		t.Fatalf("viaExpr: %v", err)
	}
	viaCEL, err := store.Call("counter", "viaCEL")
	if err != nil {
		t.Fatalf("viaCEL: %v", err)
	}
	if viaExpr != float64(2) || viaCEL != int64(2) {
		t.Fatalf("expected engine-specific numeric types, got %#v and %#v", viaExpr, viaCEL)
	}
}

func TestCELErrors(t *testing.T) {
	_, err := New(Template{
		"counter": Sub(0, Template{"broken": ExprWith(NewCELEvaluator(), "value +")}),
	})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "cel" || evalErr.Scope != "counter" {
		t.Fatalf("expected cel compile error, got %v", err)
	}

	store := mustNew(t, Template{
		"counter": Sub(0, Template{"missing": ExprWith(NewCELEvaluator(), "args[0]")}),
	})
	_, err = store.Call("counter", "missing")
	var methodErr *MethodError
	if !errors.As(err, &methodErr) || !errors.As(err, &evalErr) || evalErr.Engine != "cel" {
		t.Fatalf("expected cel runtime error, got %v", err)
	}
}

func TestCELFunctionsReceiveCallingScope(t *testing.T) {
	registry := NewFunctionRegistry()
	registry.RegisterScoped("whereami", func(call FunctionCall) (any, error) {
		return call.Scope, nil
	})
	cel := NewCELEvaluator(CELWithFunctionRegistry(registry), CELWithProgramCache(NewMemoryProgramCache()))
	store := mustNew(t, Template{
		"a": Sub(0, Template{"where": Expr(`call("whereami", [])`)}),
		"b": Sub(0, Template{"where": Expr(`call("whereami", [])`)}),
	}, WithEvaluator(cel))

	for _, path := range []string{"a", "b"} {
		got, err := store.Call(path, "where")
		if err != nil || got != path {
			t.Fatalf("%s.where: expected %q, got %#v (%v)", path, path, got, err)
		}
	}
}
