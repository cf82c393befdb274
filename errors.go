package scopes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTemplate indicates a template entry that is neither a method
	// nor a sub-scope, or a malformed root template.
	ErrInvalidTemplate = errors.New("scopes: invalid template")
	// ErrMissingDefault indicates a sub-scope declared without a default value.
	ErrMissingDefault = errors.New("scopes: sub-scope default is required")
	// ErrInvariantViolation indicates Set received the reference already
	// stored at the scope path.
	ErrInvariantViolation = errors.New("scopes: invariant violation")
	// ErrIncompatibleState indicates a state value whose shape cannot host the
	// template's scopes.
	ErrIncompatibleState = errors.New("scopes: incompatible state")
	// ErrUnknownScope indicates a path that names no scope.
	ErrUnknownScope = errors.New("scopes: unknown scope")
	// ErrUnknownMethod indicates a method name not declared on the scope.
	ErrUnknownMethod = errors.New("scopes: unknown method")
	// ErrNoEvaluator indicates an expression method without an evaluator.
	ErrNoEvaluator = errors.New("scopes: evaluator not configured")
	// ErrUnknownFunction indicates a call to a function that is not
	// registered, or not registered for the calling scope.
	ErrUnknownFunction = errors.New("scopes: unknown function")
)

// TemplateError reports a construction failure at a template path.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("scopes: template %s: %v", path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MethodError wraps an error returned by a scope method body.
type MethodError struct {
	Scope  string
	Method string
	Err    error
}

func (e *MethodError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("scopes: %s.%s: %v", scopeLabel(e.Scope), e.Method, e.Err)
}

func (e *MethodError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("scopes: %s evaluator %s scope=%s: %v", e.Engine, describeExpression(e.Expr), scopeLabel(e.Scope), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func scopeLabel(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func templateError(path string, err error) error {
	var existing *TemplateError
	if errors.As(err, &existing) {
		return err
	}
	return &TemplateError{Path: path, Err: err}
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "scopes:") {
		return err
	}
	return fmt.Errorf("scopes: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
