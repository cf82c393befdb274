package scopes

import (
	"fmt"
	"time"
)

// RuleContext carries the inputs an expression method is evaluated against.
// Value holds the scope value in plain map/slice form.
type RuleContext struct {
	Value    any
	Args     []any
	Scope    string
	Now      *time.Time
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = []any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// bindings returns the variables shared by every evaluator.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"value":    ctx.Value,
		"args":     ctx.Args,
		"scope":    ctx.Scope,
		"now":      ctx.timestamp(),
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	scope string
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// CompileForScope labels compile errors with the scope that owns the rule.
// Registry functions called by the compiled rule receive path as the calling
// scope.
func CompileForScope(path string) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.scope = path
	})
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*scopes.exprEvaluator":
		return "expr"
	case "*scopes.celEvaluator":
		return "cel"
	case "*scopes.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
