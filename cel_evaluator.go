package scopes

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions are reachable through call(name, [args...]).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	mu   sync.Mutex
	envs map[string]*celgo.Env
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Expressions see
// the fixed variables value, args, scope, now and metadata.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression, ctx.Scope)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	program, err := e.loadOrCompile(expression, cfg.scope)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression, scope string) (celgo.Program, error) {
	if e.registry == nil {
		scope = ""
	}
	key := "cel:" + expression
	if e.registry != nil {
		key = "cel:" + scope + ":" + expression
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.environment(scope)
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, scope, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, scope, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

// environment returns the env for scope. call is bound to the scope, so
// each scope gets its own env once a registry is configured.
func (e *celEvaluator) environment(scope string) (*celgo.Env, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if env, ok := e.envs[scope]; ok {
		return env, nil
	}
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("args", celgo.ListType(celgo.DynType)),
		celgo.Variable("scope", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.registry != nil {
		binding := &celCallBinding{registry: e.registry, scope: scope}
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(binding.call),
			),
		))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	if e.envs == nil {
		e.envs = make(map[string]*celgo.Env)
	}
	e.envs[scope] = env
	return env, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string, program celgo.Program) (any, error) {
	ctx = ctx.withDefaults()
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.Scope, err)
	}
	return out.Value(), nil
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
	program    celgo.Program
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	if r.program == nil {
		return r.evaluator.Evaluate(ctx, r.expression)
	}
	return r.evaluator.run(ctx, r.expression, r.program)
}

type celCallBinding struct {
	registry *FunctionRegistry
	scope    string
}

func (b *celCallBinding) call(lhs, rhs ref.Val) ref.Val {
	name, ok := lhs.Value().(string)
	if !ok {
		return types.NewErr("scopes: call name must be string")
	}
	lister, ok := rhs.(traits.Lister)
	if !ok {
		return types.NewErr("scopes: call arguments must be a list")
	}
	size, ok := lister.Size().(types.Int)
	if !ok {
		return types.NewErr("scopes: call arguments have no size")
	}
	args := make([]any, 0, int(size))
	for i := types.Int(0); i < size; i++ {
		args = append(args, lister.Get(i).Value())
	}
	result, err := b.registry.Invoke(FunctionCall{Name: name, Scope: b.scope, Args: args})
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
