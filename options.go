package scopes

import (
	"github.com/goliatone/go-scopes/pkg/activity"
	"github.com/goliatone/go-scopes/pkg/scheduler"
)

// Option configures a Store.
type Option func(*storeConfig)

// HydrateHook rewrites a hydrate payload before it replaces the state tree.
// Returning a nil map keeps the payload unchanged.
type HydrateHook func(state map[string]any) (map[string]any, error)

type storeConfig struct {
	emitOnFetch     bool
	scheduler       scheduler.Scheduler
	logger          Logger
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	activityHooks   activity.Hooks
	activity        activity.Config
	shallowCompare  bool
	strictHydrate   bool
	hydrateDefaults bool
	hydrateHooks    []HydrateHook
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.scheduler == nil {
		cfg.scheduler = scheduler.NewQueue()
	}
	cfg.activity.Enabled = len(cfg.activityHooks) > 0
	return cfg
}

// WithEmitOnFetch enables the fetchScope event on every scope read.
func WithEmitOnFetch(enabled bool) Option {
	return func(cfg *storeConfig) {
		cfg.emitOnFetch = enabled
	}
}

// WithScheduler sets the scheduler that defers update flushes. Stores
// without one own a private scheduler.Queue drained through Store.Flush.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(cfg *storeConfig) {
		cfg.scheduler = s
	}
}

// WithEvaluator configures the evaluator used by Expr methods.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithDeepCompare toggles the semantic no-op check performed by Set. When
// disabled only ==-equal values are treated as unchanged.
func WithDeepCompare(enabled bool) Option {
	return func(cfg *storeConfig) {
		cfg.shallowCompare = !enabled
	}
}

// WithStrictHydrate rejects hydrate payloads missing a scope path or holding
// a non-mapping value where a scope has children.
func WithStrictHydrate() Option {
	return func(cfg *storeConfig) {
		cfg.strictHydrate = true
	}
}

// WithHydrateDefaults fills values missing from hydrate payloads with the
// template defaults.
func WithHydrateDefaults() Option {
	return func(cfg *storeConfig) {
		cfg.hydrateDefaults = true
	}
}

// WithHydrateHooks appends hooks run, in order, on every hydrate payload.
func WithHydrateHooks(hooks ...HydrateHook) Option {
	return func(cfg *storeConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hydrateHooks = append(cfg.hydrateHooks, hook)
			}
		}
	}
}
