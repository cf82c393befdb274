package scopes

import "time"

// Log event kinds.
const (
	LogKindSet        = "set"
	LogKindFlush      = "flush"
	LogKindHydrate    = "hydrate"
	LogKindEvaluation = "evaluation"
	LogKindActivity   = "activity"
)

// LogEvent describes a store operation for logging.
type LogEvent struct {
	Kind     string
	StoreID  string
	Scope    string
	Method   string
	Engine   string
	Expr     string
	Modified []string
	Revision uint64
	Duration time.Duration
	Err      error
}

// Logger records store events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches a logger to the store.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
