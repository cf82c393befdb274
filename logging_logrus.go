package scopes

import (
	"github.com/sirupsen/logrus"
)

// LogrusLogger writes store events to a logrus logger. Failed events are
// logged at warn level, everything else at debug.
type LogrusLogger struct {
	Logger logrus.FieldLogger
}

// NewLogrusLogger wraps logger, falling back to the logrus standard logger.
func NewLogrusLogger(logger logrus.FieldLogger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{Logger: logger}
}

// LogEvent implements Logger.
func (l *LogrusLogger) LogEvent(event LogEvent) {
	if l == nil || l.Logger == nil {
		return
	}
	fields := logrus.Fields{
		"kind":     event.Kind,
		"revision": event.Revision,
	}
	if event.StoreID != "" {
		fields["store_id"] = event.StoreID
	}
	if event.Scope != "" {
		fields["scope"] = event.Scope
	}
	if event.Method != "" {
		fields["method"] = event.Method
	}
	if event.Engine != "" {
		fields["engine"] = event.Engine
	}
	if event.Expr != "" {
		fields["expr"] = event.Expr
	}
	if len(event.Modified) > 0 {
		fields["modified"] = event.Modified
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration
	}

	entry := l.Logger.WithFields(fields)
	if event.Err != nil {
		entry.WithError(event.Err).Warn("scopes: " + event.Kind + " failed")
		return
	}
	entry.Debug("scopes: " + event.Kind)
}

// WithLogrus routes store events to logger.
func WithLogrus(logger logrus.FieldLogger) Option {
	return WithLogger(NewLogrusLogger(logger))
}
