package scopes

import "github.com/goliatone/go-scopes/pkg/activity"

// WithActivityHooks attaches activity hooks notified after every flush.
// Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on activity events.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.activity.Channel = channel
	}
}

// WithActivityIdentity sets the actor, user and tenant stamped on activity
// events.
func WithActivityIdentity(actorID, userID, tenantID string) Option {
	return func(cfg *storeConfig) {
		cfg.activity.ActorID = actorID
		cfg.activity.UserID = userID
		cfg.activity.Tenant = tenantID
	}
}

// ActivityHooks returns a cloned slice of the configured activity hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.e.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
