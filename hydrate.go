package scopes

import (
	"fmt"
	"time"

	"github.com/goliatone/go-scopes/internal/hydrate"
	"github.com/goliatone/go-scopes/layering"
	"github.com/goliatone/go-scopes/pkg/tree"
)

// Hydrate atomically replaces the whole state tree with a deep copy of
// state, drops every cached method result and reports "*" in the next
// update. state must be a mapping. Read-only stores ignore it.
func (s *Store) Hydrate(state any) error {
	e := s.e
	if e.readOnly {
		return nil
	}
	start := time.Now()
	err := e.hydrate(state, hydrate.Context{StoreID: e.id})
	e.cfg.logger.LogEvent(LogEvent{
		Kind:     LogKindHydrate,
		StoreID:  e.id,
		Revision: e.revision,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// HydrateJSON parses data as a JSON object and hydrates the store with it.
func (s *Store) HydrateJSON(data []byte) error {
	return s.hydrateDocument(hydrate.FormatJSON, data)
}

// HydrateYAML parses data as a YAML mapping and hydrates the store with it.
func (s *Store) HydrateYAML(data []byte) error {
	return s.hydrateDocument(hydrate.FormatYAML, data)
}

func (s *Store) hydrateDocument(format hydrate.Format, data []byte) error {
	payload, err := hydrate.Parse(format, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleState, err)
	}
	return s.Hydrate(payload)
}

func (e *engine) hydrate(state any, ctx hydrate.Context) error {
	if !tree.IsMapping(state) {
		return fmt.Errorf("%w: hydrate requires a mapping, got %T", ErrIncompatibleState, state)
	}
	next := tree.DeepClone(state)

	if len(e.cfg.hydrateHooks) > 0 || e.cfg.hydrateDefaults {
		payload, _ := tree.Native(next).(map[string]any)
		decoded, err := e.hydrateDecoder().Decode(ctx, payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatibleState, err)
		}
		if e.cfg.hydrateDefaults {
			decoded = layering.MergeLayers(decoded, e.tpl.defaults)
		}
		next = decoded
	}

	if e.cfg.strictHydrate {
		if err := e.tpl.checkShape(next); err != nil {
			return err
		}
	}

	e.replace(e.tpl.freeze(next))
	return nil
}

func (e *engine) hydrateDecoder() *hydrate.Decoder[map[string]any] {
	opts := make([]hydrate.DecoderOption[map[string]any], 0, len(e.cfg.hydrateHooks))
	for _, hook := range e.cfg.hydrateHooks {
		hook := hook
		opts = append(opts, hydrate.WithPreHook[map[string]any](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
			return hook(payload)
		}))
	}
	return hydrate.NewDecoder[map[string]any](opts...)
}
