package scopes

import (
	"fmt"

	"github.com/goliatone/go-scopes/internal/hydrate"
	"github.com/goliatone/go-scopes/pkg/tree"
)

// DecodeContext identifies the scope being decoded by DecodeScope.
type DecodeContext struct {
	StoreID string
	Scope   string
}

// DecodeOption configures DecodeScope.
type DecodeOption[T any] func(*[]hydrate.DecoderOption[T])

// DecodeTag selects the struct tag matched against scope keys. Defaults to
// "json".
func DecodeTag[T any](tag string) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithTagName[T](tag))
	}
}

// DecodeWeakly allows lenient conversions such as "8080" into an int field.
func DecodeWeakly[T any]() DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithWeaklyTypedInput[T]())
	}
}

// DecodeNormalize rewrites the plain scope value before it is decoded. The
// map handed to fn is a private copy; the store is never modified.
func DecodeNormalize[T any](fn func(DecodeContext, map[string]any) (map[string]any, error)) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithPreHook[T](func(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
			return fn(decodeContext(ctx), payload)
		}))
	}
}

// DecodeValidate inspects or adjusts the decoded value. An error fails the
// decode.
func DecodeValidate[T any](fn func(DecodeContext, *T) error) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithPostHook[T](func(ctx hydrate.Context, out *T) error {
			return fn(decodeContext(ctx), out)
		}))
	}
}

// DecodeUsing replaces struct decoding with fn.
func DecodeUsing[T any](fn func(DecodeContext, map[string]any) (T, error)) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithCustomDecoder[T](func(ctx hydrate.Context, payload map[string]any) (T, error) {
			return fn(decodeContext(ctx), payload)
		}))
	}
}

// DecodeScope decodes the value of a mapping scope into a new T. Durations
// and RFC 3339 timestamps written as strings are converted.
func DecodeScope[T any](s *Scope, opts ...DecodeOption[T]) (T, error) {
	var zero T
	value := s.Get()
	payload, ok := tree.Native(value).(map[string]any)
	if !ok || payload == nil {
		return zero, fmt.Errorf("%w: scope %q holds %T, decoding requires a mapping", ErrIncompatibleState, scopeLabel(s.Path()), value)
	}

	var decoderOpts []hydrate.DecoderOption[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&decoderOpts)
		}
	}
	out, err := hydrate.NewDecoder[T](decoderOpts...).Decode(hydrate.Context{
		StoreID: s.e.id,
		Scope:   s.Path(),
	}, payload)
	if err != nil {
		return zero, fmt.Errorf("scopes: decode %s: %w", scopeLabel(s.Path()), err)
	}
	return out, nil
}

func decodeContext(ctx hydrate.Context) DecodeContext {
	return DecodeContext{StoreID: ctx.StoreID, Scope: ctx.Scope}
}
