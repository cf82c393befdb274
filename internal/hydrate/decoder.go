// Package hydrate normalises payloads before they replace a store's state
// and decodes scope values into typed results. It parses JSON and YAML
// documents into plain trees and runs pre and post hooks around decoding.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-scopes/layering"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format identifies a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptyPayload indicates a document that decodes to nothing.
var ErrEmptyPayload = errors.New("hydrate: payload is empty")

// Context carries identifiers tied to a payload. Scope is set when a single
// scope is decoded rather than a whole document.
type Context struct {
	StoreID string
	Scope   string
	Format  Format
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default mapstructure decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts plain payload trees into T.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	tagName   string
	weak      bool
	custom    CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithTagName selects the struct tag consulted when decoding. Defaults to
// "json".
func WithTagName[T any](tag string) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if tag != "" {
			d.tagName = tag
		}
	}
}

// WithWeaklyTypedInput enables mapstructure's weak conversions, such as
// strings to numbers.
func WithWeaklyTypedInput[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.weak = true
	}
}

// WithCustomDecoder replaces the default decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{tagName: "json"}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks. payload itself
// is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for store %q", ctx.StoreID)
	}

	current := layering.Clone(payload)

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for store %q failed: %w", ctx.StoreID, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	switch {
	case d.custom != nil:
		decoded, err := d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for store %q failed: %w", ctx.StoreID, err)
		}
		result = decoded
	default:
		if target, ok := any(&result).(*map[string]any); ok {
			*target = current
			break
		}
		if err := decode(current, &result, d.tagName, d.weak); err != nil {
			return zero, fmt.Errorf("hydrate: decode store %q: %w", ctx.StoreID, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for store %q failed: %w", ctx.StoreID, err)
		}
	}

	return result, nil
}

// Parse decodes a JSON or YAML document whose root is a mapping.
func Parse(format Format, data []byte) (map[string]any, error) {
	var out map[string]any
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
			return nil, fmt.Errorf("hydrate: parse json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("hydrate: parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("hydrate: unsupported format %q", format)
	}
	if out == nil {
		return nil, ErrEmptyPayload
	}
	return out, nil
}

// Into decodes a plain tree into out, matching struct fields by their json
// tag.
func Into(input any, out any) error {
	return decode(input, out, "json", false)
}

func decode(input any, out any, tagName string, weak bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          tagName,
		WeaklyTypedInput: weak,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return fmt.Errorf("hydrate: create decoder: %w", err)
	}
	return decoder.Decode(input)
}
