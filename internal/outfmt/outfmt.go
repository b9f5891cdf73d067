// Package outfmt carries the output mode (human text vs machine JSON)
// through a context so commands can stay ignorant of flag plumbing.
package outfmt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

var errInvalidMode = errors.New("invalid output mode (expected text|json)")

// Parse maps a flag value to a Mode. The empty string means text.
func Parse(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText, "":
		return ModeText, nil
	case ModeJSON:
		return ModeJSON, nil
	default:
		return "", errInvalidMode
	}
}

type ctxKey struct{}

func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, ctxKey{}, mode)
}

func FromContext(ctx context.Context) Mode {
	if m, ok := ctx.Value(ctxKey{}).(Mode); ok {
		return m
	}

	return ModeText
}

func IsJSON(ctx context.Context) bool {
	return FromContext(ctx) == ModeJSON
}

// WriteJSON encodes v as indented JSON without HTML escaping, the shape CI
// log scrapers expect.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
