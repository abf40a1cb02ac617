// Package llm is the capability contract for the language-model vendor. The
// credit gate does not depend on these calls succeeding; accounting happens
// regardless of the vendor outcome.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var ErrUnparseable = errors.New("unparseable_vendor_output")

// Provider asks the configured vendor for a completion.
type Provider interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ParseJSON extracts the first JSON object or array from vendor text output
// into v. Vendors wrap JSON in prose or code fences often enough that a
// plain Unmarshal is not usable.
func ParseJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrUnparseable
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ErrUnparseable
	}
	end := strings.LastIndexAny(text, "}]")
	if end < start {
		return ErrUnparseable
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return ErrUnparseable
	}
	return nil
}

// StaticProvider is the offline stand-in used when no vendor is configured.
type StaticProvider struct{}

func (p *StaticProvider) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return `{"status": "ok", "note": "vendor not configured"}`, nil
}
