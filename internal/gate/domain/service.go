// Package domain defines the per-request credit gate contract.
package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUserNotProvisioned = errors.New("user_not_provisioned")
	ErrUnknownTool        = errors.New("unknown_tool")
)

// ToolFunc is the downstream tool logic invoked after the debit commits.
type ToolFunc func(ctx context.Context) (any, error)

// Service guards a chargeable tool call: resolve the user, atomically
// check-and-debit, invoke the tool, and record the attempt. The debit stands
// regardless of the tool's outcome; a call is charged for the attempt, not
// for success.
type Service interface {
	Charge(ctx context.Context, subjectID, toolName string, units int64, fn ToolFunc) (any, error)
}

// toolCosts is the per-tool price list in credits. Batch tools are priced
// per unit (e.g. per keyword) and scale with the request size.
var toolCosts = map[string]struct {
	Credits int64
	PerUnit bool
}{
	"keyword-research":  {Credits: 5, PerUnit: true},
	"backlink-analysis": {Credits: 3, PerUnit: false},
	"meta-tags":         {Credits: 1, PerUnit: false},
	"ssl-check":         {Credits: 1, PerUnit: false},
	"rank-tracker":      {Credits: 2, PerUnit: true},
	"content-brief":     {Credits: 5, PerUnit: false},
}

// Cost computes the credit cost of a tool call. units is the request size
// for per-unit tools and ignored otherwise; it is clamped to at least one.
func Cost(toolName string, units int64) (int64, error) {
	entry, ok := toolCosts[strings.TrimSpace(toolName)]
	if !ok {
		return 0, ErrUnknownTool
	}
	if !entry.PerUnit {
		return entry.Credits, nil
	}
	if units < 1 {
		units = 1
	}
	return entry.Credits * units, nil
}

// KnownTool reports whether a tool name is priced.
func KnownTool(toolName string) bool {
	_, ok := toolCosts[strings.TrimSpace(toolName)]
	return ok
}
