// Package extract defines the external text-analysis capability the triage
// pipeline depends on, and the backends that implement it.
package extract

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no extraction backend has credentials.
// It is a deployment precondition failure, not a data problem, and callers
// surface it as a configuration error.
var ErrNotConfigured = errors.New("extract: no extraction backend configured")

// Extractor produces entities, key phrases and sentiment for a text blob.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Result, error)
}

// Unconfigured is the stand-in used when neither backend has credentials.
// Every call fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Extract(context.Context, string) (*Result, error) {
	return nil, ErrNotConfigured
}
