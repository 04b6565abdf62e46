// Package coding provides terminology resolution for extraction transforms:
// a reference store for lookup transforms and an external suggestion client
// for ai_match transforms.
package coding

import (
	"context"
	"errors"
)

// Code is one resolved terminology entry.
type Code struct {
	Code       string  `json:"code"`
	Display    string  `json:"display"`
	System     string  `json:"system"`
	Confidence float64 `json:"confidence"`
}

// ErrNoMatch is returned when the reference store has no entry for the text.
var ErrNoMatch = errors.New("coding: no matching reference code")

// Lookup resolves free text against the workspace reference code table.
type Lookup interface {
	LookupCode(ctx context.Context, text, system string) (*Code, error)
}

// Suggester asks the external code-suggestion service for its top suggestion.
type Suggester interface {
	Suggest(ctx context.Context, text, system string) (*Code, error)
}
