// Package ai defines the narrow interfaces the scoring engine uses to reach
// text-generation and embedding services, plus wrappers composing them.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Status classifies the outcome of a generation request.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// ErrDisabled is reported by the Disabled provider.
var ErrDisabled = errors.New("ai provider disabled")

// Options tune a single generation request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Outcome is what a Generator returns instead of raising. Callers decide on
// the fallback policy by looking at Status.
type Outcome struct {
	Text     string
	Status   Status
	Err      error
	Attempts int
	Provider string
}

// Usable reports whether the outcome carries text worth parsing.
func (o Outcome) Usable() bool {
	return o.Status == StatusOK
}

// NewOutcome classifies a raw provider response.
func NewOutcome(provider, text string, err error, attempts int) Outcome {
	out := Outcome{Provider: provider, Attempts: attempts, Err: err}
	switch {
	case err != nil:
		out.Status = StatusFailed
	case strings.TrimSpace(text) == "":
		out.Status = StatusEmpty
	default:
		out.Status = StatusOK
		out.Text = strings.TrimSpace(text)
	}
	return out
}

// Generator produces text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) Outcome
}

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Disabled satisfies both interfaces and always fails, which makes every
// consumer take its deterministic fallback path.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Generate(context.Context, string, Options) Outcome {
	return Outcome{Status: StatusFailed, Err: ErrDisabled, Provider: "disabled"}
}

func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}
