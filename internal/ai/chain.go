package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Chain tries generators in order and returns the first usable outcome.
type Chain struct {
	generators []Generator
	logger     *zap.Logger
}

// NewChain requires at least one generator.
func NewChain(logger *zap.Logger, generators ...Generator) (*Chain, error) {
	if len(generators) == 0 {
		return nil, fmt.Errorf("chain requires at least one generator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{generators: generators, logger: logger}, nil
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.generators))
	for _, g := range c.generators {
		names = append(names, g.Name())
	}
	return strings.Join(names, "+")
}

func (c *Chain) Generate(ctx context.Context, prompt string, opts Options) Outcome {
	var last Outcome
	attempts := 0
	for i, g := range c.generators {
		out := g.Generate(ctx, prompt, opts)
		attempts += out.Attempts
		if out.Usable() {
			if i > 0 {
				c.logger.Info("generator fallback succeeded",
					zap.String("provider", g.Name()),
					zap.Int("position", i+1),
				)
			}
			out.Attempts = attempts
			return out
		}

		c.logger.Warn("generator failed, trying next",
			zap.String("provider", g.Name()),
			zap.Stringer("status", out.Status),
			zap.Error(out.Err),
			zap.Int("remaining", len(c.generators)-i-1),
		)
		last = out
	}

	last.Attempts = attempts
	return last
}
