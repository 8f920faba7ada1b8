package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns nil when rps is not positive, meaning no throttling.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type throttledGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// Throttle waits on limiter before every request. A nil limiter returns g unchanged.
func Throttle(g Generator, limiter *rate.Limiter) Generator {
	if limiter == nil {
		return g
	}
	return &throttledGenerator{next: g, limiter: limiter}
}

func (t *throttledGenerator) Name() string { return t.next.Name() }

func (t *throttledGenerator) Generate(ctx context.Context, prompt string, opts Options) Outcome {
	if err := t.limiter.Wait(ctx); err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("rate limit wait: %w", err), Provider: t.next.Name()}
	}
	return t.next.Generate(ctx, prompt, opts)
}

type throttledEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// ThrottleEmbedder is the Embedder counterpart of Throttle.
func ThrottleEmbedder(e Embedder, limiter *rate.Limiter) Embedder {
	if limiter == nil {
		return e
	}
	return &throttledEmbedder{next: e, limiter: limiter}
}

func (t *throttledEmbedder) Name() string { return t.next.Name() }

func (t *throttledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.Embed(ctx, text)
}

// Recorder receives one observation per provider call.
type Recorder interface {
	ObserveAIRequest(provider, operation, status string, elapsed time.Duration)
}

type instrumentedGenerator struct {
	next Generator
	rec  Recorder
}

// Instrument reports every Generate call to rec. A nil recorder returns g unchanged.
func Instrument(g Generator, rec Recorder) Generator {
	if rec == nil {
		return g
	}
	return &instrumentedGenerator{next: g, rec: rec}
}

func (i *instrumentedGenerator) Name() string { return i.next.Name() }

func (i *instrumentedGenerator) Generate(ctx context.Context, prompt string, opts Options) Outcome {
	start := time.Now()
	out := i.next.Generate(ctx, prompt, opts)
	i.rec.ObserveAIRequest(i.next.Name(), "generate", out.Status.String(), time.Since(start))
	return out
}

type instrumentedEmbedder struct {
	next Embedder
	rec  Recorder
}

// InstrumentEmbedder reports every Embed call to rec.
func InstrumentEmbedder(e Embedder, rec Recorder) Embedder {
	if rec == nil {
		return e
	}
	return &instrumentedEmbedder{next: e, rec: rec}
}

func (i *instrumentedEmbedder) Name() string { return i.next.Name() }

func (i *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := i.next.Embed(ctx, text)
	status := StatusOK
	if err != nil {
		status = StatusFailed
	} else if len(vec) == 0 {
		status = StatusEmpty
	}
	i.rec.ObserveAIRequest(i.next.Name(), "embed", status.String(), time.Since(start))
	return vec, err
}
