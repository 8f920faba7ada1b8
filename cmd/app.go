package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/ai/gemini"
	"github.com/spigell/smartrecruit/internal/ai/ollama"
	"github.com/spigell/smartrecruit/internal/feedback"
	"github.com/spigell/smartrecruit/internal/matching"
	"github.com/spigell/smartrecruit/internal/observability"
	"github.com/spigell/smartrecruit/internal/scoring"
	"github.com/spigell/smartrecruit/internal/secrets"
	"github.com/spigell/smartrecruit/internal/similarity"
	"github.com/spigell/smartrecruit/internal/store"
)

const (
	providerOllama = "ollama"
	providerGemini = "gemini"
	providerNone   = "none"
)

// application holds everything a command needs to score records.
type application struct {
	config   *Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	feedback *feedback.Store
	engine   *matching.Engine
	ranker   *matching.Ranker
	store    store.Store

	closers []func(context.Context) error
}

// newApplication wires providers, caches, scorers and persistence from config.
// withStore is false for commands that never persist results.
func newApplication(ctx context.Context, config *Config, logger *zap.Logger, withStore bool) (*application, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	a := &application{
		config:   config,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		feedback: feedback.Load(config.FeedbackDir, logger),
	}

	if a.feedback.Enhanced() {
		logger.Info("feedback loaded", zap.Int("entries", a.feedback.Len()))
	}

	generator, embedder, err := newProviders(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai providers: %w", err)
	}

	var rps float64
	if config.AI != nil {
		rps = config.AI.RequestsPerSecond
	}
	limiter := ai.NewLimiter(rps, 1)
	generator = ai.Instrument(ai.Throttle(generator, limiter), a.metrics)
	embedder = ai.InstrumentEmbedder(ai.ThrottleEmbedder(embedder, limiter), a.metrics)

	cache, err := a.variationCache(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	tracing, err := observability.NewTracerSetup(ctx, &config.Tracing)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.closers = append(a.closers, tracing.Shutdown)

	resolver := similarity.New(generator, cache, a.feedback, logger, similarity.WithRecorder(a.metrics))
	a.engine, err = matching.NewEngine(matching.Deps{
		Resolver: resolver,
		Assessor: scoring.NewCulturalFitAssessor(generator, a.feedback, a.metrics, logger),
		Semantic: scoring.NewSemanticScorer(embedder, a.metrics, logger),
		Feedback: a.feedback,
		Metrics:  a.metrics,
		Tracer:   tracing.Tracer(),
		Logger:   logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("building matching engine: %w", err)
	}
	a.ranker = matching.NewRanker(a.engine, config.Workers, logger, a.metrics)

	a.store = store.Nop{}
	if withStore {
		storeConfig := config.Store
		storeConfig.DSN, err = secrets.Optional(secrets.Source{
			Name:  "postgres dsn",
			Value: storeConfig.DSN,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}

		a.store, err = store.Open(ctx, storeConfig, logger)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("opening %q store: %w", storeConfig.Driver, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })
	}

	return a, nil
}

// variationCache returns an in-memory cache, backed by redis when configured.
func (a *application) variationCache(ctx context.Context) (similarity.Cache, error) {
	memory := similarity.NewMemoryCache()
	if a.config.Cache == nil {
		return memory, nil
	}

	url, err := secrets.Optional(secrets.Source{
		Name:  "redis url",
		Value: a.config.Cache.RedisURL,
		Env:   "REDIS_URL",
	})
	if err != nil || url == "" {
		return memory, err
	}

	rdb, err := similarity.ConnectRedis(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

	a.logger.Info("using redis variation cache", zap.String("prefix", a.config.Cache.KeyPrefix))
	return similarity.NewTiered(memory, similarity.NewRedisCache(rdb, a.config.Cache.KeyPrefix, a.logger)), nil
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// newProviders builds the generator and embedder for the configured provider.
// A configured fallback provider is tried when the primary gives nothing usable.
func newProviders(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, ai.Embedder, error) {
	if cfg == nil {
		return ai.Disabled{}, ai.Disabled{}, nil
	}

	generator, embedder, err := newProvider(ctx, cfg.Provider, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	fallback := strings.ToLower(strings.TrimSpace(cfg.Fallback))
	if fallback == "" || fallback == providerNone {
		return generator, embedder, nil
	}

	secondary, _, err := newProvider(ctx, fallback, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("fallback provider: %w", err)
	}

	chain, err := ai.NewChain(logger, generator, secondary)
	if err != nil {
		return nil, nil, err
	}

	return chain, embedder, nil
}

func newProvider(ctx context.Context, name string, cfg *AIConfig, logger *zap.Logger) (ai.Generator, ai.Embedder, error) {
	switch provider := strings.ToLower(strings.TrimSpace(name)); provider {
	case "", providerNone:
		logger.Warn("ai provider disabled, all components use their fallbacks")
		return ai.Disabled{}, ai.Disabled{}, nil

	case providerOllama:
		oc := cfg.Ollama
		if oc == nil {
			oc = &OllamaConfig{}
		}
		client := ollama.New(ollama.Config{
			URL:            oc.URL,
			Model:          oc.Model,
			EmbeddingModel: oc.EmbeddingModel,
			Timeout:        oc.Timeout,
			MaxRetries:     oc.MaxRetries,
			MaxLogLength:   cfg.MaxLogLength,
		}, logger)
		return client, client, nil

	case providerGemini:
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: gc.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, nil, err
		}

		generator, err := gemini.NewGenerator(client, gc.Model, gc.MaxRetries, cfg.MaxLogLength, logger)
		if err != nil {
			return nil, nil, err
		}

		embedder, err := gemini.NewEmbedder(client, gc.EmbeddingModel, gc.MaxRetries, logger)
		if err != nil {
			return nil, nil, err
		}

		return generator, embedder, nil

	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
}
