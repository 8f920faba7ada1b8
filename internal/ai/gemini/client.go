package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/logger"
)

const (
	providerName          = "gemini"
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultMaxRetries     = 3
	defaultMaxLogLength   = 200
)

// models is the subset of genai.Models used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// NewClient creates a genai client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// Generator implements ai.Generator on top of Gemini.
type Generator struct {
	models     models
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// NewGenerator wraps the client's model service. Empty model and non-positive
// retries fall back to defaults.
func NewGenerator(client *genai.Client, model string, maxRetries, maxLogLength int, log *zap.Logger) (*Generator, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

func (g *Generator) Name() string { return providerName }

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate never returns an error directly; failures are reported through the outcome.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ai.Options) ai.Outcome {
	if g == nil || g.models == nil {
		return ai.NewOutcome(providerName, "", errors.New("gemini generator is not initialized"), 0)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ai.NewOutcome(providerName, "", errors.New("prompt must not be empty"), 0)
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.maxLogLen)),
	)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	var text string
	attempts, err := g.withRetry(ctx, func() error {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err != nil {
			return err
		}
		text = responseText(resp)
		return nil
	})
	if err != nil {
		return ai.NewOutcome(providerName, "", fmt.Errorf("generate content: %w", err), attempts)
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", logger.TruncateForLog(text, g.maxLogLen)),
	)

	return ai.NewOutcome(providerName, text, nil, attempts)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// Embedder implements ai.Embedder with the Gemini embedding endpoint.
type Embedder struct {
	models     models
	model      string
	maxRetries int
	logger     *zap.Logger
}

func NewEmbedder(client *genai.Client, model string, maxRetries int, log *zap.Logger) (*Embedder, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is not initialized")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Embedder{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, providerName, model),
	}, nil
}

func (e *Embedder) Name() string { return providerName }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must not be empty")
	}

	var values []float32
	r := retrier{maxRetries: e.maxRetries, logger: e.logger}
	_, err := r.do(ctx, func() error {
		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return errors.New("gemini api returned no embeddings")
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(values) == 0 {
		return nil, errors.New("gemini api returned empty embedding")
	}

	return values, nil
}

func (g *Generator) withRetry(ctx context.Context, fn func() error) (int, error) {
	r := retrier{maxRetries: g.maxRetries, logger: g.logger}
	return r.do(ctx, fn)
}
