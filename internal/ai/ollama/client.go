// Package ollama talks to a local Ollama server for text generation and embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/logger"
)

const (
	providerName          = "ollama"
	DefaultURL            = "http://localhost:11434"
	DefaultModel          = "mistral"
	DefaultEmbeddingModel = "all-minilm"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultMaxLogLength   = 200
	maxElapsed            = 30 * time.Second
)

// Config configures the client. Zero values fall back to defaults.
type Config struct {
	URL            string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	MaxLogLength   int
}

// Client implements ai.Generator and ai.Embedder.
type Client struct {
	baseURL        string
	model          string
	embeddingModel string
	maxRetries     uint
	maxLogLen      int
	initial        time.Duration
	http           *http.Client
	logger         *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.EmbeddingModel) == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     uint(cfg.MaxRetries),
		maxLogLen:      cfg.MaxLogLength,
		initial:        500 * time.Millisecond,
		http:           &http.Client{Timeout: cfg.Timeout},
		logger:         logger.WithCommonFields(log, providerName, cfg.Model),
	}
}

func (c *Client) Name() string { return providerName }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate calls /api/generate. Transport errors, timeouts and non-200 answers
// end up as a failed outcome.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.Options) ai.Outcome {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			TopP:        0.9,
			NumPredict:  opts.MaxTokens,
		},
	}

	c.logger.Debug("ollama generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	var out generateResponse
	attempts, err := c.post(ctx, "/api/generate", payload, &out)
	if err != nil {
		c.logger.Warn("ollama generate failed", zap.Int("attempts", attempts), zap.Error(err))
		return ai.NewOutcome(providerName, "", err, attempts)
	}

	c.logger.Debug("ollama generate response",
		zap.Int("response_length", utf8.RuneCountInString(out.Response)),
		zap.String("response_preview", logger.TruncateForLog(out.Response, c.maxLogLen)),
	)

	return ai.NewOutcome(providerName, out.Response, nil, attempts)
}

// Embed calls /api/embeddings with the embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embeddingResponse
	if _, err := c.post(ctx, "/api/embeddings", embeddingRequest{Model: c.embeddingModel, Prompt: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("ollama returned empty embedding")
	}
	return out.Embedding, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama status %d: %s", e.code, e.body)
}

func (c *Client) post(ctx context.Context, path string, payload, dst any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	attempts := 0
	operation := func() (struct{}, error) {
		attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			serr := &statusError{code: resp.StatusCode, body: logger.TruncateForLog(string(data), c.maxLogLen)}
			if retryableStatus(resp.StatusCode) {
				return struct{}{}, serr
			}
			return struct{}{}, backoff.Permanent(serr)
		}

		if err := json.Unmarshal(data, dst); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = 10 * time.Second

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		return attempts, fmt.Errorf("ollama %s: %w", path, err)
	}
	return attempts, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
