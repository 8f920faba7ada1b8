package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/ai"
)

func newTestClient(url string) *Client {
	c := New(Config{URL: url, Timeout: 2 * time.Second}, zap.NewNop())
	c.initial = time.Millisecond
	return c
}

func TestGenerateSendsOptions(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{Response: " ml, machine-learning "})
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).Generate(context.Background(), "variations for ML", ai.Options{Temperature: 0.1, MaxTokens: 200})

	require.True(t, out.Usable(), "outcome: %+v", out)
	assert.Equal(t, "ml, machine-learning", out.Text)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, DefaultModel, got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.9, got.Options.TopP, 1e-9)
	assert.Equal(t, 200, got.Options.NumPredict)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "0.7"})
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).Generate(context.Background(), "p", ai.Options{})
	require.True(t, out.Usable())
	assert.Equal(t, 3, out.Attempts)
}

func TestGenerateGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).Generate(context.Background(), "p", ai.Options{})
	assert.Equal(t, ai.StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).Generate(context.Background(), "p", ai.Options{})
	assert.Equal(t, ai.StatusFailed, out.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerateUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := newTestClient(url).Generate(context.Background(), "p", ai.Options{})
	assert.Equal(t, ai.StatusFailed, out.Status)
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, DefaultEmbeddingModel, req.Model)
		if req.Prompt == "empty" {
			_ = json.NewEncoder(w).Encode(embeddingResponse{})
			return
		}
		_ = json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float32{1, 0, 0}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	vec, err := c.Embed(context.Background(), "Job: Data Scientist")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)

	_, err = c.Embed(context.Background(), "empty")
	assert.Error(t, err)
}
