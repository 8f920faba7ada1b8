package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/ai/ollama"
	"github.com/spigell/smartrecruit/internal/observability"
	"github.com/spigell/smartrecruit/internal/records"
	"github.com/spigell/smartrecruit/internal/store"
)

func offlineConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		FeedbackDir: t.TempDir(),
		TopK:        2,
		Workers:     2,
		Scales:      records.DefaultScales(),
		AI:          &AIConfig{Provider: providerNone},
		Store:       store.Config{Driver: store.DriverFile, Path: t.TempDir()},
		Tracing:     observability.TracingConfig{Enabled: false},
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		wantErr  bool
		check    func(t *testing.T, g ai.Generator)
	}{
		{
			name:     "none",
			provider: "none",
			check: func(t *testing.T, g ai.Generator) {
				if _, ok := g.(ai.Disabled); !ok {
					t.Fatalf("expected disabled generator, got %T", g)
				}
			},
		},
		{
			name:     "ollama",
			provider: " Ollama ",
			check: func(t *testing.T, g ai.Generator) {
				if _, ok := g.(*ollama.Client); !ok {
					t.Fatalf("expected ollama client, got %T", g)
				}
			},
		},
		{name: "gemini without key", provider: "gemini", wantErr: true},
		{name: "unknown", provider: "openai", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &AIConfig{Gemini: &GeminiConfig{APIKeyFile: filepath.Join(t.TempDir(), "missing")}}
			g, _, err := newProvider(context.Background(), tt.provider, cfg, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for provider %q", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, g)
		})
	}
}

func TestNewProvidersBuildsChainWithFallback(t *testing.T) {
	t.Parallel()

	g, _, err := newProviders(context.Background(), &AIConfig{Provider: "ollama", Fallback: "none"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.(*ollama.Client); !ok {
		t.Fatalf("fallback none must not build a chain, got %T", g)
	}

	g, _, err = newProviders(context.Background(), &AIConfig{Provider: "none", Fallback: "ollama"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chain, ok := g.(*ai.Chain)
	if !ok {
		t.Fatalf("expected chain, got %T", g)
	}
	if chain.Name() != "disabled+ollama" {
		t.Fatalf("unexpected chain name %q", chain.Name())
	}
}

func TestReadRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.json")
	doc := `{"candidates": [{"name": "Ann"}, {"name": "Bob"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec, err := readRecord(path, records.CandidatesKey, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name := rec.(map[string]any)["name"]; name != "Bob" {
		t.Fatalf("expected Bob, got %v", name)
	}

	if _, err := readRecord(path, records.CandidatesKey, 2); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := readRecord(filepath.Join(dir, "nope.json"), records.CandidatesKey, 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRankAllAndActions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	ctx := context.Background()

	config := offlineConfig(t)
	a, err := newApplication(ctx, config, logger, true)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	defer a.Close(ctx)

	candidates := []records.Candidate{
		{Name: "Ann", YearsOfExperience: 3, Technical: records.SkillSet{{Name: "Go", Level: 90}}},
		{Name: "Bob", YearsOfExperience: 1, Technical: records.SkillSet{{Name: "Excel", Level: 60}}},
		{Name: "Eve", YearsOfExperience: 5, Technical: records.SkillSet{{Name: "Go", Level: 50}}},
	}
	jobs := []records.Job{
		{Title: "Go Developer", Level: records.LevelJunior, ExperienceRequired: 2, Technical: records.SkillSet{{Name: "Go", Level: 80}}},
	}

	runs := rankAll(ctx, a, candidates, jobs, false, config.TopK)
	if len(runs) != 1 {
		t.Fatalf("expected one run per job, got %d", len(runs))
	}
	if got := len(runs[0].Run.Results); got != 2 {
		t.Fatalf("expected top 2 results, got %d", got)
	}
	if runs[0].Run.Kind != store.KindCandidates || runs[0].Run.Subject != "Go Developer" {
		t.Fatalf("unexpected run %+v", runs[0].Run)
	}

	byCandidate := rankAll(ctx, a, candidates, jobs, true, config.TopK)
	if len(byCandidate) != len(candidates) || byCandidate[0].Run.Kind != store.KindJobs {
		t.Fatalf("expected one jobs run per candidate, got %d", len(byCandidate))
	}

	if err := handleAction(ctx, PromptSaveResults, a, runs); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, err := filepath.Glob(filepath.Join(config.Store.Path, "Go_Developer_*.json"))
	if err != nil || len(saved) != 1 {
		t.Fatalf("expected one saved file, got %v (%v)", saved, err)
	}

	if err := handleAction(ctx, PromptReport, a, runs); err != nil {
		t.Fatalf("report: %v", err)
	}
	if logs.FilterMessage("ranking report").Len() != 1 {
		t.Fatal("expected a ranking report log entry")
	}

	if err := handleAction(ctx, PromptExit, a, runs); err != errExit {
		t.Fatalf("expected errExit, got %v", err)
	}
	if err := handleAction(ctx, "nonsense", a, runs); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestDumpToTmpFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	runs := []rankedRun{{Run: store.Run{Kind: store.KindCandidates, Subject: "QA"}}}
	filename, err := dumpToTmpFile(runs)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var decoded []rankedRun
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Run.Subject != "QA" {
		t.Fatalf("unexpected dump %+v", decoded)
	}
}
