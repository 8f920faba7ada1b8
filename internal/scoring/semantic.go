package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/records"
)

// SemanticScorer compares embedded candidate and job profiles.
type SemanticScorer struct {
	embedder ai.Embedder
	recorder FallbackRecorder
	logger   *zap.Logger
}

func NewSemanticScorer(embedder ai.Embedder, recorder FallbackRecorder, log *zap.Logger) *SemanticScorer {
	if embedder == nil {
		embedder = ai.Disabled{}
	}
	return &SemanticScorer{
		embedder: embedder,
		recorder: recorder,
		logger:   logger.WithFields(log, logger.Component(ComponentSemantic)),
	}
}

// Score returns cosine similarity times 100, clamped to [0,100]. When the
// embedder fails it falls back to KeywordOverlap and reports true.
func (s *SemanticScorer) Score(ctx context.Context, c records.Candidate, j records.Job) (float64, bool) {
	candidateText := CandidateProfile(c)
	jobText := JobProfile(j)

	score, err := s.embeddingScore(ctx, candidateText, jobText)
	if err == nil {
		return score, false
	}

	s.logger.Warn("using fallback semantic score",
		append(logger.PairFields(c.Name, j.Title), zap.Error(err))...,
	)
	if s.recorder != nil {
		s.recorder.RecordFallback(ComponentSemantic)
	}
	return KeywordOverlap(candidateText, jobText), true
}

func (s *SemanticScorer) embeddingScore(ctx context.Context, candidateText, jobText string) (float64, error) {
	a, err := s.embedder.Embed(ctx, candidateText)
	if err != nil {
		return 0, fmt.Errorf("embed candidate profile: %w", err)
	}
	b, err := s.embedder.Embed(ctx, jobText)
	if err != nil {
		return 0, fmt.Errorf("embed job profile: %w", err)
	}
	sim, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}
	return clamp(sim*100, 0, 100), nil
}

// Cosine returns the cosine similarity of two equally sized vectors.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero embedding vector")
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, errors.New("embedding similarity is not finite")
	}
	return sim, nil
}

var keywordPattern = regexp.MustCompile(`\b\w{3,}\b`)

// KeywordOverlap is the Jaccard index of the texts' words of three or more
// characters, doubled and capped at 100. Two empty texts score 50.
func KeywordOverlap(a, b string) float64 {
	setA := keywords(a)
	setB := keywords(b)

	union := len(setA)
	common := 0
	for w := range setB {
		if _, ok := setA[w]; ok {
			common++
		} else {
			union++
		}
	}
	if union == 0 {
		return 50
	}
	return min(100, float64(common)/float64(union)*100*2)
}

func keywords(text string) map[string]struct{} {
	words := keywordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func skillList(skills records.SkillSet) string {
	parts := make([]string, 0, len(skills))
	for _, s := range skills {
		parts = append(parts, s.Name+"("+formatNumber(s.Level)+")")
	}
	return strings.Join(parts, ", ")
}

// CandidateProfile renders the text embedded for a candidate.
func CandidateProfile(c records.Candidate) string {
	parts := []string{
		"Candidate: " + orUnknown(c.Name),
		"Experience: " + formatNumber(c.YearsOfExperience) + " years",
	}
	if edu := strings.TrimSpace(c.Education.Degree + " " + c.Education.Field); edu != "" {
		parts = append(parts, "Education: "+edu)
	}
	if len(c.Technical) > 0 {
		parts = append(parts, "Technical Skills: "+skillList(c.Technical))
	}
	if len(c.Soft) > 0 {
		parts = append(parts, "Soft Skills: "+skillList(c.Soft))
	}
	return strings.Join(parts, ". ")
}

// JobProfile renders the text embedded for a job.
func JobProfile(j records.Job) string {
	parts := []string{
		"Job: " + orUnknown(j.Title),
		"Level: " + j.Level,
		"Experience Required: " + formatNumber(j.ExperienceRequired) + " years",
		"Location: " + orUnknown(j.Location),
	}
	if len(j.Technical) > 0 {
		parts = append(parts, "Technical Requirements: "+skillList(j.Technical))
	}
	if len(j.Soft) > 0 {
		parts = append(parts, "Soft Skills Required: "+skillList(j.Soft))
	}
	if len(j.ImportantSkills) > 0 {
		parts = append(parts, "Critical Skills: "+strings.Join(j.ImportantSkills, ", "))
	}
	return strings.Join(parts, ". ")
}
