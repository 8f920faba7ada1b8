// Package scoring implements the five component scorers combined into an
// overall candidate/job match score. Every component returns a value in [0,100].
package scoring

import (
	"context"
	"math"
	"strconv"
)

// Component weights. They are fixed and sum to exactly one.
const (
	WeightTechnical  = 0.30
	WeightCultural   = 0.20
	WeightExperience = 0.25
	WeightEducation  = 0.10
	WeightSemantic   = 0.15
)

// Component names used in logs, metrics and the fallback list.
const (
	ComponentTechnical  = "technical"
	ComponentCultural   = "cultural"
	ComponentExperience = "experience"
	ComponentEducation  = "education"
	ComponentSemantic   = "ai_enhanced"
)

type Weights struct {
	Technical  float64
	Cultural   float64
	Experience float64
	Education  float64
	Semantic   float64
}

var DefaultWeights = Weights{
	Technical:  WeightTechnical,
	Cultural:   WeightCultural,
	Experience: WeightExperience,
	Education:  WeightEducation,
	Semantic:   WeightSemantic,
}

func (w Weights) Sum() float64 {
	return w.Technical + w.Cultural + w.Experience + w.Education + w.Semantic
}

// Scores holds unrounded component scores.
type Scores struct {
	Technical  float64
	Cultural   float64
	Experience float64
	Education  float64
	Semantic   float64
}

// Overall is the weighted combination of s.
func (w Weights) Overall(s Scores) float64 {
	return s.Technical*w.Technical +
		s.Cultural*w.Cultural +
		s.Experience*w.Experience +
		s.Education*w.Education +
		s.Semantic*w.Semantic
}

// Labels renders weights as percentages keyed by component name.
func (w Weights) Labels() map[string]string {
	pct := func(v float64) string { return strconv.Itoa(int(math.Round(v*100))) + "%" }
	return map[string]string{
		ComponentTechnical:  pct(w.Technical),
		ComponentCultural:   pct(w.Cultural),
		ComponentExperience: pct(w.Experience),
		ComponentEducation:  pct(w.Education),
		ComponentSemantic:   pct(w.Semantic),
	}
}

// SkillMatcher scores how closely two skill names match, in [0,1].
type SkillMatcher interface {
	Similarity(ctx context.Context, a, b, field string) float64
}

// FallbackRecorder is notified whenever a component falls back to its
// deterministic heuristic.
type FallbackRecorder interface {
	RecordFallback(component string)
}

// PromptSource supplies the feedback section appended to prompts.
type PromptSource interface {
	PromptSection() string
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
