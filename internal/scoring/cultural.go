package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/records"
)

const (
	// NoSoftRequirements is the cultural score for jobs without soft skills.
	NoSoftRequirements = 75.0
	// NoSoftRequirementsFit is the fallback fit when the job lists no soft skills.
	NoSoftRequirementsFit = 0.75

	directWeight = 0.6
	fitWeight    = 0.4
)

var culturalOptions = ai.Options{Temperature: 0.1, MaxTokens: 200}

// FitAssessor rates cultural fit in [0,1]. The boolean reports whether the
// deterministic fallback produced the value.
type FitAssessor interface {
	Assess(ctx context.Context, c records.Candidate, j records.Job, field string) (float64, bool)
}

// CulturalResult carries the cultural score and its parts.
type CulturalResult struct {
	Score    float64
	Direct   float64
	Fit      float64
	Fallback bool
	Matches  []SkillMatch
}

// Cultural blends the direct soft-skill match with the assessed cultural fit.
// Jobs without soft skills score NoSoftRequirements and skip the assessment.
func Cultural(ctx context.Context, m SkillMatcher, a FitAssessor, c records.Candidate, j records.Job, field string) CulturalResult {
	if len(j.Soft) == 0 {
		return CulturalResult{Score: NoSoftRequirements, Matches: []SkillMatch{}}
	}

	direct, matches := SoftSkills(ctx, m, c, j, field)
	fit, fallback := a.Assess(ctx, c, j, field)

	return CulturalResult{
		Score:    clamp(direct*directWeight+fit*100*fitWeight, 0, 100),
		Direct:   direct,
		Fit:      fit,
		Fallback: fallback,
		Matches:  matches,
	}
}

// CulturalFitAssessor asks the generator for a fit rating and caches
// successful ratings per candidate name and job title.
type CulturalFitAssessor struct {
	gen      ai.Generator
	feedback PromptSource
	recorder FallbackRecorder
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]float64
}

func NewCulturalFitAssessor(gen ai.Generator, feedback PromptSource, recorder FallbackRecorder, log *zap.Logger) *CulturalFitAssessor {
	if gen == nil {
		gen = ai.Disabled{}
	}
	return &CulturalFitAssessor{
		gen:      gen,
		feedback: feedback,
		recorder: recorder,
		logger:   logger.WithFields(log, logger.Component(ComponentCultural)),
		cache:    make(map[string]float64),
	}
}

func (a *CulturalFitAssessor) Assess(ctx context.Context, c records.Candidate, j records.Job, field string) (float64, bool) {
	key := c.Name + "\x00" + j.Title

	a.mu.RLock()
	fit, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return fit, false
	}

	out := a.gen.Generate(ctx, a.prompt(c, j, field), culturalOptions)
	if out.Usable() {
		if fit, ok := ParseFit(out.Text); ok {
			a.mu.Lock()
			a.cache[key] = fit
			a.mu.Unlock()
			return fit, false
		}
	}

	a.logger.Warn("using fallback cultural fit",
		append(logger.PairFields(c.Name, j.Title),
			zap.String("reason", out.Status.String()),
			zap.Error(out.Err),
		)...,
	)
	if a.recorder != nil {
		a.recorder.RecordFallback(ComponentCultural)
	}
	return SoftOverlap(c, j), true
}

func (a *CulturalFitAssessor) prompt(c records.Candidate, j records.Job, field string) string {
	feedback := ""
	if a.feedback != nil {
		feedback = a.feedback.PromptSection()
	}
	return fmt.Sprintf(`
Assess the cultural fit between this candidate and job position in %s.

Job: %s
Job Level: %s
Required Soft Skills: %s
Job Location: %s
Work Type: %s

Candidate: %s
Candidate Soft Skills: %s
Experience Level: %s years

%s

Rate cultural fit from 0.0 to 1.0 considering:
- Communication style match
- Leadership potential vs requirements
- Team collaboration abilities
- Work environment fit
- Career stage appropriateness

Respond with only the numerical score (e.g., 0.82).

Cultural fit score:
`,
		field,
		j.Title,
		j.Level,
		bracketList(j.Soft.Names()),
		orUnknown(j.Location),
		orUnknown(j.LocationType),
		c.Name,
		bracketList(c.Soft.Names()),
		formatNumber(c.YearsOfExperience),
		feedback,
	)
}

var fitPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ParseFit reads the first number in text. Values on a 0-10 or 0-100 scale
// are brought back to [0,1].
func ParseFit(text string) (float64, bool) {
	m := fitPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v > 1 {
		if v <= 10 {
			v /= 10
		} else {
			v /= 100
		}
	}
	return clamp(v, 0, 1), true
}

// SoftOverlap is the share of the job's soft skills the candidate lists by
// exact (case-insensitive) name.
func SoftOverlap(c records.Candidate, j records.Job) float64 {
	want := j.Soft.LowerNames()
	if len(want) == 0 {
		return NoSoftRequirementsFit
	}
	have := c.Soft.LowerNames()
	common := 0
	for name := range want {
		if _, ok := have[name]; ok {
			common++
		}
	}
	return float64(common) / float64(len(want))
}

func bracketList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
