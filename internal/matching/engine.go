// Package matching combines the component scorers into match results and
// ranks candidates against jobs (or jobs against candidates).
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/careerfield"
	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/records"
	"github.com/spigell/smartrecruit/internal/scoring"
)

// SemanticScorer scores the semantic closeness of a pair. The boolean reports
// whether a fallback was used.
type SemanticScorer interface {
	Score(ctx context.Context, c records.Candidate, j records.Job) (float64, bool)
}

// FeedbackSource reports whether prompts carry reviewer feedback.
type FeedbackSource interface {
	Enhanced() bool
}

type MatchRecorder interface {
	ObserveMatch(elapsed time.Duration)
}

// Deps aggregates the collaborators of an Engine. Resolver, Assessor and
// Semantic are required.
type Deps struct {
	Resolver scoring.SkillMatcher
	Assessor scoring.FitAssessor
	Semantic SemanticScorer
	Feedback FeedbackSource
	Metrics  MatchRecorder
	Tracer   trace.Tracer
	Logger   *zap.Logger
	Weights  scoring.Weights
	Now      func() time.Time
}

// Engine scores candidate/job pairs. It is safe for concurrent use as long as
// its collaborators are.
type Engine struct {
	deps Deps
}

func NewEngine(deps Deps) (*Engine, error) {
	if deps.Resolver == nil || deps.Assessor == nil || deps.Semantic == nil {
		return nil, errors.New("resolver, assessor and semantic scorer are required")
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Weights == (scoring.Weights{}) {
		deps.Weights = scoring.DefaultWeights
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{deps: deps}, nil
}

// Match scores one pair. It does not fail: external services degrade to
// their fallbacks, which are listed in the breakdown.
func (e *Engine) Match(ctx context.Context, c records.Candidate, j records.Job) Result {
	start := time.Now()
	ctx, span := e.deps.Tracer.Start(ctx, "matching.Match", trace.WithAttributes(
		attribute.String("candidate.name", c.Name),
		attribute.String("job.title", j.Title),
	))
	defer span.End()

	jobField := careerfield.ClassifyJob(j)
	candidateField := careerfield.ClassifyCandidate(c)

	technical, techMatches := scoring.Technical(ctx, e.deps.Resolver, c, j, jobField)
	experience := scoring.Experience(c, j)
	cultural := scoring.Cultural(ctx, e.deps.Resolver, e.deps.Assessor, c, j, jobField)
	education := scoring.Education(c, j, jobField)
	semantic, semanticFallback := e.deps.Semantic.Score(ctx, c, j)

	fallbacks := []string{}
	if cultural.Fallback {
		fallbacks = append(fallbacks, scoring.ComponentCultural)
	}
	if semanticFallback {
		fallbacks = append(fallbacks, scoring.ComponentSemantic)
	}

	overall := e.deps.Weights.Overall(scoring.Scores{
		Technical:  technical,
		Cultural:   cultural.Score,
		Experience: experience.Total,
		Education:  education.Total,
		Semantic:   semantic,
	})
	if math.IsNaN(overall) {
		overall = 0
	}
	overall = max(0, min(100, overall))

	res := Result{
		ID:              uuid.New(),
		CandidateName:   c.Name,
		JobTitle:        j.Title,
		OverallScore:    scoring.Round(overall, 1),
		TechnicalScore:  scoring.Round(technical, 1),
		ExperienceScore: scoring.Round(experience.Total, 1),
		CulturalScore:   scoring.Round(cultural.Score, 1),
		EducationScore:  scoring.Round(education.Total, 1),
		AISemanticScore: scoring.Round(semantic, 1),
		Breakdown: Breakdown{
			CareerFieldMatch:         jobField == candidateField,
			JobCareerField:           jobField,
			CandidateCareerField:     candidateField,
			YearsOfExperience:        c.YearsOfExperience,
			JobExperienceRequirement: j.ExperienceRequired,
			JobLevel:                 j.Level,
			EducationMatch: EducationMatch{
				CandidateDegree: orDefault(c.Education.Degree, "Unknown"),
				JobRequirement:  orDefault(j.EducationLevel, "Not specified"),
				FieldRelevance:  orDefault(c.Education.Field, "Unknown"),
			},
			Experience:             experience,
			Education:              education,
			Cultural:               CulturalComponents{DirectMatch: cultural.Direct, Fit: cultural.Fit},
			TechnicalSkillMatches:  matchesByRequirement(techMatches),
			SoftSkillMatches:       matchesByRequirement(cultural.Matches),
			ImportantSkillCoverage: scoring.ImportantSkillCoverage(ctx, e.deps.Resolver, c, j, jobField),
			FeedbackEnhanced:       e.deps.Feedback != nil && e.deps.Feedback.Enhanced(),
			Fallbacks:              fallbacks,
			ScoringWeights:         e.deps.Weights.Labels(),
		},
		CreatedAt: e.deps.Now().UTC(),
	}

	span.SetAttributes(
		attribute.Float64("match.overall_score", res.OverallScore),
		attribute.StringSlice("match.fallbacks", fallbacks),
	)
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveMatch(time.Since(start))
	}
	e.deps.Logger.Debug("pair scored",
		append(logger.PairFields(c.Name, j.Title),
			zap.Float64("overall_score", res.OverallScore),
			zap.Strings("fallbacks", fallbacks),
		)...,
	)

	return res
}

// MatchRaw normalizes loosely shaped records before matching. Records that
// cannot be coerced are reported as *records.ValidationError.
func (e *Engine) MatchRaw(ctx context.Context, rawCandidate, rawJob any, scales records.Scales) (Result, error) {
	c, cerr := records.NormalizeCandidate(rawCandidate, scales.Candidate)
	j, jerr := records.NormalizeJob(rawJob, scales.Job)
	if err := errors.Join(cerr, jerr); err != nil {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("normalize records: %w", err)
	}
	return e.Match(ctx, c, j), nil
}
