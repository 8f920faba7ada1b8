package matching

import (
	"time"

	"github.com/google/uuid"

	"github.com/spigell/smartrecruit/internal/scoring"
)

// Result is the outcome of matching one candidate against one job. Scores are
// rounded to one decimal; the overall score is computed before rounding.
type Result struct {
	ID              uuid.UUID `json:"id"`
	CandidateName   string    `json:"candidate_name"`
	JobTitle        string    `json:"job_title"`
	OverallScore    float64   `json:"overall_score"`
	TechnicalScore  float64   `json:"technical_score"`
	ExperienceScore float64   `json:"experience_score"`
	CulturalScore   float64   `json:"cultural_score"`
	EducationScore  float64   `json:"education_score"`
	AISemanticScore float64   `json:"ai_enhanced_score"`
	Breakdown       Breakdown `json:"detailed_breakdown"`
	CreatedAt       time.Time `json:"created_at"`
}

// Breakdown explains how a Result was reached.
type Breakdown struct {
	CareerFieldMatch         bool                          `json:"career_field_match"`
	JobCareerField           string                        `json:"job_career_field"`
	CandidateCareerField     string                        `json:"candidate_career_field"`
	YearsOfExperience        float64                       `json:"years_of_experience"`
	JobExperienceRequirement float64                       `json:"job_experience_requirement"`
	JobLevel                 string                        `json:"job_level"`
	EducationMatch           EducationMatch                `json:"education_match"`
	Experience               scoring.ExperienceBreakdown   `json:"experience_components"`
	Education                scoring.EducationBreakdown    `json:"education_components"`
	Cultural                 CulturalComponents            `json:"cultural_components"`
	TechnicalSkillMatches    map[string]scoring.SkillMatch `json:"technical_skill_matches"`
	SoftSkillMatches         map[string]scoring.SkillMatch `json:"soft_skill_matches"`
	ImportantSkillCoverage   []scoring.Coverage            `json:"important_skill_coverage"`
	FeedbackEnhanced         bool                          `json:"feedback_enhanced"`
	Fallbacks                []string                      `json:"fallbacks"`
	ScoringWeights           map[string]string             `json:"scoring_weights"`
}

type EducationMatch struct {
	CandidateDegree string `json:"candidate_degree"`
	JobRequirement  string `json:"job_requirement"`
	FieldRelevance  string `json:"field_relevance"`
}

type CulturalComponents struct {
	DirectMatch float64 `json:"direct_match"`
	Fit         float64 `json:"fit"`
}

func matchesByRequirement(matches []scoring.SkillMatch) map[string]scoring.SkillMatch {
	out := make(map[string]scoring.SkillMatch, len(matches))
	for _, m := range matches {
		out[m.Requirement] = m
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
