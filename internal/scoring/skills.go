package scoring

import (
	"context"

	"github.com/spigell/smartrecruit/internal/records"
)

const (
	// MatchThreshold is the similarity a skill pair must exceed to count.
	MatchThreshold = 0.5
	// CoverageThreshold is the similarity an important skill must exceed to be covered.
	CoverageThreshold = 0.6

	technicalConfidenceCap = 1.2
	softConfidenceCap      = 1.0

	// NoTechnicalRequirements is returned when the job lists no technical skills.
	NoTechnicalRequirements = 50.0
)

// SkillMatch explains which candidate skill best answered a requirement.
type SkillMatch struct {
	Requirement    string  `json:"-"`
	CandidateSkill string  `json:"candidate_skill"`
	Similarity     float64 `json:"similarity"`
	CandidateLevel float64 `json:"candidate_level"`
	RequiredLevel  float64 `json:"required_level"`
	Confidence     float64 `json:"confidence"`
}

// Coverage reports whether an important skill is present in the candidate's profile.
type Coverage struct {
	ImportantSkill string  `json:"important_skill"`
	CandidateSkill string  `json:"candidate_skill"`
	Similarity     float64 `json:"similarity"`
	CandidateLevel float64 `json:"candidate_level"`
	Covered        bool    `json:"covered"`
}

func levelConfidence(candidate, required, ceiling float64) float64 {
	if required <= 0 {
		return ceiling
	}
	return min(ceiling, candidate/required)
}

// matchSkills scores have against want. The score only counts pairs above
// MatchThreshold, while the audit trail records the most similar skill even
// below it.
func matchSkills(ctx context.Context, m SkillMatcher, want, have records.SkillSet, field string, ceiling float64) (float64, []SkillMatch) {
	var total, weight float64
	matches := make([]SkillMatch, 0, len(want))

	for _, req := range want {
		best := 0.0
		match := SkillMatch{Requirement: req.Name, RequiredLevel: req.Level}

		for _, skill := range have {
			sim := m.Similarity(ctx, req.Name, skill.Name, field)
			conf := levelConfidence(skill.Level, req.Level, ceiling)
			if sim > MatchThreshold {
				best = max(best, sim*conf*100)
			}
			if sim > match.Similarity {
				match.CandidateSkill = skill.Name
				match.Similarity = Round(sim, 2)
				match.CandidateLevel = skill.Level
				match.Confidence = Round(sim*conf, 2)
			}
		}

		total += best * req.Level
		weight += req.Level
		matches = append(matches, match)
	}

	if weight == 0 {
		return 0, matches
	}
	return min(100, total/weight), matches
}

// Technical scores the candidate's technical skills against the job's
// requirements. Exceeding a required level earns up to a 20% bonus per skill.
func Technical(ctx context.Context, m SkillMatcher, c records.Candidate, j records.Job, field string) (float64, []SkillMatch) {
	if len(j.Technical) == 0 {
		return NoTechnicalRequirements, []SkillMatch{}
	}
	score, matches := matchSkills(ctx, m, j.Technical, c.Technical, field, technicalConfidenceCap)
	return clamp(score, 0, 100), matches
}

// SoftSkills is the direct soft-skill part of the cultural score. No bonus is
// given for exceeding a level.
func SoftSkills(ctx context.Context, m SkillMatcher, c records.Candidate, j records.Job, field string) (float64, []SkillMatch) {
	score, matches := matchSkills(ctx, m, j.Soft, c.Soft, field, softConfidenceCap)
	return clamp(score, 0, 100), matches
}

// ImportantSkillCoverage checks each of the job's important skills against
// every candidate skill.
func ImportantSkillCoverage(ctx context.Context, m SkillMatcher, c records.Candidate, j records.Job, field string) []Coverage {
	all := c.AllSkills()
	coverage := make([]Coverage, 0, len(j.ImportantSkills))
	for _, important := range j.ImportantSkills {
		entry := Coverage{ImportantSkill: important}
		for _, skill := range all {
			sim := m.Similarity(ctx, important, skill.Name, field)
			if sim > entry.Similarity {
				entry.CandidateSkill = skill.Name
				entry.Similarity = Round(sim, 2)
				entry.CandidateLevel = skill.Level
				entry.Covered = sim > CoverageThreshold
			}
		}
		coverage = append(coverage, entry)
	}
	return coverage
}
