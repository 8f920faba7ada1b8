package scoring

import (
	"strings"

	"github.com/spigell/smartrecruit/internal/careerfield"
	"github.com/spigell/smartrecruit/internal/records"
)

// EducationBreakdown splits the education score into its parts.
type EducationBreakdown struct {
	Level          float64 `json:"level_match"`
	Field          float64 `json:"field_relevance"`
	Certifications float64 `json:"certification_score"`
	Total          float64 `json:"total"`
}

type degreeRank struct {
	keyword string
	rank    int
}

var degreeHierarchy = []degreeRank{
	{"phd", 5}, {"doctorate", 5},
	{"master", 4}, {"mba", 4}, {"ms", 4},
	{"bachelor", 3}, {"degree", 3},
	{"associate", 2}, {"diploma", 2},
	{"certificate", 1}, {"high school", 1},
}

// DegreeRank maps free text to 0 (unknown) .. 5 (doctorate), taking the
// highest keyword present.
func DegreeRank(text string) int {
	text = strings.ToLower(text)
	rank := 0
	for _, d := range degreeHierarchy {
		if strings.Contains(text, d.keyword) {
			rank = max(rank, d.rank)
		}
	}
	return rank
}

// Education scores degree level (60%), field relevance (30%) and
// certifications (10%). jobField is the job's career field.
func Education(c records.Candidate, j records.Job, jobField string) EducationBreakdown {
	b := EducationBreakdown{
		Level:          levelMatch(c.Education.Degree, j.EducationLevel),
		Field:          fieldRelevance(c.Education.Field, j.Title, jobField),
		Certifications: certificationScore(c.Education.Certifications),
	}
	b.Total = min(100, b.Level*0.6+b.Field*0.3+b.Certifications*0.1)
	return b
}

func levelMatch(degree, requirement string) float64 {
	required := DegreeRank(requirement)
	if required == 0 {
		return 80
	}
	have := DegreeRank(degree)
	switch {
	case have >= required:
		return 100
	case have == required-1:
		return 70
	default:
		return max(30, 100-float64(required-have)*25)
	}
}

func fieldRelevance(field, title, jobField string) float64 {
	field = strings.ToLower(strings.TrimSpace(field))
	title = strings.ToLower(strings.TrimSpace(title))
	// An empty field or title is contained in anything and counts as a direct match.
	if strings.Contains(title, field) || strings.Contains(field, title) {
		return 100
	}
	for _, related := range careerfield.RelevantStudyFields(jobField) {
		if strings.Contains(field, related) {
			return 80
		}
	}
	return 50
}

func certificationScore(certs []string) float64 {
	if len(certs) == 0 {
		return 50
	}
	return min(100, float64(len(certs))*20+50)
}
