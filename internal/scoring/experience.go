package scoring

import (
	"strings"

	"github.com/spigell/smartrecruit/internal/records"
)

// ExperienceBreakdown splits the experience score into its three parts.
type ExperienceBreakdown struct {
	Years       float64 `json:"years_component"`
	Level       float64 `json:"level_appropriateness"`
	Progression float64 `json:"progression_component"`
	Total       float64 `json:"total"`
}

type yearRange struct{ min, max float64 }

var levelRanges = map[string]yearRange{
	records.LevelEntry:        {0, 2},
	records.LevelJunior:       {1, 3},
	records.LevelIntermediate: {3, 6},
	records.LevelSenior:       {5, 10},
	records.LevelLead:         {8, 15},
	records.LevelExpert:       {10, 20},
}

var unknownLevelRange = yearRange{0, 5}

// Experience scores years (0-40), level fit (0-35) and career progression (0-25).
func Experience(c records.Candidate, j records.Job) ExperienceBreakdown {
	b := ExperienceBreakdown{
		Years:       yearsComponent(c.YearsOfExperience, j.ExperienceRequired),
		Level:       LevelAppropriateness(c.YearsOfExperience, j.Level),
		Progression: progression(c),
	}
	b.Total = min(100, b.Years+b.Level+b.Progression)
	return b
}

func yearsComponent(years, required float64) float64 {
	if required == 0 {
		return 40
	}
	ratio := years / required
	if ratio >= 1 {
		return min(40, 30+(ratio-1)*10)
	}
	return ratio * 30
}

// LevelAppropriateness gives 35 inside the level's year range, decays fast
// below it and slowly above it.
func LevelAppropriateness(years float64, level string) float64 {
	r, ok := levelRanges[strings.ToLower(level)]
	if !ok {
		r = unknownLevelRange
	}
	switch {
	case years < r.min:
		return max(0, 35-(r.min-years)*10)
	case years > r.max:
		return max(20, 35-(years-r.max)*2)
	default:
		return 35
	}
}

func progression(c records.Candidate) float64 {
	degree := strings.ToLower(c.Education.Degree)
	bonus := 0.0
	switch {
	case containsAny(degree, "master", "mba", "phd"):
		bonus = 10
	case containsAny(degree, "bachelor", "degree"):
		bonus = 5
	}
	return bonus + min(15, c.YearsOfExperience*2)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
