// Package records holds the normalized candidate and job records the scoring
// engine works on, and the boundary code turning loosely shaped JSON into them.
package records

import "strings"

// Job levels, in seniority order.
const (
	LevelEntry        = "entry"
	LevelJunior       = "junior"
	LevelIntermediate = "intermediate"
	LevelSenior       = "senior"
	LevelLead         = "lead"
	LevelExpert       = "expert"
)

// Levels lists every accepted job level.
var Levels = []string{LevelEntry, LevelJunior, LevelIntermediate, LevelSenior, LevelLead, LevelExpert}

// Skill is a named proficiency or importance on the canonical 0-100 scale.
type Skill struct {
	Name  string  `json:"name" validate:"required"`
	Level float64 `json:"level" validate:"gte=0,lte=100"`
}

// SkillSet keeps skills in a deterministic order.
type SkillSet []Skill

func (s SkillSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, skill := range s {
		names = append(names, skill.Name)
	}
	return names
}

// LowerNames returns the set of lower-cased skill names.
func (s SkillSet) LowerNames() map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for _, skill := range s {
		set[strings.ToLower(skill.Name)] = struct{}{}
	}
	return set
}

type Education struct {
	Degree         string   `json:"degree"`
	Field          string   `json:"field"`
	Certifications []string `json:"certifications"`
}

// Candidate is a parsed resume. The core never mutates it.
type Candidate struct {
	Name              string    `json:"name" validate:"required"`
	YearsOfExperience float64   `json:"years_of_experience" validate:"gte=0"`
	Education         Education `json:"education"`
	Technical         SkillSet  `json:"technical_skills" validate:"dive"`
	Soft              SkillSet  `json:"soft_skills" validate:"dive"`
}

// AllSkills returns technical skills followed by soft skills. A soft skill
// sharing a name with a technical one replaces it.
func (c Candidate) AllSkills() SkillSet {
	index := make(map[string]int, len(c.Technical)+len(c.Soft))
	all := make(SkillSet, 0, len(c.Technical)+len(c.Soft))
	for _, set := range []SkillSet{c.Technical, c.Soft} {
		for _, skill := range set {
			if i, ok := index[skill.Name]; ok {
				all[i] = skill
				continue
			}
			index[skill.Name] = len(all)
			all = append(all, skill)
		}
	}
	return all
}

// Job is a structured job posting.
type Job struct {
	Title              string   `json:"title" validate:"required"`
	Level              string   `json:"level" validate:"oneof=entry junior intermediate senior lead expert"`
	ExperienceRequired float64  `json:"experience_required" validate:"gte=0"`
	EducationLevel     string   `json:"education_level"`
	Location           string   `json:"location"`
	LocationType       string   `json:"location_type"`
	Technical          SkillSet `json:"technical_skills" validate:"dive"`
	Soft               SkillSet `json:"soft_skills" validate:"dive"`
	ImportantSkills    []string `json:"important_skills"`
}
