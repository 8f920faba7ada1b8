package records

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// sectionKind tags the shapes a skills section arrives in.
type sectionKind int

const (
	sectionAbsent sectionKind = iota
	sectionText               // e.g. "Not found"
	sectionList               // ["Python", "SQL"] or [{"name": "Python", "level": 4}]
	sectionMapping            // {"Python": 90, "Cloud": {"AWS": 70}}
	sectionInvalid
)

type skillSection struct {
	kind    sectionKind
	list    []any
	mapping map[string]any
}

func classifySection(v any) skillSection {
	switch val := v.(type) {
	case nil:
		return skillSection{kind: sectionAbsent}
	case string:
		return skillSection{kind: sectionText}
	case []any:
		return skillSection{kind: sectionList, list: val}
	case map[string]any:
		return skillSection{kind: sectionMapping, mapping: val}
	default:
		return skillSection{kind: sectionInvalid}
	}
}

// skills converts a classified section into a canonical skill set.
func (s skillSection) skills(scale Scale) SkillSet {
	collected := map[string]float64{}

	switch s.kind {
	case sectionList:
		for _, item := range s.list {
			switch entry := item.(type) {
			case string:
				if name := strings.TrimSpace(entry); name != "" {
					collected[name] = DefaultLevel
				}
			case map[string]any:
				name := strings.TrimSpace(coerceString(entry["name"]))
				if name == "" {
					continue
				}
				raw, ok := entry["level"]
				if !ok {
					raw = entry["proficiency"]
				}
				collected[name] = level(raw, scale)
			}
		}
	case sectionMapping:
		flatten(s.mapping, "", scale, collected)
	}

	set := make(SkillSet, 0, len(collected))
	for name, lvl := range collected {
		set = append(set, Skill{Name: name, Level: lvl})
	}
	sort.Slice(set, func(i, j int) bool { return set[i].Name < set[j].Name })
	return set
}

// flatten walks nested skill groups in key order, joining group and skill
// names with a space. Names that collide keep the highest level.
func flatten(group map[string]any, prefix string, scale Scale, out map[string]float64) {
	keys := make([]string, 0, len(group))
	for key := range group {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := strings.TrimSpace(prefix + key)
		if name == "" {
			continue
		}
		if nested, ok := group[key].(map[string]any); ok {
			flatten(nested, name+" ", scale, out)
			continue
		}
		lvl := level(group[key], scale)
		if prev, ok := out[name]; ok && prev >= lvl {
			continue
		}
		out[name] = lvl
	}
}

// level parses a numeric level and converts it to the canonical scale.
// Anything non-numeric becomes DefaultLevel.
func level(v any, scale Scale) float64 {
	f, ok := coerceNumber(v)
	if !ok {
		return DefaultLevel
	}
	return scale.Canonical(f)
}

func coerceNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

type educationFields struct {
	Degree         string `mapstructure:"degree"`
	Field          string `mapstructure:"field"`
	Certifications any    `mapstructure:"certifications"`
}

type jobFields struct {
	Title          string `mapstructure:"title"`
	Level          string `mapstructure:"level"`
	EducationLevel string `mapstructure:"education_level"`
	Location       string `mapstructure:"location"`
	LocationType   string `mapstructure:"location_type"`
}

func weakDecode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// NormalizeCandidate turns a loosely typed record into a Candidate. Records
// that cannot be coerced produce a *ValidationError.
func NormalizeCandidate(raw any, scale Scale) (Candidate, error) {
	verr := &ValidationError{Kind: "candidate"}

	m, ok := raw.(map[string]any)
	if !ok {
		verr.add("(root)", "record must be a JSON object")
		return Candidate{}, verr
	}

	c := Candidate{Name: coerceString(m["name"])}
	verr.Record = c.Name

	if v, ok := lookup(m, "years_of_experience", "experience"); ok {
		years, ok := coerceNumber(v)
		if !ok {
			verr.add("years_of_experience", "must be a number")
		}
		c.YearsOfExperience = years
	}

	if v, ok := m["education"]; ok && v != nil {
		edu, err := normalizeEducation(v)
		if err != nil {
			verr.add("education", err.Error())
		}
		c.Education = edu
	}

	if v, ok := m["skills"]; ok {
		switch section := classifySection(v); section.kind {
		case sectionMapping:
			c.Technical = normalizeSkills(section.mapping, scale, verr, "skills.technical_skills", "technical_skills", "technical")
			c.Soft = normalizeSkills(section.mapping, scale, verr, "skills.soft_skills", "soft_skills", "soft")
		case sectionInvalid:
			verr.add("skills", "must be an object, list or text")
		}
	}

	if err := validate(verr, c); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// NormalizeJob turns a loosely typed record into a Job.
func NormalizeJob(raw any, scale Scale) (Job, error) {
	verr := &ValidationError{Kind: "job"}

	m, ok := raw.(map[string]any)
	if !ok {
		verr.add("(root)", "record must be a JSON object")
		return Job{}, verr
	}

	var fields jobFields
	if err := weakDecode(m, &fields); err != nil {
		verr.add("(root)", err.Error())
	}
	verr.Record = fields.Title

	j := Job{
		Title:          strings.TrimSpace(fields.Title),
		Level:          strings.ToLower(strings.TrimSpace(fields.Level)),
		EducationLevel: strings.TrimSpace(fields.EducationLevel),
		Location:       strings.TrimSpace(fields.Location),
		LocationType:   strings.TrimSpace(fields.LocationType),
	}
	if j.Level == "" {
		j.Level = LevelEntry
	}

	if v, ok := lookup(m, "experience_required", "experience", "min_experience"); ok {
		years, ok := coerceNumber(v)
		if !ok {
			verr.add("experience_required", "must be a number")
		}
		j.ExperienceRequired = years
	}

	if v, ok := m["required_skills"]; ok {
		switch section := classifySection(v); section.kind {
		case sectionMapping:
			j.Technical = normalizeSkills(section.mapping, scale, verr, "required_skills.technical_skills", "technical_skills", "technical")
			j.Soft = normalizeSkills(section.mapping, scale, verr, "required_skills.soft_skills", "soft_skills", "soft")
		case sectionInvalid:
			verr.add("required_skills", "must be an object, list or text")
		}
	}

	switch important := m["important_skills"].(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(important); s != "" {
			j.ImportantSkills = []string{s}
		}
	case []any:
		for _, item := range important {
			if s := coerceString(item); s != "" {
				j.ImportantSkills = append(j.ImportantSkills, s)
			}
		}
	default:
		verr.add("important_skills", "must be a list of strings")
	}

	if err := validate(verr, j); err != nil {
		return Job{}, err
	}
	return j, nil
}

func normalizeSkills(group map[string]any, scale Scale, verr *ValidationError, field string, keys ...string) SkillSet {
	v, ok := lookup(group, keys...)
	if !ok {
		return nil
	}
	section := classifySection(v)
	if section.kind == sectionInvalid {
		verr.add(field, "must be an object, list or text")
		return nil
	}
	return section.skills(scale)
}

func normalizeEducation(v any) (Education, error) {
	if _, ok := v.(map[string]any); !ok {
		if s, ok := v.(string); ok {
			return Education{Degree: strings.TrimSpace(s)}, nil
		}
		return Education{}, fmt.Errorf("must be an object")
	}

	var fields educationFields
	if err := weakDecode(v, &fields); err != nil {
		return Education{}, err
	}

	edu := Education{
		Degree: strings.TrimSpace(fields.Degree),
		Field:  strings.TrimSpace(fields.Field),
	}
	switch certs := fields.Certifications.(type) {
	case string:
		if s := strings.TrimSpace(certs); s != "" {
			edu.Certifications = []string{s}
		}
	case []any:
		for _, item := range certs {
			if s := coerceString(item); s != "" {
				edu.Certifications = append(edu.Certifications, s)
			}
		}
	}
	return edu, nil
}
