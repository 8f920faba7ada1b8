package records

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeCandidateFlattensNestedSkills(t *testing.T) {
	raw := decode(t, `{
		"name": "Jane Doe",
		"years_of_experience": "5",
		"education": {"degree": "Master of Science", "field": "Computer Science", "certifications": "AWS Certified"},
		"skills": {
			"technical_skills": {
				"Python": 90,
				"Cloud": {"AWS": "70", "GCP": "expert"},
				"SQL": 65.5
			},
			"soft_skills": ["Communication", "Teamwork"]
		}
	}`)

	c, err := NormalizeCandidate(raw, ScalePercent)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", c.Name)
	assert.Equal(t, 5.0, c.YearsOfExperience)
	assert.Equal(t, []string{"AWS Certified"}, c.Education.Certifications)
	assert.Equal(t, SkillSet{
		{Name: "Cloud AWS", Level: 70},
		{Name: "Cloud GCP", Level: DefaultLevel},
		{Name: "Python", Level: 90},
		{Name: "SQL", Level: 65.5},
	}, c.Technical)
	assert.Equal(t, SkillSet{
		{Name: "Communication", Level: DefaultLevel},
		{Name: "Teamwork", Level: DefaultLevel},
	}, c.Soft)
}

func TestNormalizeCandidateCollidingSkillNamesAreDeterministic(t *testing.T) {
	raw := decode(t, `{
		"name": "Jane Doe",
		"skills": {"technical_skills": {"Cloud": {"AWS": 90}, "Cloud AWS": 10, "cloud": {"AWS": 40}}}
	}`)

	for i := 0; i < 100; i++ {
		c, err := NormalizeCandidate(raw, ScalePercent)
		require.NoError(t, err)
		assert.Equal(t, SkillSet{{Name: "Cloud AWS", Level: 90}, {Name: "cloud AWS", Level: 40}}, c.Technical)
	}
}

func TestNormalizeCandidateSkillShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		record    string
		technical int
		soft      int
	}{
		{name: "skills absent", record: `{"name": "A"}`},
		{name: "skills as text", record: `{"name": "A", "skills": "Not found"}`},
		{name: "section as text", record: `{"name": "A", "skills": {"technical_skills": "Not found", "soft": {"Leadership": 3}}}`, soft: 1},
		{name: "short keys", record: `{"name": "A", "skills": {"technical": {"Go": 80}, "soft": {}}}`, technical: 1},
		{name: "list of objects", record: `{"name": "A", "skills": {"technical_skills": [{"name": "Go", "level": 4}, {"level": 2}]}}`, technical: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NormalizeCandidate(decode(t, tt.record), ScalePercent)
			require.NoError(t, err)
			assert.Len(t, c.Technical, tt.technical)
			assert.Len(t, c.Soft, tt.soft)
		})
	}
}

func TestNormalizeCandidateRejectsUncoercibleRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   any
		field string
	}{
		{name: "not an object", raw: []any{"x"}, field: "(root)"},
		{name: "missing name", raw: map[string]any{"years_of_experience": 3.0}, field: "name"},
		{name: "bad years", raw: map[string]any{"name": "A", "years_of_experience": "many"}, field: "years_of_experience"},
		{name: "negative years", raw: map[string]any{"name": "A", "years_of_experience": -1.0}, field: "years_of_experience"},
		{name: "skills number", raw: map[string]any{"name": "A", "skills": 12.0}, field: "skills"},
		{name: "education number", raw: map[string]any{"name": "A", "education": 3.0}, field: "education"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizeCandidate(tt.raw, ScalePercent)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestNormalizeJobConvertsScale(t *testing.T) {
	raw := decode(t, `{
		"title": "Data Scientist",
		"level": "Senior",
		"experience": 5,
		"education_level": "Master's degree",
		"location": "Berlin",
		"location_type": "hybrid",
		"required_skills": {
			"technical_skills": {"Machine Learning": 5, "Python": "4"},
			"soft_skills": {"Communication": 3}
		},
		"important_skills": ["Machine Learning", 42]
	}`)

	j, err := NormalizeJob(raw, ScaleFivePoint)
	require.NoError(t, err)

	assert.Equal(t, LevelSenior, j.Level)
	assert.Equal(t, 5.0, j.ExperienceRequired)
	assert.Equal(t, SkillSet{{Name: "Machine Learning", Level: 100}, {Name: "Python", Level: 80}}, j.Technical)
	assert.Equal(t, SkillSet{{Name: "Communication", Level: 60}}, j.Soft)
	assert.Equal(t, []string{"Machine Learning", "42"}, j.ImportantSkills)
	assert.Equal(t, "hybrid", j.LocationType)
}

func TestNormalizeJobDefaultsAndErrors(t *testing.T) {
	j, err := NormalizeJob(map[string]any{"title": "Intern"}, ScaleFivePoint)
	require.NoError(t, err)
	assert.Equal(t, LevelEntry, j.Level)
	assert.Empty(t, j.Technical)

	_, err = NormalizeJob(map[string]any{"title": "X", "level": "principal"}, ScaleFivePoint)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "level", verr.Errors[0].Field)
	assert.Contains(t, verr.Error(), `job "X"`)

	_, err = NormalizeJob("just text", ScaleFivePoint)
	assert.ErrorAs(t, err, &verr)
}

func TestScale(t *testing.T) {
	assert.Equal(t, 80.0, ScaleFivePoint.Canonical(4))
	assert.Equal(t, 100.0, ScaleFivePoint.Canonical(7))
	assert.Equal(t, 42.0, ScalePercent.Canonical(42))
	assert.Equal(t, 0.0, ScalePercent.Canonical(-3))

	s, err := ParseScale(" Five-Point ")
	require.NoError(t, err)
	assert.Equal(t, ScaleFivePoint, s)

	_, err = ParseScale("ten")
	assert.Error(t, err)

	assert.NoError(t, DefaultScales().Validate())
	assert.Error(t, Scales{Candidate: "percent", Job: "stars"}.Validate())
}

func TestAllSkillsSoftOverridesTechnical(t *testing.T) {
	c := Candidate{
		Technical: SkillSet{{Name: "Communication", Level: 10}, {Name: "Go", Level: 90}},
		Soft:      SkillSet{{Name: "Communication", Level: 80}, {Name: "Teamwork", Level: 70}},
	}
	assert.Equal(t, SkillSet{
		{Name: "Communication", Level: 80},
		{Name: "Go", Level: 90},
		{Name: "Teamwork", Level: 70},
	}, c.AllSkills())
}
