package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/smartrecruit/internal/ai"
	"github.com/spigell/smartrecruit/internal/records"
)

// tableMatcher returns 1 for equal names and the listed score for known pairs.
type tableMatcher map[[2]string]float64

func (m tableMatcher) Similarity(_ context.Context, a, b, _ string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	if v, ok := m[[2]string{a, b}]; ok {
		return v
	}
	return m[[2]string{b, a}]
}

type fixedAssessor struct {
	fit      float64
	fallback bool
	calls    int
}

func (f *fixedAssessor) Assess(context.Context, records.Candidate, records.Job, string) (float64, bool) {
	f.calls++
	return f.fit, f.fallback
}

type scriptedGenerator struct {
	text  string
	err   error
	calls int
	last  string
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Generate(_ context.Context, prompt string, _ ai.Options) ai.Outcome {
	s.calls++
	s.last = prompt
	return ai.NewOutcome("scripted", s.text, s.err, 1)
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model not loaded")
}

type vectorEmbedder map[string][]float32

func (vectorEmbedder) Name() string { return "vectors" }
func (v vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.HasPrefix(text, "Candidate:") {
		return v["candidate"], nil
	}
	return v["job"], nil
}

type fallbackCounter map[string]int

func (f fallbackCounter) RecordFallback(component string) { f[component]++ }

func TestWeightsSumToOne(t *testing.T) {
	assert.Equal(t, 1.0, DefaultWeights.Sum())
	assert.Equal(t, map[string]string{
		"technical": "30%", "cultural": "20%", "experience": "25%", "education": "10%", "ai_enhanced": "15%",
	}, DefaultWeights.Labels())
	assert.InDelta(t, 100, DefaultWeights.Overall(Scores{100, 100, 100, 100, 100}), 1e-9)
	assert.Zero(t, DefaultWeights.Overall(Scores{}))
}

func TestTechnicalWithoutRequirements(t *testing.T) {
	score, matches := Technical(context.Background(), tableMatcher{}, records.Candidate{
		Technical: records.SkillSet{{Name: "Go", Level: 90}},
	}, records.Job{}, "general")

	assert.Equal(t, 50.0, score)
	assert.Empty(t, matches)
}

func TestTechnicalScoring(t *testing.T) {
	m := tableMatcher{
		{"machine learning", "ml"}: 0.95,
		{"sql", "nosql"}:           0.6,
		{"python", "pytorch"}:      0.4,
	}
	c := records.Candidate{Technical: records.SkillSet{
		{Name: "ML", Level: 80},
		{Name: "NoSQL", Level: 100},
		{Name: "PyTorch", Level: 100},
	}}
	j := records.Job{Technical: records.SkillSet{
		{Name: "Machine Learning", Level: 100},
		{Name: "SQL", Level: 50},
		{Name: "Python", Level: 50},
	}}

	score, matches := Technical(context.Background(), m, c, j, "data science")

	// ML: 0.95*0.8*100 = 76 weighted 100; SQL: 0.6*1.2*100 = 72 weighted 50;
	// Python: below threshold, 0 weighted 50.
	assert.InDelta(t, (76*100.0+72*50)/200, score, 1e-9)
	require.Len(t, matches, 3)

	assert.Equal(t, SkillMatch{Requirement: "Machine Learning", CandidateSkill: "ML", Similarity: 0.95, CandidateLevel: 80, RequiredLevel: 100, Confidence: 0.76}, matches[0])
	assert.Equal(t, 0.72, matches[1].Confidence)
	// Below-threshold matches are still reported for auditing.
	assert.Equal(t, "PyTorch", matches[2].CandidateSkill)
	assert.Equal(t, 0.4, matches[2].Similarity)
}

func TestTechnicalIsCapped(t *testing.T) {
	c := records.Candidate{Technical: records.SkillSet{{Name: "Go", Level: 100}}}
	j := records.Job{Technical: records.SkillSet{{Name: "Go", Level: 20}}}

	score, _ := Technical(context.Background(), tableMatcher{}, c, j, "general")
	assert.Equal(t, 100.0, score)
}

func TestTechnicalZeroImportance(t *testing.T) {
	c := records.Candidate{Technical: records.SkillSet{{Name: "Go", Level: 60}}}
	j := records.Job{Technical: records.SkillSet{{Name: "Go", Level: 0}}}

	score, matches := Technical(context.Background(), tableMatcher{}, c, j, "general")
	assert.Zero(t, score)
	assert.Equal(t, 1.2, matches[0].Confidence)
}

func TestCulturalWithoutSoftRequirements(t *testing.T) {
	a := &fixedAssessor{fit: 0.1}
	res := Cultural(context.Background(), tableMatcher{}, a, records.Candidate{
		Soft: records.SkillSet{{Name: "Teamwork", Level: 90}},
	}, records.Job{}, "general")

	assert.Equal(t, 75.0, res.Score)
	assert.Zero(t, a.calls)
}

func TestCulturalBlend(t *testing.T) {
	c := records.Candidate{Soft: records.SkillSet{{Name: "Communication", Level: 100}}}
	j := records.Job{Soft: records.SkillSet{
		{Name: "Communication", Level: 50},
		{Name: "Leadership", Level: 50},
	}}

	res := Cultural(context.Background(), tableMatcher{}, &fixedAssessor{fit: 0.5}, c, j, "general")

	// Soft skills never earn the overqualification bonus: direct = (100+0)/2.
	assert.InDelta(t, 50, res.Direct, 1e-9)
	assert.InDelta(t, 50*0.6+0.5*100*0.4, res.Score, 1e-9)
	assert.False(t, res.Fallback)
	assert.Len(t, res.Matches, 2)
}

func TestParseFit(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"0.82", 0.82, true},
		{"Cultural fit score: 0.7 because...", 0.7, true},
		{"8", 0.8, true},
		{"7.5/10", 0.75, true},
		{"85", 0.85, true},
		{"250", 1, true},
		{"excellent", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFit(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.InDelta(t, tt.want, got, 1e-9, tt.text)
	}
}

func TestCulturalFitAssessorCachesSuccess(t *testing.T) {
	gen := &scriptedGenerator{text: "0.9"}
	a := NewCulturalFitAssessor(gen, nil, nil, nil)
	c := records.Candidate{Name: "Ann", YearsOfExperience: 4, Soft: records.SkillSet{{Name: "Teamwork"}}}
	j := records.Job{Title: "Analyst", Level: "junior", Soft: records.SkillSet{{Name: "Teamwork"}, {Name: "Empathy"}}}

	fit, fallback := a.Assess(context.Background(), c, j, "data science")
	require.False(t, fallback)
	assert.Equal(t, 0.9, fit)

	_, _ = a.Assess(context.Background(), c, j, "data science")
	assert.Equal(t, 1, gen.calls)

	assert.Contains(t, gen.last, "Assess the cultural fit between this candidate and job position in data science.")
	assert.Contains(t, gen.last, "Required Soft Skills: [Teamwork, Empathy]")
	assert.Contains(t, gen.last, "Job Location: Unknown")
	assert.Contains(t, gen.last, "Experience Level: 4 years")
}

func TestCulturalFitAssessorFallback(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("connection refused")}
	counter := fallbackCounter{}
	a := NewCulturalFitAssessor(gen, nil, counter, nil)
	c := records.Candidate{Name: "Bo", Soft: records.SkillSet{{Name: "teamwork"}, {Name: "Humor"}}}
	j := records.Job{Title: "Lead", Soft: records.SkillSet{{Name: "Teamwork"}, {Name: "Leadership"}}}

	fit, fallback := a.Assess(context.Background(), c, j, "general")
	assert.True(t, fallback)
	assert.Equal(t, 0.5, fit)

	// Failures are not cached.
	_, _ = a.Assess(context.Background(), c, j, "general")
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, counter[ComponentCultural])

	gen.err, gen.text = nil, "no idea"
	_, fallback = a.Assess(context.Background(), c, j, "general")
	assert.True(t, fallback)
}

func TestSoftOverlapWithoutRequirements(t *testing.T) {
	assert.Equal(t, 0.75, SoftOverlap(records.Candidate{}, records.Job{}))
}

func TestExperience(t *testing.T) {
	tests := []struct {
		name  string
		cand  records.Candidate
		job   records.Job
		years float64
		level float64
		prog  float64
	}{
		{
			name:  "senior with five years",
			cand:  records.Candidate{YearsOfExperience: 5, Education: records.Education{Degree: "Master of Science"}},
			job:   records.Job{Level: "senior", ExperienceRequired: 5},
			years: 30, level: 35, prog: 20,
		},
		{
			name:  "no requirement",
			cand:  records.Candidate{YearsOfExperience: 0},
			job:   records.Job{Level: "entry"},
			years: 40, level: 35, prog: 0,
		},
		{
			name:  "under qualified",
			cand:  records.Candidate{YearsOfExperience: 2, Education: records.Education{Degree: "Bachelor"}},
			job:   records.Job{Level: "senior", ExperienceRequired: 8},
			years: 7.5, level: 5, prog: 9,
		},
		{
			name:  "over qualified",
			cand:  records.Candidate{YearsOfExperience: 20},
			job:   records.Job{Level: "junior", ExperienceRequired: 2},
			years: 40, level: 20, prog: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Experience(tt.cand, tt.job)
			assert.InDelta(t, tt.years, b.Years, 1e-9)
			assert.InDelta(t, tt.level, b.Level, 1e-9)
			assert.InDelta(t, tt.prog, b.Progression, 1e-9)
			assert.InDelta(t, min(100, tt.years+tt.level+tt.prog), b.Total, 1e-9)
		})
	}
}

func TestLevelAppropriatenessSeniorScenario(t *testing.T) {
	assert.Equal(t, 35.0, LevelAppropriateness(5, "senior"))
	assert.Equal(t, 35.0, LevelAppropriateness(10, "Senior"))
	assert.Equal(t, 25.0, LevelAppropriateness(4, "senior"))
	assert.Equal(t, 33.0, LevelAppropriateness(6, "mystery"))
}

func TestEducation(t *testing.T) {
	c := records.Candidate{Education: records.Education{
		Degree:         "Bachelor of Science",
		Field:          "Statistics",
		Certifications: []string{"AWS", "GCP"},
	}}
	j := records.Job{Title: "Data Scientist", EducationLevel: "Master's degree"}

	b := Education(c, j, "data science")
	assert.Equal(t, 70.0, b.Level)
	assert.Equal(t, 80.0, b.Field)
	assert.Equal(t, 90.0, b.Certifications)
	assert.InDelta(t, 70*0.6+80*0.3+90*0.1, b.Total, 1e-9)
}

func TestEducationLevelMatch(t *testing.T) {
	assert.Equal(t, 80.0, levelMatch("PhD", ""))
	assert.Equal(t, 100.0, levelMatch("PhD", "bachelor"))
	assert.Equal(t, 50.0, levelMatch("Bachelor", "PhD"))
	assert.Equal(t, 30.0, levelMatch("", "PhD"))
}

func TestFieldRelevance(t *testing.T) {
	assert.Equal(t, 100.0, fieldRelevance("Marketing", "Marketing Manager", "marketing"))
	assert.Equal(t, 100.0, fieldRelevance("", "Marketing Manager", "marketing"))
	assert.Equal(t, 100.0, fieldRelevance("History", "", "marketing"))
	assert.Equal(t, 50.0, fieldRelevance("History", "Backend Developer", "software development"))
}

func TestSemanticScoreUsesEmbeddings(t *testing.T) {
	s := NewSemanticScorer(vectorEmbedder{
		"candidate": {1, 0},
		"job":       {1, 1},
	}, nil, nil)

	score, fallback := s.Score(context.Background(), records.Candidate{Name: "A"}, records.Job{Title: "B", Level: "entry"})
	assert.False(t, fallback)
	assert.InDelta(t, 70.71, score, 0.01)
}

func TestSemanticScoreClampsNegativeCosine(t *testing.T) {
	s := NewSemanticScorer(vectorEmbedder{"candidate": {1, 0}, "job": {-1, 0}}, nil, nil)
	score, _ := s.Score(context.Background(), records.Candidate{Name: "A"}, records.Job{Title: "B"})
	assert.Zero(t, score)
}

func TestSemanticScoreFallback(t *testing.T) {
	counter := fallbackCounter{}
	s := NewSemanticScorer(failingEmbedder{}, counter, nil)
	c := records.Candidate{Name: "Ann", Technical: records.SkillSet{{Name: "Python", Level: 80}}}
	j := records.Job{Title: "Python Developer", Level: "junior", Technical: records.SkillSet{{Name: "Python", Level: 60}}}

	score, fallback := s.Score(context.Background(), c, j)
	assert.True(t, fallback)
	assert.Equal(t, KeywordOverlap(CandidateProfile(c), JobProfile(j)), score)
	assert.Equal(t, 1, counter[ComponentSemantic])
}

func TestSemanticScoreFallsBackOnNonFiniteEmbedding(t *testing.T) {
	for name, bad := range map[string]float32{"nan": float32(math.NaN()), "inf": float32(math.Inf(1))} {
		t.Run(name, func(t *testing.T) {
			counter := fallbackCounter{}
			s := NewSemanticScorer(vectorEmbedder{"candidate": {bad, 1}, "job": {1, 1}}, counter, nil)
			c := records.Candidate{Name: "Ann"}
			j := records.Job{Title: "Analyst"}

			score, fallback := s.Score(context.Background(), c, j)
			assert.True(t, fallback)
			assert.False(t, math.IsNaN(score))
			assert.Equal(t, KeywordOverlap(CandidateProfile(c), JobProfile(j)), score)
			assert.Equal(t, 1, counter[ComponentSemantic])
		})
	}
}

func TestCosineRejectsNonFinite(t *testing.T) {
	_, err := Cosine([]float32{float32(math.NaN()), 1}, []float32{1, 1})
	assert.Error(t, err)
	assert.Zero(t, clamp(math.NaN(), 0, 100))
}

func TestKeywordOverlap(t *testing.T) {
	assert.Equal(t, 50.0, KeywordOverlap("a b", "c"))
	assert.Equal(t, 100.0, KeywordOverlap("python golang", "Python golang"))
	// one shared word out of three: 1/3*100*2
	assert.InDelta(t, 66.67, KeywordOverlap("python golang", "python rust"), 0.01)
}

func TestProfiles(t *testing.T) {
	c := records.Candidate{
		Name:              "Ann",
		YearsOfExperience: 3.5,
		Education:         records.Education{Degree: "BSc", Field: "Physics"},
		Technical:         records.SkillSet{{Name: "Python", Level: 80}},
		Soft:              records.SkillSet{{Name: "Teamwork", Level: 60}},
	}
	assert.Equal(t,
		"Candidate: Ann. Experience: 3.5 years. Education: BSc Physics. Technical Skills: Python(80). Soft Skills: Teamwork(60)",
		CandidateProfile(c))

	j := records.Job{
		Title:              "Engineer",
		Level:              "senior",
		ExperienceRequired: 5,
		Technical:          records.SkillSet{{Name: "Go", Level: 100}},
		ImportantSkills:    []string{"Go", "SQL"},
	}
	assert.Equal(t,
		"Job: Engineer. Level: senior. Experience Required: 5 years. Location: Unknown. Technical Requirements: Go(100). Critical Skills: Go, SQL",
		JobProfile(j))
}

func TestImportantSkillCoverage(t *testing.T) {
	m := tableMatcher{
		{"react", "react native"}: 0.6,
		{"kubernetes", "k8s"}:     0.95,
	}
	c := records.Candidate{
		Technical: records.SkillSet{{Name: "React Native", Level: 70}, {Name: "K8s", Level: 50}},
		Soft:      records.SkillSet{{Name: "Leadership", Level: 90}},
	}
	j := records.Job{ImportantSkills: []string{"React", "Kubernetes", "Leadership", "Rust"}}

	cov := ImportantSkillCoverage(context.Background(), m, c, j, "software development")
	require.Len(t, cov, 4)
	assert.False(t, cov[0].Covered, "substring tier alone does not cover")
	assert.Equal(t, "React Native", cov[0].CandidateSkill)
	assert.True(t, cov[1].Covered)
	assert.True(t, cov[2].Covered)
	assert.Equal(t, 90.0, cov[2].CandidateLevel)
	assert.Equal(t, Coverage{ImportantSkill: "Rust"}, cov[3])
}
