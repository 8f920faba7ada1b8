// Package careerfield maps jobs and candidates onto coarse career-field labels
// used to scope skill-variation lookups.
package careerfield

import (
	"strings"

	"github.com/spigell/smartrecruit/internal/records"
)

const (
	DataScience         = "data science"
	SoftwareDevelopment = "software development"
	Marketing           = "marketing"
	Design              = "design"
	Finance             = "finance"
	HumanResources      = "human resources"
	Sales               = "sales"
	ProjectManagement   = "project management"
	DevOps              = "devops"
	Cybersecurity       = "cybersecurity"
	BusinessAnalytics   = "business analytics"
	CivilEngineering    = "civil engineering"
	Engineering         = "engineering"
	General             = "general"
)

type bucket struct {
	label    string
	keywords []string
}

// Bucket order matters: the first bucket with a matching keyword wins.
var jobTitleBuckets = []bucket{
	{DataScience, []string{"data", "scientist", "analyst", "ml", "ai"}},
	{SoftwareDevelopment, []string{"developer", "engineer", "programmer", "software"}},
	{Marketing, []string{"marketing", "brand", "digital", "social media"}},
	{Design, []string{"designer", "ui", "ux", "graphic", "creative"}},
	{Finance, []string{"finance", "accounting", "financial", "analyst"}},
	{HumanResources, []string{"hr", "human resources", "recruitment", "talent"}},
	{Sales, []string{"sales", "business development", "account"}},
	{ProjectManagement, []string{"project manager", "product manager", "scrum"}},
	{DevOps, []string{"devops", "infrastructure", "cloud", "system admin"}},
	{Cybersecurity, []string{"security", "cyber", "information security"}},
	{BusinessAnalytics, []string{"business", "analytics", "intelligence", "strategy"}},
	{CivilEngineering, []string{"civil engineer", "structural", "construction"}},
}

var degreeBuckets = []bucket{
	{BusinessAnalytics, []string{"data science", "data analytics", "business analytics"}},
	{SoftwareDevelopment, []string{"computer science", "software", "programming"}},
	{Design, []string{"design", "art", "graphics"}},
	{Marketing, []string{"marketing", "business administration"}},
	{Finance, []string{"finance", "accounting"}},
	{CivilEngineering, []string{"civil engineering"}},
	{Engineering, []string{"engineering"}},
}

var skillBuckets = []bucket{
	{BusinessAnalytics, []string{"data science", "data visualization", "business intelligence", "tableau", "power bi"}},
	{SoftwareDevelopment, []string{"python", "programming", "software development", "java", "javascript"}},
	{Design, []string{"design", "ui", "ux", "canva", "photoshop", "illustrator"}},
	{Marketing, []string{"marketing", "business planning", "social media"}},
	{BusinessAnalytics, []string{"excel", "word", "powerpoint", "office"}},
	{CivilEngineering, []string{"autocad", "structural design", "construction"}},
}

// Keywords are matched as plain substrings, so short ones such as "ai" or
// "ui" also hit longer words. That is intentional and kept for compatibility
// with labels already stored downstream.
func classify(text string, buckets []bucket) (string, bool) {
	text = strings.ToLower(text)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(text, kw) {
				return b.label, true
			}
		}
	}
	return "", false
}

// ClassifyJob looks at the job title only.
func ClassifyJob(job records.Job) string {
	if label, ok := classify(job.Title, jobTitleBuckets); ok {
		return label
	}
	return General
}

// ClassifyCandidate looks at the degree first, then at all skill names.
func ClassifyCandidate(c records.Candidate) string {
	if label, ok := classify(c.Education.Degree, degreeBuckets); ok {
		return label
	}
	names := strings.Join(c.AllSkills().Names(), " ")
	if label, ok := classify(names, skillBuckets); ok {
		return label
	}
	return General
}

var studyFields = map[string][]string{
	Marketing:   {"marketing", "business", "communications"},
	Engineering: {"engineering", "technology", "computer science"},
	Finance:     {"finance", "accounting", "economics", "business"},
	Design:      {"design", "art", "creative"},
	DataScience: {"data science", "statistics", "mathematics", "computer science"},
}

// RelevantStudyFields lists education fields considered related to a career field.
func RelevantStudyFields(label string) []string {
	return studyFields[label]
}
