package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/matching"
)

// TimestampLayout is used in file names and the timestamp field.
const TimestampLayout = "20060102_150405"

// File writes one JSON document per run into a directory.
type File struct {
	dir    string
	logger *zap.Logger
}

func NewFile(dir string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{dir: dir, logger: logger}
}

type componentScores struct {
	Technical  float64 `json:"technical_score"`
	Experience float64 `json:"experience_score"`
	Cultural   float64 `json:"cultural_score"`
	Education  float64 `json:"education_score"`
	AIEnhanced float64 `json:"ai_enhanced_score"`
}

type fileEntry struct {
	CandidateName    string          `json:"candidate_name,omitempty"`
	JobTitle         string          `json:"job_title,omitempty"`
	OverallScore     float64         `json:"overall_score"`
	ComponentScores  componentScores `json:"component_scores"`
	FeedbackEnhanced bool            `json:"feedback_enhanced"`
}

type fileDocument struct {
	RunID            string      `json:"run_id"`
	JobTitle         string      `json:"job_title,omitempty"`
	CandidateName    string      `json:"candidate_name,omitempty"`
	Timestamp        string      `json:"timestamp"`
	FeedbackEnhanced bool        `json:"feedback_enhanced"`
	TopCandidates    []fileEntry `json:"top_candidates,omitempty"`
	TopJobs          []fileEntry `json:"top_jobs,omitempty"`
}

// Save writes <safe subject>_<timestamp>.json into the directory.
func (f *File) Save(_ context.Context, run Run) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create scores dir: %w", err)
	}

	timestamp := run.CreatedAt.Format(TimestampLayout)
	doc := fileDocument{
		RunID:            run.ID.String(),
		Timestamp:        timestamp,
		FeedbackEnhanced: run.FeedbackEnhanced,
	}

	entries := make([]fileEntry, 0, len(run.Results))
	for _, res := range run.Results {
		entry := fileEntry{
			OverallScore:     res.OverallScore,
			ComponentScores:  scoresOf(res),
			FeedbackEnhanced: res.Breakdown.FeedbackEnhanced,
		}
		if run.Kind == KindJobs {
			entry.JobTitle = res.JobTitle
		} else {
			entry.CandidateName = res.CandidateName
		}
		entries = append(entries, entry)
	}

	if run.Kind == KindJobs {
		doc.CandidateName = run.Subject
		doc.TopJobs = entries
	} else {
		doc.JobTitle = run.Subject
		doc.TopCandidates = entries
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	path := filepath.Join(f.dir, SafeName(run.Subject)+"_"+timestamp+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f.logger.Info("saved ranking", zap.String("subject", run.Subject), zap.String("path", path))
	return nil
}

func (f *File) Close() error { return nil }

func scoresOf(res matching.Result) componentScores {
	return componentScores{
		Technical:  res.TechnicalScore,
		Experience: res.ExperienceScore,
		Cultural:   res.CulturalScore,
		Education:  res.EducationScore,
		AIEnhanced: res.AISemanticScore,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// SafeName turns a title into a file name fragment.
func SafeName(title string) string {
	name := strings.TrimSpace(unsafeChars.ReplaceAllString(title, ""))
	name = separators.ReplaceAllString(name, "_")
	if name == "" {
		return "untitled"
	}
	return name
}
