package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Wrapper keys accepted around a list of records.
const (
	CandidatesKey = "candidates"
	JobsKey       = "jobs"
)

// LoadReport summarizes a directory load.
type LoadReport struct {
	Files   int `json:"files"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// DecodeDocument accepts a single object, a list of objects, or an object
// wrapping the list under wrapperKey.
func DecodeDocument(data []byte, wrapperKey string) ([]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return Unwrap(doc, wrapperKey)
}

// Unwrap applies the DecodeDocument shape rules to an already decoded value.
func Unwrap(doc any, wrapperKey string) ([]any, error) {
	switch val := doc.(type) {
	case []any:
		return val, nil
	case map[string]any:
		if list, ok := val[wrapperKey].([]any); ok {
			return list, nil
		}
		return []any{val}, nil
	default:
		return nil, fmt.Errorf("unexpected document shape %T", doc)
	}
}

// LoadCandidates reads every *.json file of dir in name order.
// Unreadable files and invalid records are logged and skipped.
func LoadCandidates(dir string, scale Scale, logger *zap.Logger) ([]Candidate, LoadReport, error) {
	var out []Candidate
	report, err := loadDir(dir, CandidatesKey, logger, func(raw any) (string, error) {
		c, err := NormalizeCandidate(raw, scale)
		if err != nil {
			return "", err
		}
		out = append(out, c)
		return c.Name, nil
	})
	return out, report, err
}

// LoadJobs is the job counterpart of LoadCandidates.
func LoadJobs(dir string, scale Scale, logger *zap.Logger) ([]Job, LoadReport, error) {
	var out []Job
	report, err := loadDir(dir, JobsKey, logger, func(raw any) (string, error) {
		j, err := NormalizeJob(raw, scale)
		if err != nil {
			return "", err
		}
		out = append(out, j)
		return j.Title, nil
	})
	return out, report, err
}

func loadDir(dir, wrapperKey string, logger *zap.Logger, accept func(any) (string, error)) (LoadReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var report LoadReport
	if _, err := os.Stat(dir); err != nil {
		return report, fmt.Errorf("%s directory: %w", wrapperKey, err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return report, fmt.Errorf("list %s files: %w", wrapperKey, err)
	}
	sort.Strings(files)
	report.Files = len(files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Error("reading record file", zap.String("file", file), zap.Error(err))
			continue
		}

		items, err := DecodeDocument(data, wrapperKey)
		if err != nil {
			logger.Error("decoding record file", zap.String("file", file), zap.Error(err))
			continue
		}

		for i, item := range items {
			name, err := accept(item)
			if err != nil {
				report.Skipped++
				logger.Warn("skipping invalid record",
					zap.String("file", file),
					zap.Int("index", i),
					zap.Error(err),
				)
				continue
			}
			report.Loaded++
			logger.Debug("loaded record", zap.String("file", file), zap.String("name", name))
		}
	}

	logger.Info("records loaded",
		zap.String("kind", wrapperKey),
		zap.Int("files", report.Files),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}
