package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spigell/smartrecruit/internal/matching"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS match_results (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	kind              TEXT NOT NULL,
	subject           TEXT NOT NULL,
	candidate_name    TEXT NOT NULL,
	job_title         TEXT NOT NULL,
	overall_score     REAL NOT NULL,
	technical_score   REAL NOT NULL,
	experience_score  REAL NOT NULL,
	cultural_score    REAL NOT NULL,
	education_score   REAL NOT NULL,
	ai_enhanced_score REAL NOT NULL,
	breakdown         TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_results_run ON match_results(run_id);
`

// SQLite stores one row per result in a local database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO match_results
		(id, run_id, kind, subject, candidate_name, job_title, overall_score, technical_score,
		 experience_score, cultural_score, education_score, ai_enhanced_score, breakdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range run.Results {
		breakdown, err := json.Marshal(res.Breakdown)
		if err != nil {
			return fmt.Errorf("encode breakdown: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			resultID(res).String(), run.ID.String(), run.Kind, run.Subject,
			res.CandidateName, res.JobTitle, res.OverallScore, res.TechnicalScore,
			res.ExperienceScore, res.CulturalScore, res.EducationScore, res.AISemanticScore,
			string(breakdown), run.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert result for %q/%q: %w", res.CandidateName, res.JobTitle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Results returns the stored results of a run, best first.
func (s *SQLite) Results(ctx context.Context, runID uuid.UUID) ([]matching.Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, candidate_name, job_title, overall_score, technical_score,
		experience_score, cultural_score, education_score, ai_enhanced_score, breakdown, created_at
		FROM match_results WHERE run_id = ? ORDER BY overall_score DESC, rowid ASC`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []matching.Result
	for rows.Next() {
		var (
			res                 matching.Result
			id, breakdown, when string
		)
		if err := rows.Scan(&id, &res.CandidateName, &res.JobTitle, &res.OverallScore, &res.TechnicalScore,
			&res.ExperienceScore, &res.CulturalScore, &res.EducationScore, &res.AISemanticScore,
			&breakdown, &when); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if res.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse result id: %w", err)
		}
		if err := json.Unmarshal([]byte(breakdown), &res.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
		if res.CreatedAt, err = time.Parse(time.RFC3339, when); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// resultID keeps the result's own ID, minting one for zero-valued results.
func resultID(res matching.Result) uuid.UUID {
	if res.ID == uuid.Nil {
		return uuid.New()
	}
	return res.ID
}
