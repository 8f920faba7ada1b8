package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS match_results (
	id                UUID PRIMARY KEY,
	run_id            UUID NOT NULL,
	kind              TEXT NOT NULL,
	subject           TEXT NOT NULL,
	candidate_name    TEXT NOT NULL,
	job_title         TEXT NOT NULL,
	overall_score     DOUBLE PRECISION NOT NULL,
	technical_score   DOUBLE PRECISION NOT NULL,
	experience_score  DOUBLE PRECISION NOT NULL,
	cultural_score    DOUBLE PRECISION NOT NULL,
	education_score   DOUBLE PRECISION NOT NULL,
	ai_enhanced_score DOUBLE PRECISION NOT NULL,
	breakdown         JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_results_run ON match_results(run_id);
`

// Postgres stores one row per result in a shared database.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, run Run) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, res := range run.Results {
			breakdown, err := json.Marshal(res.Breakdown)
			if err != nil {
				return fmt.Errorf("failed to marshal breakdown: %w", err)
			}
			batch.Queue(`INSERT INTO match_results
				(id, run_id, kind, subject, candidate_name, job_title, overall_score, technical_score,
				 experience_score, cultural_score, education_score, ai_enhanced_score, breakdown, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
				resultID(res), run.ID, run.Kind, run.Subject, res.CandidateName, res.JobTitle,
				res.OverallScore, res.TechnicalScore, res.ExperienceScore, res.CulturalScore,
				res.EducationScore, res.AISemanticScore, breakdown, run.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save run %s: %w", run.ID, err)
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
