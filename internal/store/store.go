// Package store persists ranking runs.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/matching"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Ranking kinds.
const (
	KindCandidates = "candidates"
	KindJobs       = "jobs"
)

// Run is one ranking: the best candidates for a job (KindCandidates) or the
// best jobs for a candidate (KindJobs).
type Run struct {
	ID               uuid.UUID
	Kind             string
	Subject          string
	CreatedAt        time.Time
	FeedbackEnhanced bool
	Results          []matching.Result
}

// NewRun stamps a run with a fresh ID.
func NewRun(kind, subject string, feedbackEnhanced bool, results []matching.Result, now time.Time) Run {
	return Run{
		ID:               uuid.New(),
		Kind:             kind,
		Subject:          subject,
		CreatedAt:        now.UTC(),
		FeedbackEnhanced: feedbackEnhanced,
		Results:          results,
	}
}

type Store interface {
	Save(ctx context.Context, run Run) error
	Close() error
}

// Config mirrors the store section of the configuration file.
type Config struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Open builds the configured store. An empty driver means "file".
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverFile:
		path := cfg.Path
		if path == "" {
			path = "./scores"
		}
		return NewFile(path, logger), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		return OpenPostgres(ctx, cfg.DSN)
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Nop discards runs.
type Nop struct{}

func (Nop) Save(context.Context, Run) error { return nil }
func (Nop) Close() error                    { return nil }
