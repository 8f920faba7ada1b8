package matching

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/records"
)

// DefaultWorkers is used when a Ranker is built with a non-positive worker count.
const DefaultWorkers = 4

const (
	pairOK     = "ok"
	pairFailed = "failed"
)

// Matcher scores one pair.
type Matcher interface {
	Match(ctx context.Context, c records.Candidate, j records.Job) Result
}

type PairRecorder interface {
	RecordPair(status string)
}

// Stats describes one ranking run.
type Stats struct {
	Initial int `json:"initial"`
	Dropped int `json:"dropped"`
	Left    int `json:"left"`
}

// Ranking holds results sorted by overall score, best first.
type Ranking struct {
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

// Ranker scores many pairs concurrently. A failing or panicking pair is
// logged and dropped; the rest of the batch is still ranked.
type Ranker struct {
	matcher Matcher
	workers int
	logger  *zap.Logger
	metrics PairRecorder
}

func NewRanker(matcher Matcher, workers int, log *zap.Logger, metrics PairRecorder) *Ranker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{matcher: matcher, workers: workers, logger: log, metrics: metrics}
}

type pair struct {
	candidate records.Candidate
	job       records.Job
}

// TopCandidates returns the k best candidates for job. k <= 0 returns all.
func (r *Ranker) TopCandidates(ctx context.Context, job records.Job, candidates []records.Candidate, k int) Ranking {
	pairs := make([]pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = pair{candidate: c, job: job}
	}
	return r.rank(ctx, "candidates", pairs, 0, k)
}

// TopJobs returns the k best jobs for candidate. k <= 0 returns all.
func (r *Ranker) TopJobs(ctx context.Context, candidate records.Candidate, jobs []records.Job, k int) Ranking {
	pairs := make([]pair, len(jobs))
	for i, j := range jobs {
		pairs[i] = pair{candidate: candidate, job: j}
	}
	return r.rank(ctx, "jobs", pairs, 0, k)
}

// RankCandidatesRaw normalizes the job and candidates first. An invalid job
// is an error; invalid candidates are dropped and counted.
func (r *Ranker) RankCandidatesRaw(ctx context.Context, rawJob any, rawCandidates []any, scales records.Scales, k int) (Ranking, error) {
	job, err := records.NormalizeJob(rawJob, scales.Job)
	if err != nil {
		return Ranking{}, fmt.Errorf("normalize job: %w", err)
	}

	pairs := make([]pair, 0, len(rawCandidates))
	invalid := 0
	for _, raw := range rawCandidates {
		c, err := records.NormalizeCandidate(raw, scales.Candidate)
		if err != nil {
			invalid++
			r.dropped(append(logger.PairFields("", job.Title), zap.Error(err))...)
			continue
		}
		pairs = append(pairs, pair{candidate: c, job: job})
	}
	return r.rank(ctx, "candidates", pairs, invalid, k), nil
}

// RankJobsRaw is the job-side counterpart of RankCandidatesRaw.
func (r *Ranker) RankJobsRaw(ctx context.Context, rawCandidate any, rawJobs []any, scales records.Scales, k int) (Ranking, error) {
	candidate, err := records.NormalizeCandidate(rawCandidate, scales.Candidate)
	if err != nil {
		return Ranking{}, fmt.Errorf("normalize candidate: %w", err)
	}

	pairs := make([]pair, 0, len(rawJobs))
	invalid := 0
	for _, raw := range rawJobs {
		j, err := records.NormalizeJob(raw, scales.Job)
		if err != nil {
			invalid++
			r.dropped(append(logger.PairFields(candidate.Name, ""), zap.Error(err))...)
			continue
		}
		pairs = append(pairs, pair{candidate: candidate, job: j})
	}
	return r.rank(ctx, "jobs", pairs, invalid, k), nil
}

func (r *Ranker) rank(ctx context.Context, kind string, pairs []pair, invalid, k int) Ranking {
	results := make([]*Result, len(pairs))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, p := range pairs {
		g.Go(func() error {
			res, err := r.score(ctx, p)
			if err != nil {
				r.dropped(append(logger.PairFields(p.candidate.Name, p.job.Title), zap.Error(err))...)
				return nil
			}
			if r.metrics != nil {
				r.metrics.RecordPair(pairOK)
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	ranked := make([]Result, 0, len(pairs))
	for _, res := range results {
		if res != nil {
			ranked = append(ranked, *res)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].OverallScore > ranked[b].OverallScore
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	stats := Stats{
		Initial: len(pairs) + invalid,
		Left:    len(ranked),
	}
	stats.Dropped = stats.Initial - stats.Left
	r.logger.Info("ranking step",
		zap.String("ranked", kind),
		zap.Int("initial", stats.Initial),
		zap.Int("dropped", stats.Dropped),
		zap.Int("left", stats.Left),
	)
	return Ranking{Results: ranked, Stats: stats}
}

func (r *Ranker) score(ctx context.Context, p pair) (res Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("pair panicked", zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("scoring panicked: %v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return r.matcher.Match(ctx, p.candidate, p.job), nil
}

func (r *Ranker) dropped(fields ...zap.Field) {
	r.logger.Error("pair dropped from ranking", fields...)
	if r.metrics != nil {
		r.metrics.RecordPair(pairFailed)
	}
}
