package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/matching"
	"github.com/spigell/smartrecruit/internal/records"
	"github.com/spigell/smartrecruit/internal/store"
)

const (
	PromptSaveResults = "Save results"
	PromptReport      = "Report"
	PromptDumpToFile  = "Dump to file"
	PromptExit        = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptSaveResults, PromptReport, PromptDumpToFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidates for every job (or jobs for every candidate)",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("yes", "y", false, "save results without asking")
	rankCmd.Flags().BoolP("by-candidate", "c", false, "rank jobs for every candidate instead of candidates for every job")
	rankCmd.Flags().IntP("top-k", "k", 5, "how many matches to keep per ranking")

	viper.BindPFlag("top-k", rankCmd.Flags().Lookup("top-k"))
}

// rankedRun pairs a persisted run with the statistics of the ranking behind it.
type rankedRun struct {
	Run   store.Run      `json:"run"`
	Stats matching.Stats `json:"stats"`
}

func rank(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the smartrecruit", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	candidates, report, err := records.LoadCandidates(config.CandidatesDir, config.Scales.Candidate, logger)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}
	logger.Info("loading candidates", zap.Int("count", len(candidates)), zap.Int("files", report.Files), zap.Int("skipped", report.Skipped))

	jobs, report, err := records.LoadJobs(config.JobsDir, config.Scales.Job, logger)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}
	logger.Info("loading jobs", zap.Int("count", len(jobs)), zap.Int("files", report.Files), zap.Int("skipped", report.Skipped))

	if len(candidates) == 0 || len(jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates or jobs to rank"))
		return
	}

	a, err := newApplication(ctx, config, logger, true)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer a.Close(context.Background())

	byCandidate := cmd.Flag("by-candidate").Value.String() == "true"
	runs := rankAll(ctx, a, candidates, jobs, byCandidate, config.TopK)

	printRuns(logger, runs)

	autoApprove := cmd.Flag("yes").Value.String() == "true"
	for {
		action := PromptSaveResults
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleAction(ctx, action, a, runs); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

// rankAll produces one run per job, or one per candidate when byCandidate is set.
func rankAll(ctx context.Context, a *application, candidates []records.Candidate, jobs []records.Job, byCandidate bool, k int) []rankedRun {
	enhanced := a.feedback.Enhanced()
	runs := make([]rankedRun, 0)

	if byCandidate {
		for _, c := range candidates {
			ranking := a.ranker.TopJobs(ctx, c, jobs, k)
			runs = append(runs, rankedRun{
				Run:   store.NewRun(store.KindJobs, c.Name, enhanced, ranking.Results, time.Now()),
				Stats: ranking.Stats,
			})
		}
		return runs
	}

	for _, j := range jobs {
		ranking := a.ranker.TopCandidates(ctx, j, candidates, k)
		runs = append(runs, rankedRun{
			Run:   store.NewRun(store.KindCandidates, j.Title, enhanced, ranking.Results, time.Now()),
			Stats: ranking.Stats,
		})
	}
	return runs
}

func printRuns(logger *zap.Logger, runs []rankedRun) {
	for _, r := range runs {
		logger.Info("top matches", zap.String("for", r.Run.Subject), zap.String("kind", r.Run.Kind))

		for i, res := range r.Run.Results {
			name := res.CandidateName
			if r.Run.Kind == store.KindJobs {
				name = res.JobTitle
			}
			logger.Info(fmt.Sprintf("%d. %s", i+1, name),
				zap.Float64("overall", res.OverallScore),
				zap.Float64("technical", res.TechnicalScore),
				zap.Float64("experience", res.ExperienceScore),
				zap.Float64("cultural", res.CulturalScore),
				zap.Float64("education", res.EducationScore),
				zap.Float64("ai_enhanced", res.AISemanticScore),
			)
		}
	}
}

func handleAction(ctx context.Context, action string, a *application, runs []rankedRun) error {
	switch action {
	case PromptSaveResults:
		for _, r := range runs {
			if err := a.store.Save(ctx, r.Run); err != nil {
				return fmt.Errorf("save results for %q: %w", r.Run.Subject, err)
			}
		}
		a.logger.Info("results saved", zap.Int("runs", len(runs)), zap.String("driver", a.config.Store.Driver))
		return nil
	case PromptReport:
		for _, r := range runs {
			best := 0.0
			if len(r.Run.Results) > 0 {
				best = r.Run.Results[0].OverallScore
			}
			a.logger.Info("ranking report",
				zap.String("for", r.Run.Subject),
				zap.Int("initial", r.Stats.Initial),
				zap.Int("dropped", r.Stats.Dropped),
				zap.Int("left", r.Stats.Left),
				zap.Float64("best_score", best),
				zap.Bool("feedback_enhanced", r.Run.FeedbackEnhanced),
			)
		}
		return nil
	case PromptDumpToFile:
		filename, err := dumpToTmpFile(runs)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		a.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		a.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func dumpToTmpFile(runs []rankedRun) (string, error) {
	f, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return "", err
	}

	return f.Name(), nil
}
