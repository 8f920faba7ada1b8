package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/records"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a single candidate against a single job and print the result",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("candidate", "", "file with the candidate record (required)")
	matchCmd.Flags().String("job", "", "file with the job record (required)")
	matchCmd.Flags().Int("index-candidate", 0, "record index when the candidate file holds a list")
	matchCmd.Flags().Int("index-job", 0, "record index when the job file holds a list")

	matchCmd.MarkFlagRequired("candidate")
	matchCmd.MarkFlagRequired("job")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	candidateIndex, _ := cmd.Flags().GetInt("index-candidate")
	jobIndex, _ := cmd.Flags().GetInt("index-job")

	candidate, err := readRecord(cmd.Flag("candidate").Value.String(), records.CandidatesKey, candidateIndex)
	if err != nil {
		logger.Fatal("reading candidate", zap.Error(err))
	}
	job, err := readRecord(cmd.Flag("job").Value.String(), records.JobsKey, jobIndex)
	if err != nil {
		logger.Fatal("reading job", zap.Error(err))
	}

	a, err := newApplication(ctx, config, logger, false)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer a.Close(ctx)

	result, err := a.engine.MatchRaw(ctx, candidate, job, config.Scales)
	if err != nil {
		logger.Fatal("scoring the pair", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("encoding the result", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

// readRecord returns the index-th record of a candidate or job document.
func readRecord(path, wrapperKey string, index int) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	docs, err := records.DecodeDocument(data, wrapperKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if index < 0 || index >= len(docs) {
		return nil, fmt.Errorf("%s: index %d out of range, file holds %d records", path, index, len(docs))
	}

	return docs[index], nil
}
