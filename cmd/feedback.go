package cmd

import (
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/feedback"
	"github.com/spigell/smartrecruit/internal/logger"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage recruiter feedback used in prompts",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Append a feedback entry",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		addFeedback(strings.Join(args, " "))
	},
}

func init() {
	feedbackCmd.AddCommand(feedbackAddCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func addFeedback(text string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if err := feedback.Append(config.FeedbackDir, text); err != nil {
		logger.Fatal("appending feedback", zap.Error(err))
	}

	logger.Info("feedback saved", zap.String("dir", config.FeedbackDir))
}
