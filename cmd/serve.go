package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/logger"
	"github.com/spigell/smartrecruit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching engine over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
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

	logger.Info("starting the smartrecruit server", zap.String("version", version), zap.String("addr", config.Server.Addr))

	a, err := newApplication(ctx, config, logger, false)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer a.Close(context.Background())

	srv := server.New(config.Server, server.Deps{
		Matcher:  a.engine,
		Ranker:   a.ranker,
		Scales:   config.Scales,
		TopK:     config.TopK,
		Registry: a.metrics.Registry,
		Metrics:  a.metrics,
		Logger:   logger,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
