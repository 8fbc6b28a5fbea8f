package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kursadbilgin/notify-engine/internal/app"
	"github.com/kursadbilgin/notify-engine/internal/config"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "notifyctl",
	Short: "Operate the notification delivery engine",
	Long: `notifyctl runs maintenance and delivery actions against the same
database and brokers as the API server.

  notifyctl migrate            Apply database migrations
  notifyctl send               Dispatch an event and wait for delivery
  notifyctl test <endpoint>    Send a test notification to one endpoint
  notifyctl publish            Queue an event for the event worker`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading %s: %w", envFile, err)
			}
			return nil
		}
		_ = godotenv.Load()
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"dotenv file to load (default: .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (default: LOG_LEVEL)")

	rootCmd.AddCommand(
		migrateCmd,
		sendCmd,
		testCmd,
		publishCmd,
	)
}

func loadEngine(ctx context.Context, opts app.Options) (*app.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	engine, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return engine, nil
}

func closeEngine(engine *app.Engine) {
	if err := engine.Close(); err != nil {
		engine.Logger.Warn("failed to close engine", zap.Error(err))
	}
	_ = engine.Logger.Sync()
}
