package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uniqiita/internal/config"
	"uniqiita/internal/platform/logging"
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "uniqiita article-sharing API",
	Long: `Runs the uniqiita HTTP API and its maintenance tasks.

Configuration is read from the environment (APP_ENV, PORT, DATA_STORE,
DATABASE_URL, FIREBASE_* and friends). Without a subcommand the server starts.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, credentialsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads configuration and builds the process logger.
func loadRuntime() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
