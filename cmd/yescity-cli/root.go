package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yescity/internal/bootstrap"
	"yescity/internal/config"
	"yescity/internal/logger"
)

var (
	envFile  string
	logLevel string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "yescity-cli",
	Short: "YesCity travel recommendations from the command line",
	Long: `yescity-cli runs the recommendation pipeline locally against the configured
catalog and LLM endpoint. Configuration is read from the environment and an
optional .env file, the same way the server does.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "extra .env file to load before configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout per request")
}

// newApp loads configuration and wires the services. The returned func
// releases them.
func newApp(ctx context.Context) (*bootstrap.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logger.NewLogger("dev", logLevel)
	if err != nil {
		return nil, nil, err
	}

	app, err := bootstrap.New(ctx, cfg, zapLogger)
	if err != nil {
		return nil, nil, err
	}

	return app, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Close(closeCtx)
		if err := zapLogger.Sync(); err != nil {
			zapLogger.Debug("sync logger", zap.Error(err))
		}
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
