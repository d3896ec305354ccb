package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/logger"
	"github.com/newthinker/folio/internal/metrics"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - portfolio risk and sentiment analysis",
	Long: `folio fetches quotes and history from several market data providers,
scores news sentiment and produces portfolio risk reports, either from the
command line or over an HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	var opts []logger.Option
	if level != "" {
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(debug || cfg.Log.Development, opts...)
}

// bootstrap loads config and builds the application. Command output goes to
// stdout, so one-shot commands log to stderr only.
func bootstrap(ctx context.Context, reg *metrics.Registry) (*config.Config, *zap.Logger, *app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing: %w", err)
	}
	return cfg, log, a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
