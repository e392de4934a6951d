package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/logging"
)

const appName = "biasengine"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-bias decision engine: factor ingest, composite scoring, signal dispatch",
		Version: "v0.1.0",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newBreakerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp configures logging from the loaded config and wires the full
// component set. Every subcommand calls this first.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := logging.Configure(logging.Options{Level: cfg.LogLevel})
	log.Info().Str("level", level.String()).Str("config", configPath).Msg("biasengine: configuration loaded")

	return buildApp(cfg, nil, nil)
}
