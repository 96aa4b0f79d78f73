package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"trivia-rank-service/internal/config"
	"trivia-rank-service/internal/logging"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	// .env must be loaded before flag defaults read PORT and CONFIG_PATH
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("could not load .env", slog.Any("err", err))
	}
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "trivia-rank",
		Short:         "Trivia scoring and ranking service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewRecomputeCmd(&configPath))
	cmd.AddCommand(NewResetCmd(&configPath))
	return cmd
}

// loadConfig reads the config and installs the process logger it describes.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
