package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"trivia-rank-service/internal/config"
	"trivia-rank-service/internal/infra/postgres"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, logger)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	group, err := postgres.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("schema up to date")
		return nil
	}
	logger.Info("migrations applied", slog.String("group", group.String()))
	return nil
}
