package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"trivia-rank-service/internal/app"
)

// NewRecomputeCmd rebuilds every user's rank once and exits.
func NewRecomputeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute all ranks from the response history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.engine.Recompute(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("ranks recomputed",
				slog.String("policy", res.Policy),
				slog.Int("ranked", res.Ranked),
				slog.Int("unranked", res.Unranked),
				slog.Int("written", res.Written),
			)
			return nil
		},
	}
}

// NewResetCmd zeroes every score and rank.
func NewResetCmd(configPath *string) *cobra.Command {
	var keepHistory bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all scores and ranks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			admin := app.NewAdminService(rt.users, rt.responses, rt.questions, nil, rt.leaderboardCache, logger)
			return admin.ResetUnchecked(cmd.Context(), !keepHistory)
		},
	}
	cmd.Flags().BoolVar(&keepHistory, "keep-history", false, "keep responses so answered questions stay answered")
	return cmd
}
