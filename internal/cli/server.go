package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/auth"
	"trivia-rank-service/internal/config"
	"trivia-rank-service/internal/identity"
	infraredis "trivia-rank-service/internal/infra/redis"
	transport "trivia-rank-service/internal/transport/http"
	"trivia-rank-service/internal/worker"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	hub := app.NewHub()
	if rt.redis != nil {
		relay := infraredis.NewRankRelay(rt.redis, logger)
		rt.engine.OnRecompute(relay.Publish)
		go func() {
			if err := relay.Run(ctx, hub.Publish, nil); err != nil {
				logger.Error("rank relay stopped", slog.Any("err", err))
			}
		}()
	} else {
		rt.engine.OnRecompute(hub.Publish)
	}

	var profiles app.ProfileLookup
	if cfg.Identity.BaseURL != "" {
		profiles = identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, config.TTLDuration(cfg.Identity.Timeout, 2*time.Second))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT secret not configured; every authenticated route will answer 401")
	}
	authz := auth.NewEmailAllowlist(cfg.Auth.AdminEmails)

	users := app.NewUserService(rt.users, rt.responses, rt.questions)
	api := transport.NewAPI(transport.Services{
		Users:       users,
		Submissions: app.NewSubmissionService(users, rt.questions, rt.responses, rt.engine, logger),
		Questions:   app.NewQuestionService(rt.questions, users, authz),
		Leaderboard: app.NewLeaderboardService(rt.users, rt.responses, profiles, rt.engine.Policy(), rt.leaderboardCache, logger),
		Admin:       app.NewAdminService(rt.users, rt.responses, rt.questions, authz, rt.leaderboardCache, logger),
		Hub:         hub,
	}, auth.NewTokenVerifier(cfg.Auth.JWTSecret), logger)

	resync, err := worker.NewResync(rt.engine, cfg.Ranking.Schedule, config.TTLDuration(cfg.Ranking.Timeout, 30*time.Second), logger)
	if err != nil {
		return err
	}
	if err := resync.RunOnce(ctx); err != nil {
		logger.Warn("initial rank recomputation failed", slog.Any("err", err))
	}
	resync.Start()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting trivia service", slog.String("addr", server.Addr), slog.String("policy", rt.engine.Policy().Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", slog.Any("err", err))
			stop()
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signals:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resync.Stop(shutdownCtx)
	stop()
	return server.Shutdown(shutdownCtx)
}
