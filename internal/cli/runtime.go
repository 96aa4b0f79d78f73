package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/config"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/infra/memory"
	"trivia-rank-service/internal/infra/postgres"
	infraredis "trivia-rank-service/internal/infra/redis"
	"trivia-rank-service/internal/ranking"
)

// runtime holds the stores and engine shared by every subcommand. Postgres
// and Redis are used when configured; otherwise everything lives in memory.
type runtime struct {
	cfg              config.Config
	logger           *slog.Logger
	users            app.UserRepository
	questions        app.QuestionRepository
	responses        app.ResponseRepository
	leaderboardCache app.LeaderboardCache
	redis            *redis.Client
	engine           *ranking.Engine
	closers          []func()
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	policy, err := ranking.ParsePolicy(cfg.Ranking.Policy)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.redis.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
	}

	questionTTL := config.TTLDuration(cfg.Questions.CacheTTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		db := postgres.NewDB(pool)
		rt.users = db.Users()
		rt.responses = db.Responses()
		if rt.redis != nil {
			rt.questions = infraredis.NewQuestionCache(rt.redis, db.Questions(), questionTTL)
		} else {
			rt.questions = memory.NewQuestionCache(db.Questions(), questionTTL)
		}
	} else {
		logger.Warn("postgres not configured; using in-memory store with sample questions")
		db := memory.NewDB()
		for _, q := range sampleQuestions() {
			if err := db.Questions().Create(ctx, q); err != nil {
				return nil, err
			}
		}
		rt.users = db.Users()
		rt.responses = db.Responses()
		rt.questions = db.Questions()
	}

	leaderboardTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, 15*time.Second)
	if rt.redis != nil {
		rt.leaderboardCache = infraredis.NewLeaderboardCache(rt.redis, leaderboardTTL, logger)
	} else {
		rt.leaderboardCache = memory.NewLeaderboardCache(leaderboardTTL)
	}

	rt.engine = ranking.NewEngine(rt.responses, rt.users, policy,
		ranking.WithWriteConcurrency(cfg.Ranking.WriteConcurrency),
		ranking.WithLogger(logger),
	)
	rt.engine.OnRecompute(func(ranking.Result) {
		rt.leaderboardCache.Invalidate(context.Background())
	})
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// sampleQuestions seeds the in-memory store so a bare start is playable.
func sampleQuestions() []domain.Question {
	now := time.Now()
	mk := func(id, prompt, difficulty string, correct int, options ...string) domain.Question {
		opts := make([]domain.Option, len(options))
		for i, text := range options {
			opts[i] = domain.Option{ID: fmt.Sprintf("%s-o%d", id, i+1), Text: text, Correct: i == correct}
		}
		return domain.Question{
			ID:         id,
			Prompt:     prompt,
			Options:    opts,
			Difficulty: difficulty,
			Points:     10,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return []domain.Question{
		mk("q1", "What is 2 + 2?", domain.DifficultyEasy, 1, "3", "4", "5"),
		mk("q2", "Which planet is known as the Red Planet?", domain.DifficultyEasy, 2, "Venus", "Jupiter", "Mars", "Saturn"),
		mk("q3", "What is the chemical symbol for gold?", domain.DifficultyMedium, 0, "Au", "Ag", "Gd"),
	}
}
