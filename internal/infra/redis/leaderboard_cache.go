package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-rank-service/internal/domain"
)

const generationKey = "trivia:leaderboard:gen"

// LeaderboardCache stores computed leaderboards as JSON with a TTL so several
// instances share one result. Invalidate bumps a generation counter that is
// part of every key; stale generations simply expire.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LeaderboardCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardCache{client: client, ttl: ttl, logger: logger}
}

// Get returns generation -1 when the counter cannot be read; Set skips it.
func (c *LeaderboardCache) Get(ctx context.Context, key string) (domain.Leaderboard, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Debug("leaderboard generation read failed", slog.Any("err", err))
		return domain.Leaderboard{}, -1, false
	}
	raw, err := c.client.Get(ctx, c.key(gen, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("leaderboard cache read failed", slog.Any("err", err))
		}
		return domain.Leaderboard{}, gen, false
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		return domain.Leaderboard{}, gen, false
	}
	return lb, gen, true
}

// Set writes under gen. After an Invalidate nothing reads that generation
// again, so a late write just expires.
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, key string, lb domain.Leaderboard) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(lb)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(gen, key), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("leaderboard cache write failed", slog.Any("err", err))
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("leaderboard cache invalidation failed", slog.Any("err", err))
	}
}

func (c *LeaderboardCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *LeaderboardCache) key(gen int64, key string) string {
	return "trivia:leaderboard:" + strconv.FormatInt(gen, 10) + ":" + key
}
