package memory

import (
	"context"
	"sync"
	"time"

	"trivia-rank-service/internal/domain"
)

// LeaderboardCache is an in-memory implementation of app.LeaderboardCache.
type LeaderboardCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	gen     int64
	entries map[string]cachedLeaderboard
}

type cachedLeaderboard struct {
	board     domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardCache(ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cachedLeaderboard),
	}
}

func (c *LeaderboardCache) Get(_ context.Context, key string) (domain.Leaderboard, int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Leaderboard{}, c.gen, false
	}
	return entry.board, c.gen, true
}

// Set drops lb when an Invalidate happened after gen was observed.
func (c *LeaderboardCache) Set(_ context.Context, gen int64, key string, lb domain.Leaderboard) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[key] = cachedLeaderboard{board: lb, expiresAt: c.clock().Add(c.ttl)}
}

func (c *LeaderboardCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]cachedLeaderboard)
}

// Len reports how many views are cached, expired or not.
func (c *LeaderboardCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
