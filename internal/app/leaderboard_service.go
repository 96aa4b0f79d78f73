package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/ranking"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100

	profileLookupConcurrency = 8
)

// LeaderboardQuery selects a leaderboard view.
type LeaderboardQuery struct {
	Limit int
	Range domain.Range
}

// LeaderboardService derives standings live from the response history. It never writes.
type LeaderboardService struct {
	users     UserRepository
	responses ResponseRepository
	profiles  ProfileLookup
	policy    ranking.Policy
	cache     LeaderboardCache
	logger    *slog.Logger
	now       func() time.Time
}

func NewLeaderboardService(users UserRepository, responses ResponseRepository, profiles ProfileLookup, policy ranking.Policy, cache LeaderboardCache, logger *slog.Logger) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardService{
		users:     users,
		responses: responses,
		profiles:  profiles,
		policy:    policy,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// NewLeaderboardServiceWithClock is test-only for deterministic windows.
func NewLeaderboardServiceWithClock(users UserRepository, responses ResponseRepository, profiles ProfileLookup, policy ranking.Policy, cache LeaderboardCache, now func() time.Time) *LeaderboardService {
	s := NewLeaderboardService(users, responses, profiles, policy, cache, nil)
	s.now = now
	return s
}

// Query ranks users with the configured policy over the requested window and
// returns the top Limit rows.
func (s *LeaderboardService) Query(ctx context.Context, q LeaderboardQuery) (domain.Leaderboard, error) {
	limit := normalizeLimit(q.Limit)
	rng := q.Range
	if rng == "" {
		rng = domain.RangeAll
	}
	key := fmt.Sprintf("%s:%s:%d", s.policy.Name(), rng, limit)
	var gen int64
	if s.cache != nil {
		lb, g, ok := s.cache.Get(ctx, key)
		if ok {
			return lb, nil
		}
		gen = g
	}

	now := s.now()
	users, err := s.users.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	responses, err := s.responses.ListSince(ctx, rng.Since(now))
	if err != nil {
		return domain.Leaderboard{}, err
	}
	totals, err := s.responses.AggregateSince(ctx, time.Time{})
	if err != nil {
		return domain.Leaderboard{}, err
	}

	var standings []ranking.Standing
	if rng == domain.RangeAll {
		standings = ranking.Standings(s.policy, users, responses)
	} else {
		standings = ranking.WindowStandings(s.policy, responses)
	}
	if len(standings) > limit {
		standings = standings[:limit]
	}

	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	answered := make(map[string]int, len(totals))
	for _, agg := range totals {
		answered[agg.UserID] = agg.Answered
	}

	profiles := s.lookupProfiles(ctx, standings, byID)
	entries := make([]domain.LeaderboardEntry, 0, len(standings))
	for i, st := range standings {
		user := byID[st.UserID]
		profile := profiles[i]
		entry := domain.LeaderboardEntry{
			UserID:            st.UserID,
			DisplayName:       displayName(user, profile),
			TotalScore:        st.Score,
			QuestionsAnswered: answered[st.UserID],
			Timestamp:         s.policy.Timestamp(st.Tally),
			Rank:              st.Rank,
		}
		if profile != nil && profile.AvatarURL != "" {
			avatar := profile.AvatarURL
			entry.AvatarURL = &avatar
		}
		entries = append(entries, entry)
	}

	lb := domain.Leaderboard{
		Range:     rng,
		Policy:    s.policy.Name(),
		Entries:   entries,
		UpdatedAt: now,
	}
	if s.cache != nil {
		s.cache.Set(ctx, gen, key, lb)
	}
	return lb, nil
}

// lookupProfiles fetches provider metadata for each standing concurrently. A
// failed lookup leaves a nil slot rather than failing the query.
func (s *LeaderboardService) lookupProfiles(ctx context.Context, standings []ranking.Standing, users map[string]domain.User) []*domain.Profile {
	out := make([]*domain.Profile, len(standings))
	if s.profiles == nil {
		return out
	}
	var g errgroup.Group
	g.SetLimit(profileLookupConcurrency)
	for i, st := range standings {
		user, ok := users[st.UserID]
		if !ok || user.ExternalID == "" {
			continue
		}
		g.Go(func() error {
			p, err := s.profiles.Profile(ctx, user.ExternalID)
			if err != nil {
				s.logger.Warn("profile lookup failed", slog.String("user", user.ID), slog.Any("err", err))
				return nil
			}
			out[i] = &p
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func displayName(u domain.User, p *domain.Profile) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if p != nil && p.Label != "" {
		return p.Label
	}
	if u.Email != "" {
		return u.Email
	}
	return domain.DefaultDisplayName
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}
