package app

import (
	"context"
	"log/slog"
	"time"

	"trivia-rank-service/internal/domain"
)

// AdminService holds privileged maintenance operations.
type AdminService struct {
	users     UserRepository
	responses ResponseRepository
	questions QuestionRepository
	authz     Authorizer
	cache     LeaderboardCache
	logger    *slog.Logger
	now       func() time.Time
}

func NewAdminService(users UserRepository, responses ResponseRepository, questions QuestionRepository, authz Authorizer, cache LeaderboardCache, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		users:     users,
		responses: responses,
		questions: questions,
		authz:     authz,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// NewAdminServiceWithClock is test-only for deterministic day boundaries.
func NewAdminServiceWithClock(users UserRepository, responses ResponseRepository, questions QuestionRepository, authz Authorizer, cache LeaderboardCache, now func() time.Time) *AdminService {
	s := NewAdminService(users, responses, questions, authz, cache, nil)
	s.now = now
	return s
}

// Reset zeroes every score and rank. With clearHistory all responses are
// deleted too, letting every user answer every question again.
func (s *AdminService) Reset(ctx context.Context, id domain.Identity, clearHistory bool) error {
	if err := requirePrivileged(s.authz, id); err != nil {
		return err
	}
	return s.ResetUnchecked(ctx, clearHistory)
}

// ResetUnchecked performs Reset without an identity; used by the CLI.
func (s *AdminService) ResetUnchecked(ctx context.Context, clearHistory bool) error {
	if err := s.users.Reset(ctx, clearHistory); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.logger.Info("scores reset", slog.Bool("clearHistory", clearHistory))
	return nil
}

// Stats returns headline counters; responses are counted from local midnight.
func (s *AdminService) Stats(ctx context.Context, id domain.Identity) (domain.AdminStats, error) {
	if err := requirePrivileged(s.authz, id); err != nil {
		return domain.AdminStats{}, err
	}
	questions, err := s.questions.Count(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return domain.AdminStats{}, err
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.responses.CountSince(ctx, midnight)
	if err != nil {
		return domain.AdminStats{}, err
	}
	return domain.AdminStats{Questions: questions, Users: users, ResponsesToday: today}, nil
}

func requirePrivileged(authz Authorizer, id domain.Identity) error {
	if id.IsZero() {
		return domain.ErrUnauthenticated
	}
	if authz == nil || !authz.IsPrivileged(id) {
		return domain.ErrForbidden
	}
	return nil
}
