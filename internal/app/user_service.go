package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"trivia-rank-service/internal/domain"
)

const recentResponseLimit = 10

// UserService mirrors external identities into local users on demand.
type UserService struct {
	users     UserRepository
	responses ResponseRepository
	questions QuestionRepository
	now       func() time.Time
}

func NewUserService(users UserRepository, responses ResponseRepository, questions QuestionRepository) *UserService {
	return &UserService{users: users, responses: responses, questions: questions, now: time.Now}
}

// Ensure returns the local user for id, creating it on first contact.
func (s *UserService) Ensure(ctx context.Context, id domain.Identity) (domain.User, error) {
	if id.IsZero() {
		return domain.User{}, domain.ErrUnauthenticated
	}
	user, err := s.users.GetByExternalID(ctx, id.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}
	return s.users.Create(ctx, domain.User{
		ID:          uuid.NewString(),
		ExternalID:  id.ExternalID,
		Email:       id.Email,
		DisplayName: id.Username,
		CreatedAt:   s.now(),
	})
}

// Dashboard returns the caller's profile, recent answers and progress counters.
func (s *UserService) Dashboard(ctx context.Context, id domain.Identity) (domain.Dashboard, error) {
	user, err := s.Ensure(ctx, id)
	if err != nil {
		return domain.Dashboard{}, err
	}
	history, err := s.responses.ListByUser(ctx, user.ID, 0)
	if err != nil {
		return domain.Dashboard{}, err
	}
	recent := history
	if len(recent) > recentResponseLimit {
		recent = recent[:recentResponseLimit]
	}
	active, err := s.questions.CountActive(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return domain.Dashboard{
		User:            user,
		RecentResponses: recent,
		TotalResponses:  len(history),
		TotalQuestions:  active,
	}, nil
}
