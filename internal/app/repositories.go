package app

import (
	"context"
	"time"

	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/ranking"
)

// UserRepository abstracts how users are stored (in-memory, Postgres).
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (domain.User, error)
	// Create inserts u. If a user with the same external id already exists the
	// stored row is returned instead.
	Create(ctx context.Context, u domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetRank(ctx context.Context, userID string, rank *int) error
	Count(ctx context.Context) (int, error)
	// Reset zeroes every total score and clears every rank; with clearHistory
	// all responses are deleted in the same transaction.
	Reset(ctx context.Context, clearHistory bool) error
}

// ResponseRepository stores answer events.
type ResponseRepository interface {
	// Record inserts r and increments the user's total score by r.Points in one
	// transaction, returning the new total. A second response for the same
	// (user, question) pair fails with domain.ErrAlreadyAnswered.
	Record(ctx context.Context, r domain.Response) (int, error)
	HasAnswered(ctx context.Context, userID, questionID string) (bool, error)
	// ListByUser returns the user's responses, newest first; limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Response, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.Response, error)
	AggregateSince(ctx context.Context, since time.Time) ([]domain.UserAggregate, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// QuestionRepository stores the question bank.
type QuestionRepository interface {
	Get(ctx context.Context, id string) (domain.Question, error)
	// NextUnanswered returns the oldest active question the user has no response for.
	NextUnanswered(ctx context.Context, userID string) (domain.Question, error)
	List(ctx context.Context) ([]domain.Question, error)
	Create(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// ProfileLookup fetches display metadata from the identity provider. Calls may fail individually.
type ProfileLookup interface {
	Profile(ctx context.Context, externalID string) (domain.Profile, error)
}

// Authorizer decides whether an identity may perform administrative operations.
type Authorizer interface {
	IsPrivileged(id domain.Identity) bool
}

// Ranker recomputes the cached rank of every user.
type Ranker interface {
	Recompute(ctx context.Context) (ranking.Result, error)
}

// LeaderboardCache holds recently computed leaderboard views. Get reports the
// generation it observed even on a miss; Set stores under that generation so
// a view computed before an Invalidate is never served after it.
type LeaderboardCache interface {
	Get(ctx context.Context, key string) (domain.Leaderboard, int64, bool)
	Set(ctx context.Context, gen int64, key string, lb domain.Leaderboard)
	Invalidate(ctx context.Context)
}
