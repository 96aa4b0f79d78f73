package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/infra/memory"
	"trivia-rank-service/internal/ranking"
)

var (
	alice = domain.Identity{ExternalID: "ext-alice", Email: "alice@example.com", Username: "alice"}
	bob   = domain.Identity{ExternalID: "ext-bob", Email: "bob@example.com"}
	carol = domain.Identity{ExternalID: "ext-carol"}
	admin = domain.Identity{ExternalID: "ext-admin", Email: "admin@example.com"}
)

var start = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type allowlist map[string]bool

func (a allowlist) IsPrivileged(id domain.Identity) bool { return a[id.Email] }

type fixture struct {
	db          *memory.DB
	clock       *clock
	engine      *ranking.Engine
	users       *app.UserService
	submissions *app.SubmissionService
	questions   *app.QuestionService
	admin       *app.AdminService
	cache       *memory.LeaderboardCache
}

func newFixture(t *testing.T, policy ranking.Policy) *fixture {
	t.Helper()
	db := memory.NewDB()
	ctx := context.Background()
	for _, q := range bank() {
		if err := db.Questions().Create(ctx, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
	clk := &clock{now: start}
	authz := allowlist{admin.Email: true}
	cache := memory.NewLeaderboardCache(time.Minute)
	engine := ranking.NewEngine(db.Responses(), db.Users(), policy, ranking.WithClock(clk.Now))
	engine.OnRecompute(func(ranking.Result) { cache.Invalidate(context.Background()) })
	users := app.NewUserService(db.Users(), db.Responses(), db.Questions())
	return &fixture{
		db:          db,
		clock:       clk,
		engine:      engine,
		users:       users,
		submissions: app.NewSubmissionServiceWithClock(users, db.Questions(), db.Responses(), engine, clk.Now),
		questions:   app.NewQuestionService(db.Questions(), users, authz),
		admin:       app.NewAdminServiceWithClock(db.Users(), db.Responses(), db.Questions(), authz, cache, clk.Now),
		cache:       cache,
	}
}

func (f *fixture) leaderboard(profiles app.ProfileLookup) *app.LeaderboardService {
	return app.NewLeaderboardServiceWithClock(f.db.Users(), f.db.Responses(), profiles, f.engine.Policy(), nil, f.clock.Now)
}

func (f *fixture) submit(t *testing.T, id domain.Identity, questionID, optionID string, latency int64) domain.AnswerResult {
	t.Helper()
	res, err := f.submissions.Submit(context.Background(), id, domain.AnswerSubmission{
		QuestionID: questionID,
		OptionID:   optionID,
		LatencyMs:  latency,
	})
	if err != nil {
		t.Fatalf("submit %s/%s: %v", id.ExternalID, questionID, err)
	}
	return res
}

func (f *fixture) user(t *testing.T, id domain.Identity) domain.User {
	t.Helper()
	u, err := f.db.Users().GetByExternalID(context.Background(), id.ExternalID)
	if err != nil {
		t.Fatalf("lookup %s: %v", id.ExternalID, err)
	}
	return u
}

func bank() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "What is 2 + 2?",
			Options: []domain.Option{
				{ID: "q1-a", Text: "3"},
				{ID: "q1-b", Text: "4", Correct: true},
			},
			Difficulty: domain.DifficultyEasy,
			Points:     10,
			Active:     true,
			CreatedAt:  start.Add(-3 * time.Hour),
		},
		{
			ID:     "q2",
			Prompt: "Capital of France?",
			Options: []domain.Option{
				{ID: "q2-a", Text: "Paris", Correct: true},
				{ID: "q2-b", Text: "Lyon"},
			},
			Difficulty: domain.DifficultyMedium,
			Points:     10,
			Active:     true,
			CreatedAt:  start.Add(-2 * time.Hour),
		},
		{
			ID:     "q3",
			Prompt: "Retired question",
			Options: []domain.Option{
				{ID: "q3-a", Text: "yes", Correct: true},
				{ID: "q3-b", Text: "no"},
			},
			Difficulty: domain.DifficultyHard,
			Points:     10,
			CreatedAt:  start.Add(-time.Hour),
		},
	}
}

type stubProfiles struct {
	fail     map[string]bool
	profiles map[string]domain.Profile
}

func (s stubProfiles) Profile(_ context.Context, externalID string) (domain.Profile, error) {
	if s.fail[externalID] {
		return domain.Profile{}, errors.New("provider unavailable")
	}
	p, ok := s.profiles[externalID]
	if !ok {
		return domain.Profile{}, errors.New("unknown profile")
	}
	return p, nil
}

func mustContain(t *testing.T, err error, fragment string) {
	t.Helper()
	if err == nil || !strings.Contains(err.Error(), fragment) {
		t.Fatalf("expected error containing %q, got %v", fragment, err)
	}
}

func appSubmissionWithRanker(f *fixture, r app.Ranker) *app.SubmissionService {
	return app.NewSubmissionServiceWithClock(f.users, f.db.Questions(), f.db.Responses(), r, f.clock.Now)
}
