package ranking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"trivia-rank-service/internal/domain"
)

// ResponseSource reads the authoritative answer history.
type ResponseSource interface {
	// ListSince returns responses answered at or after since, oldest first.
	// The zero time returns the full history.
	ListSince(ctx context.Context, since time.Time) ([]domain.Response, error)
}

// RankStore reads users and writes their cached rank.
type RankStore interface {
	List(ctx context.Context) ([]domain.User, error)
	SetRank(ctx context.Context, userID string, rank *int) error
}

// Result describes one completed recomputation.
type Result struct {
	Policy     string
	Ranked     int
	Unranked   int
	Written    int
	ComputedAt time.Time
}

const defaultWriteConcurrency = 8

// Engine rebuilds every user's rank from the full response history.
type Engine struct {
	responses   ResponseSource
	users       RankStore
	policy      Policy
	logger      *slog.Logger
	clock       func() time.Time
	concurrency int

	// serializes runs so two snapshots never interleave their writes
	mu        sync.Mutex
	listeners []func(Result)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithWriteConcurrency bounds parallel rank writes.
func WithWriteConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(responses ResponseSource, users RankStore, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		responses:   responses,
		users:       users,
		policy:      policy,
		logger:      slog.Default(),
		clock:       time.Now,
		concurrency: defaultWriteConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy this engine ranks with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// OnRecompute registers fn to run after every successful recomputation.
// Listeners run synchronously and must not block.
func (e *Engine) OnRecompute(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Recompute derives the standings and writes every user's rank; users the
// policy excludes get a nil rank. Only the rank field is touched.
func (e *Engine) Recompute(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	responses, err := e.responses.ListSince(ctx, time.Time{})
	if err != nil {
		return Result{}, err
	}
	users, err := e.users.List(ctx)
	if err != nil {
		return Result{}, err
	}

	standings := Standings(e.policy, users, responses)
	ranks := make(map[string]int, len(standings))
	for _, s := range standings {
		ranks[s.UserID] = s.Rank
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	written := 0
	for _, u := range users {
		var next *int
		if r, ok := ranks[u.ID]; ok {
			next = &r
		}
		if sameRank(u.Rank, next) {
			continue
		}
		written++
		userID := u.ID
		g.Go(func() error {
			return e.users.SetRank(gctx, userID, next)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Policy:     e.policy.Name(),
		Ranked:     len(standings),
		Unranked:   len(users) - len(standings),
		Written:    written,
		ComputedAt: e.clock(),
	}
	e.logger.Debug("ranks recomputed",
		slog.String("policy", res.Policy),
		slog.Int("ranked", res.Ranked),
		slog.Int("unranked", res.Unranked),
		slog.Int("written", res.Written),
	)
	for _, fn := range e.listeners {
		fn(res)
	}
	return res, nil
}

func sameRank(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
