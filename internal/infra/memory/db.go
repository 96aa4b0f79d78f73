package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-rank-service/internal/domain"
)

type answerKey struct {
	userID     string
	questionID string
}

// DB is an in-process stand-in for the relational store. One mutex guards all
// tables, so every method is a serializable transaction.
type DB struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byExternal map[string]string
	questions  map[string]domain.Question
	responses  []domain.Response
	answered   map[answerKey]struct{}
}

func NewDB() *DB {
	return &DB{
		users:      make(map[string]domain.User),
		byExternal: make(map[string]string),
		questions:  make(map[string]domain.Question),
		answered:   make(map[answerKey]struct{}),
	}
}

// Users returns the user table view of db.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

// Questions returns the question table view of db.
func (db *DB) Questions() *QuestionStore { return &QuestionStore{db: db} }

// Responses returns the response table view of db.
func (db *DB) Responses() *ResponseStore { return &ResponseStore{db: db} }

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct{ db *DB }

func (s *UserStore) Get(_ context.Context, id string) (domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *UserStore) GetByExternalID(_ context.Context, externalID string) (domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	id, ok := s.db.byExternal[externalID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(s.db.users[id]), nil
}

func (s *UserStore) Create(_ context.Context, u domain.User) (domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if id, ok := s.db.byExternal[u.ExternalID]; ok {
		return cloneUser(s.db.users[id]), nil
	}
	u.TotalScore = 0
	u.Rank = nil
	s.db.users[u.ID] = u
	s.db.byExternal[u.ExternalID] = u.ID
	return u, nil
}

func (s *UserStore) List(_ context.Context) ([]domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]domain.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) SetRank(_ context.Context, userID string, rank *int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Rank = copyRank(rank)
	s.db.users[userID] = u
	return nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.users), nil
}

func (s *UserStore) Reset(_ context.Context, clearHistory bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, u := range s.db.users {
		u.TotalScore = 0
		u.Rank = nil
		s.db.users[id] = u
	}
	if clearHistory {
		s.db.responses = nil
		s.db.answered = make(map[answerKey]struct{})
	}
	return nil
}

// QuestionStore is an in-memory implementation of app.QuestionRepository.
type QuestionStore struct{ db *DB }

func (s *QuestionStore) Get(_ context.Context, id string) (domain.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	q, ok := s.db.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *QuestionStore) NextUnanswered(_ context.Context, userID string) (domain.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var next *domain.Question
	for id, q := range s.db.questions {
		if !q.Active {
			continue
		}
		if _, done := s.db.answered[answerKey{userID: userID, questionID: id}]; done {
			continue
		}
		if next == nil || q.CreatedAt.Before(next.CreatedAt) || (q.CreatedAt.Equal(next.CreatedAt) && q.ID < next.ID) {
			q := q
			next = &q
		}
	}
	if next == nil {
		return domain.Question{}, domain.ErrNoQuestions
	}
	return cloneQuestion(*next), nil
}

func (s *QuestionStore) List(_ context.Context) ([]domain.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.db.questions))
	for _, q := range s.db.questions {
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *QuestionStore) Create(_ context.Context, q domain.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) Update(_ context.Context, q domain.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.db.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	for _, r := range s.db.responses {
		if r.QuestionID == id {
			return domain.ErrQuestionInUse
		}
	}
	delete(s.db.questions, id)
	return nil
}

func (s *QuestionStore) Count(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.questions), nil
}

func (s *QuestionStore) CountActive(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, q := range s.db.questions {
		if q.Active {
			n++
		}
	}
	return n, nil
}

// ResponseStore is an in-memory implementation of app.ResponseRepository.
type ResponseStore struct{ db *DB }

func (s *ResponseStore) Record(_ context.Context, r domain.Response) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[r.UserID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	key := answerKey{userID: r.UserID, questionID: r.QuestionID}
	if _, dup := s.db.answered[key]; dup {
		return 0, domain.ErrAlreadyAnswered
	}
	s.db.answered[key] = struct{}{}
	s.db.responses = append(s.db.responses, r)
	u.TotalScore += r.Points
	s.db.users[r.UserID] = u
	return u.TotalScore, nil
}

func (s *ResponseStore) HasAnswered(_ context.Context, userID, questionID string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	_, ok := s.db.answered[answerKey{userID: userID, questionID: questionID}]
	return ok, nil
}

func (s *ResponseStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.Response, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []domain.Response
	for _, r := range s.db.responses {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AnsweredAt.After(out[j].AnsweredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ResponseStore) ListSince(_ context.Context, since time.Time) ([]domain.Response, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.since(since), nil
}

func (s *ResponseStore) AggregateSince(_ context.Context, since time.Time) ([]domain.UserAggregate, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	byUser := make(map[string]*domain.UserAggregate)
	var order []string
	for _, r := range s.since(since) {
		agg, ok := byUser[r.UserID]
		if !ok {
			agg = &domain.UserAggregate{UserID: r.UserID, Earliest: r.AnsweredAt}
			byUser[r.UserID] = agg
			order = append(order, r.UserID)
		}
		agg.Points += r.Points
		agg.Answered++
	}
	out := make([]domain.UserAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	return out, nil
}

func (s *ResponseStore) CountSince(_ context.Context, since time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.since(since)), nil
}

// since returns responses at or after t, oldest first. Caller holds the lock.
func (s *ResponseStore) since(t time.Time) []domain.Response {
	out := make([]domain.Response, 0, len(s.db.responses))
	for _, r := range s.db.responses {
		if !r.AnsweredAt.Before(t) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AnsweredAt.Before(out[j].AnsweredAt) })
	return out
}

func cloneUser(u domain.User) domain.User {
	u.Rank = copyRank(u.Rank)
	return u
}

func copyRank(rank *int) *int {
	if rank == nil {
		return nil
	}
	r := *rank
	return &r
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}
