package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/scoring"
)

// QuestionInput is the administrator-facing shape of a question. The correct
// answer is named by its text and must match one of the options exactly.
type QuestionInput struct {
	Prompt        string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"min=2,max=4,unique,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Difficulty    string   `json:"difficulty" validate:"oneof=easy medium hard"`
	Points        int      `json:"points" validate:"gte=1"`
	Category      string   `json:"category"`
	Active        bool     `json:"isActive"`
}

// QuestionService serves questions to players and lets administrators manage the bank.
type QuestionService struct {
	questions QuestionRepository
	users     *UserService
	authz     Authorizer
	now       func() time.Time
}

func NewQuestionService(questions QuestionRepository, users *UserService, authz Authorizer) *QuestionService {
	return &QuestionService{questions: questions, users: users, authz: authz, now: time.Now}
}

// Next returns the oldest active question the caller has not answered yet.
func (s *QuestionService) Next(ctx context.Context, id domain.Identity) (domain.PublicQuestion, error) {
	user, err := s.users.Ensure(ctx, id)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	q, err := s.questions.NextUnanswered(ctx, user.ID)
	if err != nil {
		return domain.PublicQuestion{}, err
	}
	return publicQuestion(q), nil
}

// List returns every question, newest first.
func (s *QuestionService) List(ctx context.Context, id domain.Identity) ([]domain.Question, error) {
	if err := requirePrivileged(s.authz, id); err != nil {
		return nil, err
	}
	return s.questions.List(ctx)
}

// Create validates in and adds it to the bank.
func (s *QuestionService) Create(ctx context.Context, id domain.Identity, in QuestionInput) (domain.Question, error) {
	if err := requirePrivileged(s.authz, id); err != nil {
		return domain.Question{}, err
	}
	if err := validateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	now := s.now()
	q := domain.Question{
		ID:         uuid.NewString(),
		Prompt:     in.Prompt,
		Options:    buildOptions(in, nil),
		Difficulty: in.Difficulty,
		Points:     in.Points,
		Category:   in.Category,
		Active:     in.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// Update replaces the question's content. Options whose text is unchanged keep
// their ids so stored responses stay attributable.
func (s *QuestionService) Update(ctx context.Context, id domain.Identity, questionID string, in QuestionInput) (domain.Question, error) {
	if err := requirePrivileged(s.authz, id); err != nil {
		return domain.Question{}, err
	}
	if err := validateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	q.Prompt = in.Prompt
	q.Options = buildOptions(in, q.Options)
	q.Difficulty = in.Difficulty
	q.Points = in.Points
	q.Category = in.Category
	q.Active = in.Active
	q.UpdatedAt = s.now()
	if err := s.questions.Update(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// Delete removes a question that nobody has answered yet.
func (s *QuestionService) Delete(ctx context.Context, id domain.Identity, questionID string) error {
	if err := requirePrivileged(s.authz, id); err != nil {
		return err
	}
	return s.questions.Delete(ctx, questionID)
}

func validateQuestion(in QuestionInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	for _, opt := range in.Options {
		if opt == in.CorrectAnswer {
			return nil
		}
	}
	return domain.InvalidInput("correct answer %q is not one of the options", in.CorrectAnswer)
}

func buildOptions(in QuestionInput, previous []domain.Option) []domain.Option {
	ids := make(map[string]string, len(previous))
	for _, opt := range previous {
		ids[opt.Text] = opt.ID
	}
	opts := make([]domain.Option, 0, len(in.Options))
	for _, text := range in.Options {
		id, ok := ids[text]
		if !ok {
			id = uuid.NewString()
		}
		opts = append(opts, domain.Option{ID: id, Text: text, Correct: text == in.CorrectAnswer})
	}
	return opts
}

func publicQuestion(q domain.Question) domain.PublicQuestion {
	opts := make([]domain.PublicOption, 0, len(q.Options))
	for _, opt := range q.Options {
		opts = append(opts, domain.PublicOption{ID: opt.ID, Text: opt.Text})
	}
	return domain.PublicQuestion{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    opts,
		Difficulty: q.Difficulty,
		Points:     q.Points,
		Category:   q.Category,
		DurationMs: scoring.QuestionDurationMs,
	}
}
