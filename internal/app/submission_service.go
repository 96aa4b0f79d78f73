package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/scoring"
)

// SubmissionService records answers. It is the only writer of responses and total scores.
type SubmissionService struct {
	users     *UserService
	questions QuestionRepository
	responses ResponseRepository
	ranker    Ranker
	logger    *slog.Logger
	now       func() time.Time
}

func NewSubmissionService(users *UserService, questions QuestionRepository, responses ResponseRepository, ranker Ranker, logger *slog.Logger) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		users:     users,
		questions: questions,
		responses: responses,
		ranker:    ranker,
		logger:    logger,
		now:       time.Now,
	}
}

// NewSubmissionServiceWithClock is test-only for deterministic timestamps.
func NewSubmissionServiceWithClock(users *UserService, questions QuestionRepository, responses ResponseRepository, ranker Ranker, now func() time.Time) *SubmissionService {
	s := NewSubmissionService(users, questions, responses, ranker, nil)
	s.now = now
	return s
}

// Submit scores and stores one answer, then refreshes ranks on a best-effort basis.
func (s *SubmissionService) Submit(ctx context.Context, id domain.Identity, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if id.IsZero() {
		return domain.AnswerResult{}, domain.ErrUnauthenticated
	}
	if err := validateStruct(sub); err != nil {
		return domain.AnswerResult{}, err
	}

	user, err := s.users.Ensure(ctx, id)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	question, err := s.questions.Get(ctx, sub.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !question.Active {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}

	// Cheap early rejection; the store's unique constraint is what actually enforces this.
	answered, err := s.responses.HasAnswered(ctx, user.ID, question.ID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if answered {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	answer, correct, err := judge(question, sub)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	latency := scoring.ClampLatency(sub.LatencyMs)
	points := scoring.Score(correct, latency)

	total, err := s.responses.Record(ctx, domain.Response{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		QuestionID: question.ID,
		Answer:     answer,
		Correct:    correct,
		LatencyMs:  latency,
		Points:     points,
		AnsweredAt: s.now(),
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}

	if s.ranker != nil {
		if _, err := s.ranker.Recompute(ctx); err != nil {
			s.logger.Warn("rank recomputation failed", slog.String("user", user.ID), slog.Any("err", err))
		}
	}

	return domain.AnswerResult{
		QuestionID:    question.ID,
		Correct:       correct,
		Points:        points,
		CorrectAnswer: question.CorrectAnswer(),
		TotalScore:    total,
	}, nil
}

// judge resolves the submitted option and its correctness. A stable option id
// is preferred; free text is compared by exact equality with the correct
// option's text.
func judge(q domain.Question, sub domain.AnswerSubmission) (string, bool, error) {
	if sub.OptionID != "" {
		opt, ok := q.Option(sub.OptionID)
		if !ok {
			return "", false, domain.InvalidInput("option %q does not belong to question %q", sub.OptionID, q.ID)
		}
		return opt.Text, opt.Correct, nil
	}
	return sub.Answer, sub.Answer == q.CorrectAnswer(), nil
}
