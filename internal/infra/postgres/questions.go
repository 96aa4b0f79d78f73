package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-rank-service/internal/domain"
)

const questionColumns = `id, prompt, options, difficulty, points, category, active, created_at, updated_at`

// QuestionStore implements app.QuestionRepository. Options are stored as JSONB.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	if err := row.Scan(&q.ID, &q.Prompt, &raw, &q.Difficulty, &q.Points, &q.Category, &q.Active, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuestionStore) Get(ctx context.Context, id string) (domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id))
	if isNoRows(err) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.StoreError("get question", err)
	}
	return q, nil
}

func (s *QuestionStore) NextUnanswered(ctx context.Context, userID string) (domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `
		SELECT `+questionColumns+` FROM questions q
		WHERE q.active
		  AND NOT EXISTS (SELECT 1 FROM responses r WHERE r.question_id = q.id AND r.user_id = $1)
		ORDER BY q.created_at, q.id
		LIMIT 1`, userID))
	if isNoRows(err) {
		return domain.Question{}, domain.ErrNoQuestions
	}
	if err != nil {
		return domain.Question{}, domain.StoreError("next question", err)
	}
	return q, nil
}

func (s *QuestionStore) List(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, domain.StoreError("list questions", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, domain.StoreError("scan question", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list questions", err)
	}
	return out, nil
}

func (s *QuestionStore) Create(ctx context.Context, q domain.Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.Prompt, opts, q.Difficulty, q.Points, q.Category, q.Active, q.CreatedAt, q.UpdatedAt)
	if pgCode(err) == uniqueViolation {
		return domain.InvalidInput("question %q already exists", q.ID)
	}
	if err != nil {
		return domain.StoreError("create question", err)
	}
	return nil
}

func (s *QuestionStore) Update(ctx context.Context, q domain.Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions
		SET prompt=$2, options=$3, difficulty=$4, points=$5, category=$6, active=$7, updated_at=$8
		WHERE id=$1`,
		q.ID, q.Prompt, opts, q.Difficulty, q.Points, q.Category, q.Active, q.UpdatedAt)
	if err != nil {
		return domain.StoreError("update question", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// Delete relies on the responses foreign key to refuse questions that were answered.
func (s *QuestionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if pgCode(err) == foreignKeyViolation {
		return domain.ErrQuestionInUse
	}
	if err != nil {
		return domain.StoreError("delete question", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *QuestionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM questions`).Scan(&n); err != nil {
		return 0, domain.StoreError("count questions", err)
	}
	return n, nil
}

func (s *QuestionStore) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM questions WHERE active`).Scan(&n); err != nil {
		return 0, domain.StoreError("count active questions", err)
	}
	return n, nil
}
