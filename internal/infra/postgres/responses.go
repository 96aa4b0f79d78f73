package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-rank-service/internal/domain"
)

const responseColumns = `id, user_id, question_id, answer, correct, latency_ms, points, answered_at`

// ResponseStore implements app.ResponseRepository.
type ResponseStore struct {
	pool *pgxpool.Pool
}

func scanResponse(row pgx.Row) (domain.Response, error) {
	var r domain.Response
	err := row.Scan(&r.ID, &r.UserID, &r.QuestionID, &r.Answer, &r.Correct, &r.LatencyMs, &r.Points, &r.AnsweredAt)
	return r, err
}

// Record inserts r and adds its points to the user's total in one transaction.
// The (user_id, question_id) unique constraint turns a concurrent duplicate
// into domain.ErrAlreadyAnswered with nothing written.
func (s *ResponseStore) Record(ctx context.Context, r domain.Response) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, domain.StoreError("begin record", err)
	}
	defer rollback(ctx, tx)

	_, err = tx.Exec(ctx, `
		INSERT INTO responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.QuestionID, r.Answer, r.Correct, r.LatencyMs, r.Points, r.AnsweredAt)
	switch pgCode(err) {
	case "":
	case uniqueViolation:
		return 0, domain.ErrAlreadyAnswered
	case foreignKeyViolation:
		if pgConstraint(err) == "responses_question_id_fkey" {
			return 0, domain.ErrQuestionNotFound
		}
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, domain.StoreError("insert response", err)
	}

	var total int
	err = tx.QueryRow(ctx, `
		UPDATE users SET total_score = total_score + $2
		WHERE id=$1
		RETURNING total_score`, r.UserID, r.Points).Scan(&total)
	if isNoRows(err) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, domain.StoreError("increment score", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if pgCode(err) == uniqueViolation {
			return 0, domain.ErrAlreadyAnswered
		}
		return 0, domain.StoreError("commit record", err)
	}
	return total, nil
}

func (s *ResponseStore) HasAnswered(ctx context.Context, userID, questionID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM responses WHERE user_id=$1 AND question_id=$2)`,
		userID, questionID).Scan(&ok)
	if err != nil {
		return false, domain.StoreError("has answered", err)
	}
	return ok, nil
}

func (s *ResponseStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM responses WHERE user_id=$1 ORDER BY answered_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.list(ctx, "list user responses", query, args...)
}

func (s *ResponseStore) ListSince(ctx context.Context, since time.Time) ([]domain.Response, error) {
	return s.list(ctx, "list responses",
		`SELECT `+responseColumns+` FROM responses WHERE answered_at >= $1 ORDER BY answered_at, id`, since)
}

func (s *ResponseStore) AggregateSince(ctx context.Context, since time.Time) ([]domain.UserAggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, COALESCE(SUM(points), 0), count(*), MIN(answered_at)
		FROM responses
		WHERE answered_at >= $1
		GROUP BY user_id
		ORDER BY user_id`, since)
	if err != nil {
		return nil, domain.StoreError("aggregate responses", err)
	}
	defer rows.Close()

	var out []domain.UserAggregate
	for rows.Next() {
		var a domain.UserAggregate
		if err := rows.Scan(&a.UserID, &a.Points, &a.Answered, &a.Earliest); err != nil {
			return nil, domain.StoreError("scan aggregate", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("aggregate responses", err)
	}
	return out, nil
}

func (s *ResponseStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM responses WHERE answered_at >= $1`, since).Scan(&n); err != nil {
		return 0, domain.StoreError("count responses", err)
	}
	return n, nil
}

func (s *ResponseStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Response, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError(op, err)
	}
	defer rows.Close()

	var out []domain.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, domain.StoreError(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError(op, err)
	}
	return out, nil
}
