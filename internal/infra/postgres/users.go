package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-rank-service/internal/domain"
)

const userColumns = `id, external_id, email, display_name, total_score, rank, created_at`

// UserStore implements app.UserRepository.
type UserStore struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.DisplayName, &u.TotalScore, &u.Rank, &u.CreatedAt)
	return u, err
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if isNoRows(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.StoreError("get user", err)
	}
	return u, nil
}

func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID))
	if isNoRows(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.StoreError("get user by external id", err)
	}
	return u, nil
}

// Create inserts u unless its external id is taken, in which case the existing
// row wins. Concurrent first contacts therefore converge on one user.
func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	created, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (id, external_id, email, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING `+userColumns,
		u.ID, u.ExternalID, u.Email, u.DisplayName, u.CreatedAt))
	if isNoRows(err) {
		return s.GetByExternalID(ctx, u.ExternalID)
	}
	if err != nil {
		return domain.User{}, domain.StoreError("create user", err)
	}
	return created, nil
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, domain.StoreError("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.StoreError("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list users", err)
	}
	return users, nil
}

func (s *UserStore) SetRank(ctx context.Context, userID string, rank *int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET rank=$2 WHERE id=$1`, userID, rank)
	if err != nil {
		return domain.StoreError("set rank", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, domain.StoreError("count users", err)
	}
	return n, nil
}

func (s *UserStore) Reset(ctx context.Context, clearHistory bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StoreError("reset", err)
	}
	defer rollback(ctx, tx)

	if clearHistory {
		if _, err := tx.Exec(ctx, `DELETE FROM responses`); err != nil {
			return domain.StoreError("reset responses", err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET total_score=0, rank=NULL`); err != nil {
		return domain.StoreError("reset users", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.StoreError("reset", err)
	}
	return nil
}
