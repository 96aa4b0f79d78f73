package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"trivia-rank-service/internal/infra/postgres/migrations"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// DB groups the table stores sharing one pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Users returns the app.UserRepository backed by the users table.
func (db *DB) Users() *UserStore { return &UserStore{pool: db.pool} }

// Questions returns the app.QuestionRepository backed by the questions table.
func (db *DB) Questions() *QuestionStore { return &QuestionStore{pool: db.pool} }

// Responses returns the app.ResponseRepository backed by the responses table.
func (db *DB) Responses() *ResponseStore { return &ResponseStore{pool: db.pool} }

// Migrate applies the bundled migrations to the database at dsn and returns
// the applied group, empty when the schema was already current.
func Migrate(ctx context.Context, dsn string) (*migrate.MigrationGroup, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}
	return migrator.Migrate(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}
