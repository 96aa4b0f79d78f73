package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS responses_answered_at_idx ON responses (answered_at);
				CREATE INDEX IF NOT EXISTS questions_active_created_idx ON questions (active, created_at)`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP INDEX IF EXISTS questions_active_created_idx;
				DROP INDEX IF EXISTS responses_answered_at_idx`)
			return err
		},
	)
}
