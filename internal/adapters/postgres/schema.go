package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS hemnet_properties (
		property_id    TEXT PRIMARY KEY,
		listing_id     BIGINT NOT NULL,
		street_address TEXT NOT NULL DEFAULT '',
		image_ids      TEXT[] NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS hemnet_runs (
		id          BIGSERIAL PRIMARY KEY,
		source      TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		discovered  INT NOT NULL,
		new         INT NOT NULL,
		ingested    INT NOT NULL,
		skipped     INT NOT NULL,
		failed      INT NOT NULL,
		images      INT NOT NULL,
		run_error   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hemnet_runs_source_finished ON hemnet_runs(source, finished_at DESC)`,
}

// Migrate создает таблицы, если их еще нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
