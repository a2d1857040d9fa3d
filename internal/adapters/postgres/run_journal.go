package postgres

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRunJournal реализует RunJournalPort для PostgreSQL.
type PostgresRunJournal struct {
	dbPool *pgxpool.Pool
}

// NewPostgresRunJournal создает новый экземпляр PostgresRunJournal.
func NewPostgresRunJournal(dbPool *pgxpool.Pool) (*PostgresRunJournal, error) {
	if dbPool == nil {
		return nil, fmt.Errorf("postgres run journal: dbPool cannot be nil")
	}
	return &PostgresRunJournal{dbPool: dbPool}, nil
}

// RecordRun добавляет строку с итогами запуска.
func (r *PostgresRunJournal) RecordRun(ctx context.Context, source string, stats domain.RunStats) error {
	var runError *string
	if !stats.Succeeded() {
		runError = &stats.RunError
	}

	_, err := r.dbPool.Exec(ctx, `
		INSERT INTO hemnet_runs (source, started_at, finished_at, discovered, new, ingested, skipped, failed, images, run_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		source, stats.StartedAt, stats.FinishedAt,
		stats.Discovered, stats.New, stats.Ingested, stats.Skipped, stats.Failed, stats.Images,
		runError,
	)
	if err != nil {
		return fmt.Errorf("error recording run for source '%s': %w", source, err)
	}

	slog.DebugContext(ctx, "PostgresRunJournal: run recorded", slog.String("source", source))
	return nil
}

// LastSuccessfulRun возвращает время окончания последнего успешного запуска
// или нулевое время, если таких не было.
func (r *PostgresRunJournal) LastSuccessfulRun(ctx context.Context, source string) (time.Time, error) {
	var lastRun time.Time
	err := r.dbPool.QueryRow(ctx, `
		SELECT finished_at FROM hemnet_runs
		WHERE source = $1 AND run_error IS NULL
		ORDER BY finished_at DESC
		LIMIT 1`,
		source,
	).Scan(&lastRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("error querying last run for source '%s': %w", source, err)
	}
	return lastRun, nil
}
