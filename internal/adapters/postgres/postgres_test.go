package postgres

import (
	"context"
	"hemnet-images/internal/core/domain"
	pgclient "hemnet-images/pkg/postgres"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты ходят в настоящую базу и пропускаются без HEMNET_TEST_DATABASE_URL.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("HEMNET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HEMNET_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgclient.NewClient(ctx, pgclient.Config{DatabaseURL: url, PingTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE hemnet_properties, hemnet_runs`)
	require.NoError(t, err)
	return pool
}

func TestPostgresStorageAdapter_RoundTrip(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	adapter, err := NewPostgresStorageAdapter(pool)
	require.NoError(t, err)

	record := domain.PropertyRecord{PropertyID: "abc123", ListingID: 42, StreetAddress: "Storgatan 1", ImageIDs: []string{"b", "a"}}
	require.NoError(t, adapter.Save(ctx, record))

	existing, err := adapter.ExistingPropertyIDs(ctx, []string{"abc123", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"abc123": {}}, existing)

	got, err := adapter.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, record, *got)

	record.ImageIDs = []string{"c"}
	require.NoError(t, adapter.Save(ctx, record))
	got, err = adapter.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.ImageIDs)

	_, err = adapter.Get(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestPostgresRunJournal(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	journal, err := NewPostgresRunJournal(pool)
	require.NoError(t, err)

	last, err := journal.LastSuccessfulRun(ctx, "hemnet")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	ok := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, journal.RecordRun(ctx, "hemnet", domain.RunStats{StartedAt: ok.Add(-time.Minute), FinishedAt: ok, Ingested: 2}))
	require.NoError(t, journal.RecordRun(ctx, "hemnet", domain.RunStats{
		StartedAt: ok, FinishedAt: ok.Add(time.Hour), RunError: "extraction: search_key marker not found",
	}))

	last, err = journal.LastSuccessfulRun(ctx, "hemnet")
	require.NoError(t, err)
	assert.True(t, ok.Equal(last))
}
