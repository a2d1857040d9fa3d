package postgres

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorageAdapter реализует PropertyStoragePort для PostgreSQL.
type PostgresStorageAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresStorageAdapter создает новый экземпляр адаптера.
func NewPostgresStorageAdapter(pool *pgxpool.Pool) (*PostgresStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresStorageAdapter{
		pool: pool,
	}, nil
}

// ExistingPropertyIDs - один запрос на весь набор ключей.
func (a *PostgresStorageAdapter) ExistingPropertyIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	const op = "select existing properties"

	rows, err := a.pool.Query(ctx, `SELECT property_id FROM hemnet_properties WHERE property_id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreQuery, op, err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domain.NewError(domain.KindStoreQuery, op, err)
	}

	existing := make(map[string]struct{}, len(found))
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// Save сохраняет запись. Повторная запись того же PropertyID перезаписывает ее (UPSERT).
func (a *PostgresStorageAdapter) Save(ctx context.Context, record domain.PropertyRecord) error {
	imageIDs := record.ImageIDs
	if imageIDs == nil {
		imageIDs = []string{}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO hemnet_properties (property_id, listing_id, street_address, image_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id) DO UPDATE SET
			listing_id     = EXCLUDED.listing_id,
			street_address = EXCLUDED.street_address,
			image_ids      = EXCLUDED.image_ids,
			updated_at     = NOW()`,
		record.PropertyID, record.ListingID, record.StreetAddress, imageIDs,
	)
	if err != nil {
		return domain.NewError(domain.KindStoreWrite, "upsert property "+record.PropertyID, err)
	}
	return nil
}

// Get возвращает domain.ErrPropertyNotFound, если записи нет.
func (a *PostgresStorageAdapter) Get(ctx context.Context, propertyID string) (*domain.PropertyRecord, error) {
	record := domain.PropertyRecord{PropertyID: propertyID}

	err := a.pool.QueryRow(ctx,
		`SELECT listing_id, street_address, image_ids FROM hemnet_properties WHERE property_id = $1`,
		propertyID,
	).Scan(&record.ListingID, &record.StreetAddress, &record.ImageIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, domain.NewError(domain.KindStoreRead, "select property "+propertyID, err)
	}
	return &record, nil
}
