package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "hemnet:property:"

// PropertyStorageAdapter хранит PropertyRecord как JSON под ключом hemnet:property:<PropertyID>.
type PropertyStorageAdapter struct {
	rdb *goredis.Client
}

// NewPropertyStorageAdapter создает адаптер поверх готового клиента.
func NewPropertyStorageAdapter(rdb *goredis.Client) *PropertyStorageAdapter {
	return &PropertyStorageAdapter{rdb: rdb}
}

func key(propertyID string) string {
	return keyPrefix + propertyID
}

// ExistingPropertyIDs проверяет все ключи одним MGET.
func (a *PropertyStorageAdapter) ExistingPropertyIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	values, err := a.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewError(domain.KindStoreQuery, "mget properties", err)
	}
	if len(values) != len(ids) {
		return nil, domain.Errorf(domain.KindStoreQuery, "mget properties", "expected %d values, got %d", len(ids), len(values))
	}
	for i, v := range values {
		if v != nil {
			existing[ids[i]] = struct{}{}
		}
	}
	return existing, nil
}

func (a *PropertyStorageAdapter) Save(ctx context.Context, record domain.PropertyRecord) error {
	op := "set property " + record.PropertyID
	if record.ImageIDs == nil {
		record.ImageIDs = []string{}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return domain.NewError(domain.KindStoreWrite, op, err)
	}
	if err := a.rdb.Set(ctx, key(record.PropertyID), payload, 0).Err(); err != nil {
		return domain.NewError(domain.KindStoreWrite, op, err)
	}
	return nil
}

func (a *PropertyStorageAdapter) Get(ctx context.Context, propertyID string) (*domain.PropertyRecord, error) {
	op := "get property " + propertyID

	payload, err := a.rdb.Get(ctx, key(propertyID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, domain.NewError(domain.KindStoreRead, op, err)
	}

	var record domain.PropertyRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, domain.NewError(domain.KindStoreRead, op, fmt.Errorf("corrupt record: %w", err))
	}
	return &record, nil
}
