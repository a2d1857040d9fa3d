package port

import (
	"context"
	"hemnet-images/internal/core/domain"
)

// PropertyStoragePort определяет контракт для хранилища обработанных объектов.
// Ключ записи - PropertyID.
type PropertyStoragePort interface {
	// ExistingPropertyIDs возвращает подмножество ids, которое уже есть в хранилище.
	// Частичный сбой пакетного запроса должен возвращаться как ошибка.
	ExistingPropertyIDs(ctx context.Context, ids []string) (map[string]struct{}, error)

	// Save перезаписывает запись безусловно.
	Save(ctx context.Context, record domain.PropertyRecord) error

	// Get возвращает domain.ErrPropertyNotFound, если записи нет.
	Get(ctx context.Context, propertyID string) (*domain.PropertyRecord, error)
}
