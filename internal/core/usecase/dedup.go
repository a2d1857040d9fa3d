package usecase

import (
	"context"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/port"
	"log/slog"
)

// FilterUnseen убирает из кандидатов все объекты, которые уже есть в хранилище.
// Ошибка хранилища возвращается наверх: считать "все новые" при сбое нельзя,
// иначе уже загруженные объекты будут скачаны повторно.
func FilterUnseen(ctx context.Context, storage port.PropertyStoragePort, candidates map[string]int64) (map[string]int64, error) {
	if len(candidates) == 0 {
		return map[string]int64{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for propertyID := range candidates {
		ids = append(ids, propertyID)
	}

	existing, err := storage.ExistingPropertyIDs(ctx, ids)
	if err != nil {
		return nil, domain.EnsureKind(err, domain.KindStoreQuery, "check existing properties")
	}

	unseen := make(map[string]int64, len(candidates))
	for propertyID, listingID := range candidates {
		if _, found := existing[propertyID]; found {
			continue
		}
		unseen[propertyID] = listingID
	}

	slog.InfoContext(ctx, "DedupFilter: filtered candidates",
		slog.Int("candidates", len(candidates)),
		slog.Int("existing", len(candidates)-len(unseen)),
		slog.Int("new", len(unseen)),
	)
	return unseen, nil
}
