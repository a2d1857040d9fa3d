package port

import (
	"context"
	"hemnet-images/internal/core/domain"
	"time"
)

// RunJournalPort определяет контракт для хранения истории запусков конвейера.
type RunJournalPort interface {
	RecordRun(ctx context.Context, source string, stats domain.RunStats) error
	LastSuccessfulRun(ctx context.Context, source string) (time.Time, error)
}
