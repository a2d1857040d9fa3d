package port

import (
	"context"
	"hemnet-images/internal/core/domain"
)

// PropertyEventsPort публикует событие о том, что объект полностью загружен.
type PropertyEventsPort interface {
	PublishIngested(ctx context.Context, record domain.PropertyRecord) error
}

// EventListenerPort - входящий адаптер, который слушает внешний источник событий.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
