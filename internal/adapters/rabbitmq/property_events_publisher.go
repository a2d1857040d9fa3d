package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher - то, что адаптеру нужно от rabbitmq_producer.Publisher.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// PropertyIngestedEvent - тело события о сохраненном объекте.
type PropertyIngestedEvent struct {
	PropertyID    string    `json:"property_id"`
	ListingID     int64     `json:"listing_id"`
	StreetAddress string    `json:"street_address"`
	ImageIDs      []string  `json:"image_ids"`
	IngestedAt    time.Time `json:"ingested_at"`
}

// PropertyEventsPublisher публикует событие после записи каждого PropertyRecord.
type PropertyEventsPublisher struct {
	producer       Publisher
	routingKey     string
	publishTimeout time.Duration
	nowFunc        func() time.Time
}

// NewPropertyEventsPublisher создает новый экземпляр
func NewPropertyEventsPublisher(producer Publisher, routingKey string) (*PropertyEventsPublisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("routingKey cannot be empty")
	}
	return &PropertyEventsPublisher{
		producer:       producer,
		routingKey:     routingKey,
		publishTimeout: 10 * time.Second,
		nowFunc:        time.Now,
	}, nil
}

// PublishIngested реализует PropertyEventsPort.
func (a *PropertyEventsPublisher) PublishIngested(ctx context.Context, record domain.PropertyRecord) error {
	now := a.nowFunc().UTC()
	body, err := json.Marshal(PropertyIngestedEvent{
		PropertyID:    record.PropertyID,
		ListingID:     record.ListingID,
		StreetAddress: record.StreetAddress,
		ImageIDs:      record.ImageIDs,
		IngestedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ingested event for property %s: %w", record.PropertyID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		MessageId:    record.PropertyID,
	}

	publishCtx, cancel := context.WithTimeout(ctx, a.publishTimeout)
	defer cancel()

	slog.DebugContext(ctx, "PropertyEventsPublisher: publishing ingested event",
		slog.String("property_id", record.PropertyID),
		slog.String("routing_key", a.routingKey),
	)
	return a.producer.Publish(publishCtx, a.routingKey, msg)
}
