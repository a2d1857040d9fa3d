package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/adapters/snsevent"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/usecase"
	"hemnet-images/pkg/rabbitmq/rabbitmq_consumer"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationHandler - use case, который отвечает на входящее письмо.
type NotificationHandler interface {
	Execute(ctx context.Context, msg domain.InboundMessage) (*usecase.SendResult, error)
}

// NotificationConsumerAdapter - входящий адаптер: слушает очередь с уведомлениями SES
// и вызывает use case для каждого письма.
type NotificationConsumerAdapter struct {
	consumer *rabbitmq_consumer.Consumer
	useCase  NotificationHandler
}

// NewNotificationConsumerAdapter создает адаптер вместе с потребителем.
func NewNotificationConsumerAdapter(consumerCfg rabbitmq_consumer.ConsumerConfig, useCase NotificationHandler) (*NotificationConsumerAdapter, error) {
	adapter := &NotificationConsumerAdapter{useCase: useCase}

	consumer, err := rabbitmq_consumer.NewConsumer(consumerCfg, adapter.messageHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for notifications: %w", err)
	}
	adapter.consumer = consumer
	return adapter, nil
}

// messageHandler не просит повторной доставки: все ошибки письма окончательны.
// Исключение - остановка приложения посреди обработки.
func (a *NotificationConsumerAdapter) messageHandler(ctx context.Context, d amqp.Delivery) (ack bool, requeueOnError bool, err error) {
	msg, err := snsevent.DecodeMessage(d.Body)
	if err != nil {
		return false, false, fmt.Errorf("decode notification: %w", err)
	}

	result, err := a.useCase.Execute(ctx, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, true, err
		}
		return false, false, err
	}

	slog.InfoContext(ctx, "NotificationConsumer: notification handled",
		slog.Uint64("delivery_tag", d.DeliveryTag),
		slog.String("property_id", result.PropertyID),
	)
	return true, false, nil
}

// Start реализует EventListenerPort
func (a *NotificationConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close реализует EventListenerPort
func (a *NotificationConsumerAdapter) Close() error {
	return a.consumer.Close()
}
