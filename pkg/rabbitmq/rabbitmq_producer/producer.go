package rabbitmq_producer

import (
	"context"
	"fmt"
	"hemnet-images/pkg/rabbitmq/rabbitmq_common"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig конфигурация для производителя
type PublisherConfig struct {
	rabbitmq_common.Config
	ExchangeName string // пустая строка - default exchange
	ExchangeType string // direct, fanout, topic, headers
	Durable      bool

	// Если false, производитель полагается на то, что обменник уже существует
	DeclareExchangeIfMissing bool
}

// Publisher держит одно соединение и один канал.
type Publisher struct {
	config     PublisherConfig
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewPublisher подключается к брокеру и при необходимости объявляет обменник.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base config: %w", err)
	}
	if cfg.DeclareExchangeIfMissing && (cfg.ExchangeName == "" || cfg.ExchangeType == "") {
		return nil, fmt.Errorf("producer: exchange name and type are required to declare an exchange")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("producer: failed to dial RabbitMQ at %s: %w", cfg.RedactedURL(), err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("producer: failed to open a channel: %w", err)
	}

	if cfg.DeclareExchangeIfMissing {
		slog.Info("Producer: declaring exchange",
			slog.String("exchange", cfg.ExchangeName),
			slog.String("type", cfg.ExchangeType),
			slog.Bool("durable", cfg.Durable),
		)
		err = ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.Durable, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("producer: failed to declare exchange '%s': %w", cfg.ExchangeName, err)
		}
	}

	slog.Info("Producer: connected", slog.String("url", cfg.RedactedURL()))
	return &Publisher{config: cfg, connection: conn, channel: ch}, nil
}

// Publish публикует сообщение в обменник из конфигурации.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if p.channel == nil || p.connection == nil || p.connection.IsClosed() {
		return fmt.Errorf("producer: not connected or channel/connection is closed")
	}

	err := p.channel.PublishWithContext(ctx, p.config.ExchangeName, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("producer: failed to publish message: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение, возвращает первую ошибку.
func (p *Publisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.connection = nil
	}
	slog.Info("Producer: closed")
	return firstErr
}
