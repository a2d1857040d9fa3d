package rabbitmq_consumer

import (
	"context"
	"fmt"
	"hemnet-images/pkg/rabbitmq/rabbitmq_common"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение.
// ack=false без ошибки - сообщение отклоняется без повторной постановки в очередь.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) (ack bool, requeueOnError bool, err error)

// ConsumerConfig конфигурация для потребителя
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName    string
	DeclareQueue bool
	DurableQueue bool
	QueueArgs    amqp.Table // например, x-dead-letter-exchange

	// Если задан, очередь привязывается к обменнику
	ExchangeName    string
	ExchangeType    string
	DeclareExchange bool
	RoutingKey      string

	PrefetchCount int // 0 - без ограничений
	// Сколько сообщений обрабатывается одновременно, минимум 1
	MaxInFlight int
	ConsumerTag string
}

// Consumer читает очередь и раздает сообщения обработчику.
type Consumer struct {
	config     ConsumerConfig
	handler    MessageHandler
	connection *amqp.Connection
	channel    *amqp.Channel
	queueName  string

	wg sync.WaitGroup
}

// NewConsumer подключается к брокеру и настраивает очередь.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	if err := validate(cfg, handler); err != nil {
		return nil, err
	}
	c := &Consumer{config: cfg, handler: handler}
	if err := c.connectAndSetup(); err != nil {
		return nil, fmt.Errorf("consumer: initial connection and setup failed: %w", err)
	}
	return c, nil
}

func validate(cfg ConsumerConfig, handler MessageHandler) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid base config: %w", err)
	}
	if !cfg.DeclareQueue && cfg.QueueName == "" {
		return fmt.Errorf("consumer: queue name is required if DeclareQueue is false")
	}
	if cfg.DeclareExchange && cfg.ExchangeType == "" {
		return fmt.Errorf("consumer: exchange type is required if declaring an exchange for binding")
	}
	if handler == nil {
		return fmt.Errorf("consumer: message handler is required")
	}
	return nil
}

func (c *Consumer) connectAndSetup() error {
	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ at %s: %w", c.config.RedactedURL(), err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if c.config.PrefetchCount > 0 {
		if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return fail(fmt.Errorf("failed to set QoS: %w", err))
		}
	}

	c.queueName = c.config.QueueName
	if c.config.DeclareQueue {
		q, err := ch.QueueDeclare(c.config.QueueName, c.config.DurableQueue, false, false, false, c.config.QueueArgs)
		if err != nil {
			return fail(fmt.Errorf("failed to declare queue '%s': %w", c.config.QueueName, err))
		}
		c.queueName = q.Name // имя могло быть сгенерировано сервером
	}

	if c.config.DeclareExchange {
		if err := ch.ExchangeDeclare(c.config.ExchangeName, c.config.ExchangeType, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("failed to declare exchange '%s': %w", c.config.ExchangeName, err))
		}
	}
	if c.config.ExchangeName != "" {
		if err := ch.QueueBind(c.queueName, c.config.RoutingKey, c.config.ExchangeName, false, nil); err != nil {
			return fail(fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.queueName, c.config.ExchangeName, err))
		}
	}

	c.connection = conn
	c.channel = ch
	slog.Info("Consumer: setup complete", slog.String("queue", c.queueName))
	return nil
}

// StartConsuming блокируется до отмены ctx или закрытия соединения брокером.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}

	msgs, err := c.channel.Consume(c.queueName, c.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer: failed to register a consumer on queue '%s': %w", c.queueName, err)
	}
	slog.Info("Consumer: waiting for messages", slog.String("queue", c.queueName))

	// счетчик держит сам диспетчер, поэтому Add обработчиков никогда не
	// происходит при нулевом счетчике одновременно с Wait в Close
	c.wg.Add(1)
	go c.dispatch(ctx, msgs)

	notifyClose := c.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		return nil
	case err := <-notifyClose:
		if err == nil {
			return nil
		}
		return err
	}
}

// dispatch раздает сообщения обработчикам, не больше MaxInFlight одновременно.
// Завершается при отмене ctx или закрытии канала доставок.
func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slots := make(chan struct{}, max(c.config.MaxInFlight, 1))
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				slog.Warn("Consumer: deliveries channel closed", slog.String("queue", c.queueName))
				return
			}
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				// не начинаем новую работу после команды на остановку
				_ = d.Nack(false, true)
				return
			}
			c.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer c.wg.Done()
				defer func() { <-slots }()
				c.process(ctx, delivery)
			}(d)
		}
	}
}

// process вызывает обработчик и подтверждает или отклоняет сообщение по его ответу.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	ack, requeueOnError, err := c.handler(ctx, d)

	switch {
	case err != nil:
		slog.Error("Consumer: error processing message",
			slog.Uint64("delivery_tag", d.DeliveryTag),
			slog.Bool("requeue", requeueOnError),
			slog.Any("error", err),
		)
		if nackErr := d.Nack(false, requeueOnError); nackErr != nil {
			slog.Error("Consumer: error sending nack", slog.Any("error", nackErr))
		}
	case ack:
		if ackErr := d.Ack(false); ackErr != nil {
			slog.Error("Consumer: error sending ack", slog.Any("error", ackErr))
		}
	default:
		if nackErr := d.Nack(false, false); nackErr != nil {
			slog.Error("Consumer: error sending nack", slog.Any("error", nackErr))
		}
	}
}

// Close ждет выхода диспетчера и всех обработчиков, затем закрывает канал и соединение.
// Вызывать после отмены контекста, переданного в StartConsuming.
func (c *Consumer) Close() error {
	c.wg.Wait()

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
		c.channel = nil
	}
	if c.connection != nil {
		if err := c.connection.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.connection = nil
	}
	slog.Info("Consumer: closed", slog.String("queue", c.queueName))
	return firstErr
}
