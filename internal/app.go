package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	dynamodb_adapter "hemnet-images/internal/adapters/dynamodb"
	"hemnet-images/internal/adapters/filestorage"
	"hemnet-images/internal/adapters/hemnetfetcher"
	"hemnet-images/internal/adapters/httpapi"
	"hemnet-images/internal/adapters/mimemail"
	postgres_adapter "hemnet-images/internal/adapters/postgres"
	rabbitmq_adapter "hemnet-images/internal/adapters/rabbitmq"
	redis_adapter "hemnet-images/internal/adapters/redis"
	s3_adapter "hemnet-images/internal/adapters/s3"
	ses_adapter "hemnet-images/internal/adapters/ses"
	"hemnet-images/internal/adapters/snsevent"
	"hemnet-images/internal/configs"
	"hemnet-images/internal/constants"
	"hemnet-images/internal/core/port"
	"hemnet-images/internal/core/usecase"
	"hemnet-images/pkg/postgres"
	"hemnet-images/pkg/rabbitmq/rabbitmq_common"
	"hemnet-images/pkg/rabbitmq/rabbitmq_consumer"
	"hemnet-images/pkg/rabbitmq/rabbitmq_producer"
	"hemnet-images/pkg/redis"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

// App – структура приложения
type App struct {
	config *configs.AppConfig

	// Низкоуровневые ресурсы, закрываются при остановке. Любой может быть nil.
	dbPool        *pgxpool.Pool
	redisClient   *goredis.Client
	eventProducer *rabbitmq_producer.Publisher

	storage port.PropertyStoragePort

	// Use Case'ы. sendImagesUseCase есть только в режимах, где отправляется почта.
	ingestUseCase     *usecase.IngestListingsUseCase
	sendImagesUseCase *usecase.SendImagesUseCase

	// Входящий порт для режима consume
	notificationListener port.EventListenerPort
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp(ctx context.Context) (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}
	setupLogger(appConfig.Log)

	a := &App{config: appConfig}
	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	// 1. Инициализация низкоуровневых зависимостей
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if cfg.Database.URL != "" {
		a.dbPool, err = postgres.NewClient(ctx, postgres.Config{
			DatabaseURL: cfg.Database.URL,
			PingTimeout: cfg.Pipeline.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		slog.Info("App: connected to PostgreSQL pool")

		if cfg.Database.Migrate {
			if err := postgres_adapter.Migrate(ctx, a.dbPool); err != nil {
				return err
			}
		}
	}

	// 2. Исходящие адаптеры
	storage, err := a.newPropertyStorage(ctx, awsCfg)
	if err != nil {
		return err
	}
	a.storage = storage

	blobs, err := a.newBlobStorage(awsCfg)
	if err != nil {
		return err
	}
	slog.Info("App: storage adapters initialized",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("blobs", cfg.Storage.BlobBackend),
	)

	fetcher, err := hemnetfetcher.NewHemnetFetcherAdapter(hemnetfetcher.Options{
		SearchPageURL:  cfg.Hemnet.SearchPageURL,
		SearchAPIURL:   cfg.Hemnet.SearchAPIURL,
		GraphQLURL:     cfg.Hemnet.GraphQLURL,
		SubscriptionID: cfg.Hemnet.SubscriptionID,
		AllowedDomains: cfg.Hemnet.AllowedDomains,
		Parallelism:    cfg.Hemnet.Parallelism,
		RandomDelay:    cfg.Hemnet.RequestDelay,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create Hemnet fetcher: %w", err)
	}

	var propertyEvents port.PropertyEventsPort
	if cfg.RabbitMQ.URL != "" {
		a.eventProducer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
			ExchangeName:             cfg.RabbitMQ.Exchange,
			ExchangeType:             "direct",
			Durable:                  true,
			DeclareExchangeIfMissing: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create event producer: %w", err)
		}
		publisher, err := rabbitmq_adapter.NewPropertyEventsPublisher(a.eventProducer, constants.RoutingKeyPropertyIngested)
		if err != nil {
			return err
		}
		propertyEvents = publisher
		slog.Info("App: RabbitMQ event producer initialized")
	}

	var journal port.RunJournalPort
	if a.dbPool != nil {
		journal, err = postgres_adapter.NewPostgresRunJournal(a.dbPool)
		if err != nil {
			return err
		}
	}

	// 3. Use Case'ы
	images := usecase.NewImageIngestor(fetcher, blobs, cfg.Pipeline.ImageWorkers, cfg.Pipeline.RequestTimeout)
	a.ingestUseCase = usecase.NewIngestListingsUseCase(fetcher, storage, images, propertyEvents, journal, usecase.IngestOptions{
		SourceName:     constants.HemnetSourceName,
		ListingWorkers: cfg.Pipeline.ListingWorkers,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
	})

	if cfg.Mode != configs.ModeIngest {
		sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if cfg.AWS.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			}
		})
		a.sendImagesUseCase, err = usecase.NewSendImagesUseCase(
			storage,
			blobs,
			mimemail.NewComposer(),
			ses_adapter.NewMailSenderAdapter(sesClient),
			cfg.Mail.FromAddress,
			cfg.Mail.ToAddresses,
			cfg.Pipeline.RequestTimeout,
		)
		if err != nil {
			return err
		}
	}
	slog.Info("App: use cases initialized", slog.String("mode", cfg.Mode))

	// 4. Входящие адаптеры
	if cfg.Mode == configs.ModeConsume {
		listener, err := rabbitmq_adapter.NewNotificationConsumerAdapter(rabbitmq_consumer.ConsumerConfig{
			Config:          rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
			QueueName:       constants.QueueNotifications,
			DeclareQueue:    true,
			DurableQueue:    true,
			ExchangeName:    cfg.RabbitMQ.Exchange,
			ExchangeType:    "direct",
			DeclareExchange: true,
			RoutingKey:      constants.RoutingKeyNotification,
			PrefetchCount:   2,
			MaxInFlight:     2,
			ConsumerTag:     "hemnet-notification-sender",
		}, a.sendImagesUseCase)
		if err != nil {
			return err
		}
		a.notificationListener = listener
		slog.Info("App: notification listener initialized")
	}

	return nil
}

func (a *App) newPropertyStorage(ctx context.Context, awsCfg aws.Config) (port.PropertyStoragePort, error) {
	cfg := a.config
	switch cfg.Storage.Backend {
	case "postgres":
		return postgres_adapter.NewPostgresStorageAdapter(a.dbPool)
	case "redis":
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.redisClient = client
		return redis_adapter.NewPropertyStorageAdapter(client), nil
	default:
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.AWS.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			}
		})
		return dynamodb_adapter.NewPropertyStorageAdapter(client, cfg.Storage.TableName), nil
	}
}

func (a *App) newBlobStorage(awsCfg aws.Config) (port.BlobStoragePort, error) {
	cfg := a.config
	if cfg.Storage.BlobBackend == "filesystem" {
		return filestorage.NewBlobFileStorageAdapter(cfg.Storage.BlobDir)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3_adapter.NewBlobStorageAdapter(client, cfg.Storage.BucketName), nil
}

// Run запускает выбранный режим и управляет жизненным циклом ресурсов.
func (a *App) Run() error {
	defer a.closeResources()

	switch a.config.Mode {
	case configs.ModeIngest:
		if runningInLambda() {
			lambda.Start(a.handleScheduledEvent)
			return nil
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return a.handleScheduledEvent(ctx, events.CloudWatchEvent{})

	case configs.ModeNotify:
		if runningInLambda() {
			lambda.Start(a.handleSNSEvent)
			return nil
		}
		event, err := loadExampleEvent(a.config.EventExample)
		if err != nil {
			return err
		}
		return a.handleSNSEvent(context.Background(), event)

	case configs.ModeServe:
		return a.serveHTTP()

	case configs.ModeConsume:
		return a.consume()
	}
	return fmt.Errorf("unknown mode %q", a.config.Mode)
}

// handleScheduledEvent выполняет один запуск конвейера. Ошибка запуска только
// логируется: повторный вызов Lambda ничего не исправит, следующий запуск по расписанию.
func (a *App) handleScheduledEvent(ctx context.Context, _ events.CloudWatchEvent) error {
	stats, err := a.ingestUseCase.Execute(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "App: ingestion run failed", slog.Any("error", err))
		return nil
	}
	slog.InfoContext(ctx, "App: ingestion run finished",
		slog.Int("discovered", stats.Discovered),
		slog.Int("new", stats.New),
		slog.Int("ingested", stats.Ingested),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", stats.FinishedAt.Sub(stats.StartedAt)),
	)
	return nil
}

// handleSNSEvent отвечает на каждое письмо из события. Ошибки окончательны и только логируются.
func (a *App) handleSNSEvent(ctx context.Context, event events.SNSEvent) error {
	messages, err := snsevent.Decode(event)
	if err != nil {
		slog.ErrorContext(ctx, "App: failed to decode SNS event", slog.Any("error", err))
		return nil
	}
	for _, msg := range messages {
		result, err := a.sendImagesUseCase.Execute(ctx, msg)
		if err != nil {
			slog.ErrorContext(ctx, "App: notification failed", slog.Any("error", err))
			continue
		}
		slog.InfoContext(ctx, "App: notification answered",
			slog.String("property_id", result.PropertyID),
			slog.Int("images", len(result.ImageIDs)),
		)
	}
	return nil
}

func (a *App) serveHTTP() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr: a.config.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Ingest:     a.ingestUseCase,
			Notify:     a.sendImagesUseCase,
			Properties: a.storage,
			RateLimit:  a.config.HTTP.RateLimit,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("App: HTTP server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case <-ctx.Done():
		slog.Info("App: received shutdown signal, stopping HTTP server...")
	case err := <-serverErrors:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *App) consume() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup
	listenerErrors := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("App: starting notification listener...")
		if err := a.notificationListener.Start(appCtx); err != nil {
			listenerErrors <- err
			return
		}
		slog.Info("App: notification listener stopped")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	slog.Info("Application running. Waiting for signals or listener error...")
	select {
	case receivedSignal := <-quit:
		slog.Info("App: received signal, shutting down", slog.String("signal", receivedSignal.String()))
	case err := <-listenerErrors:
		slog.Error("App: notification listener failed", slog.Any("error", err))
		runErr = err
	}

	cancelApp()
	wg.Wait()
	return runErr
}

// closeResources закрывает все, что успело открыться, в обратном порядке.
func (a *App) closeResources() {
	if a.notificationListener != nil {
		if err := a.notificationListener.Close(); err != nil {
			slog.Error("App: error closing notification listener", slog.Any("error", err))
		}
	}
	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			slog.Error("App: error closing event producer", slog.Any("error", err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("App: error closing Redis client", slog.Any("error", err))
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		slog.Info("App: PostgreSQL pool closed")
	}
}

func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// loadExampleEvent читает ./example-events/<name>.json для локального запуска.
func loadExampleEvent(name string) (events.SNSEvent, error) {
	var event events.SNSEvent
	path := filepath.Join("example-events", name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return event, fmt.Errorf("read example event: %w", err)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("parse example event %s: %w", path, err)
	}
	return event, nil
}

func setupLogger(cfg configs.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
