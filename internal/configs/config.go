package configs

import (
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"hemnet-images/internal/constants"

	"github.com/joho/godotenv"
)

// Режимы запуска
const (
	ModeIngest  = "ingest"
	ModeNotify  = "notify"
	ModeServe   = "serve"
	ModeConsume = "consume"
)

// StorageConfig - где лежат записи и изображения
type StorageConfig struct {
	Backend     string // dynamodb | postgres | redis
	TableName   string
	BucketName  string
	BlobBackend string // s3 | filesystem
	BlobDir     string
}

// MailConfig - отправитель и получатели ответного письма
type MailConfig struct {
	FromAddress string
	ToAddresses []string
}

// HemnetConfig - адреса Hemnet и "вежливость" запросов
type HemnetConfig struct {
	SearchPageURL  string
	SearchAPIURL   string
	GraphQLURL     string
	SubscriptionID string
	AllowedDomains []string
	RequestDelay   time.Duration
	Parallelism    int
}

// PipelineConfig - параллелизм и таймауты конвейера
type PipelineConfig struct {
	ListingWorkers int
	ImageWorkers   int
	RequestTimeout time.Duration
}

type AWSConfig struct {
	Region   string
	Endpoint string // для localstack, пусто - стандартные адреса
}

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL     string
	Migrate bool // создавать таблицы при старте
}

// RabbitMQConfig хранит конфигурацию для RabbitMQ. Пустой URL отключает события.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type HTTPConfig struct {
	Addr      string
	RateLimit int
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	Mode         string
	EventExample string

	Storage  StorageConfig
	Mail     MailConfig
	Hemnet   HemnetConfig
	Pipeline PipelineConfig
	AWS      AWSConfig
	Database DBconfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// .env необязателен: в Lambda его нет, все приходит из окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath...)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		slog.Info("Config: .env file not loaded, using process environment", slog.Any("path", envPath), slog.Any("error", err))
	}

	cfg := &AppConfig{
		Mode:         getEnvAsString("APP_MODE", ModeIngest),
		EventExample: getEnvAsString("EVENT_EXAMPLE", "example-1"),
		Storage: StorageConfig{
			Backend:     getEnvAsString("STORAGE_BACKEND", "dynamodb"),
			TableName:   getEnvAsString("TABLE_NAME", "HemnetProperties"),
			BucketName:  getEnvAsString("BUCKET_NAME", "hemnet-property-images"),
			BlobBackend: getEnvAsString("BLOB_BACKEND", "s3"),
			BlobDir:     getEnvAsString("BLOB_DIR", "./data/images"),
		},
		Mail: MailConfig{
			FromAddress: strings.TrimSpace(os.Getenv("FROM_EMAIL_ADDRESS")),
			ToAddresses: getEnvAsList("TO_EMAIL_ADDRESSES", nil),
		},
		Hemnet: HemnetConfig{
			SearchPageURL:  getEnvAsString("HEMNET_SEARCH_PAGE_URL", constants.HemnetSearchPageURL),
			SearchAPIURL:   getEnvAsString("HEMNET_SEARCH_API_URL", constants.HemnetSearchAPIURL),
			GraphQLURL:     getEnvAsString("HEMNET_GRAPHQL_URL", constants.HemnetGraphQLURL),
			SubscriptionID: os.Getenv("SUBSCRIPTION_ID"),
			AllowedDomains: getEnvAsList("HEMNET_ALLOWED_DOMAINS", constants.HemnetAllowedDomains),
			RequestDelay:   getEnvAsDuration("HEMNET_REQUEST_DELAY", time.Second),
			Parallelism:    getEnvAsInt("HEMNET_PARALLELISM", 2),
		},
		Pipeline: PipelineConfig{
			ListingWorkers: getEnvAsInt("LISTING_WORKERS", 4),
			ImageWorkers:   getEnvAsInt("IMAGE_WORKERS", 4),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		AWS: AWSConfig{
			Region:   getEnvAsString("AWS_REGION", "eu-north-1"),
			Endpoint: os.Getenv("AWS_ENDPOINT_URL"),
		},
		Database: DBconfig{
			URL:     os.Getenv("DATABASE_URL"),
			Migrate: getEnvAsBool("DB_MIGRATE", true),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getEnvAsString("RABBITMQ_EXCHANGE", "hemnet"),
		},
		Redis: RedisConfig{
			Addr:     getEnvAsString("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Addr:      getEnvAsString("HTTP_ADDR", ":8080"),
			RateLimit: getEnvAsInt("HTTP_RATE_LIMIT", 60),
		},
		Log: LogConfig{
			Level:  getEnvAsString("LOG_LEVEL", "info"),
			Format: getEnvAsString("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет то, без чего выбранный режим не запустится.
func (c *AppConfig) Validate() error {
	switch c.Mode {
	case ModeIngest, ModeNotify, ModeServe, ModeConsume:
	default:
		return fmt.Errorf("APP_MODE must be one of ingest, notify, serve, consume, got %q", c.Mode)
	}

	switch c.Storage.Backend {
	case "dynamodb":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for postgres storage")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR environment variable is required for redis storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of dynamodb, postgres, redis, got %q", c.Storage.Backend)
	}

	switch c.Storage.BlobBackend {
	case "s3", "filesystem":
	default:
		return fmt.Errorf("BLOB_BACKEND must be s3 or filesystem, got %q", c.Storage.BlobBackend)
	}

	if c.Mode == ModeConsume && c.RabbitMQ.URL == "" {
		return fmt.Errorf("RABBITMQ_URL environment variable is required in consume mode")
	}
	if c.Mode != ModeIngest {
		if err := c.Mail.Validate(); err != nil {
			return err
		}
	}
	if c.Pipeline.ListingWorkers <= 0 || c.Pipeline.ImageWorkers <= 0 {
		return fmt.Errorf("LISTING_WORKERS and IMAGE_WORKERS must be positive")
	}
	return nil
}

// Validate проверяет отправителя и каждого получателя.
func (m MailConfig) Validate() error {
	if m.FromAddress == "" {
		return fmt.Errorf("FROM_EMAIL_ADDRESS environment variable is required")
	}
	if _, err := mail.ParseAddress(m.FromAddress); err != nil {
		return fmt.Errorf("FROM_EMAIL_ADDRESS is not a valid address: %w", err)
	}
	if len(m.ToAddresses) == 0 {
		return fmt.Errorf("TO_EMAIL_ADDRESSES must contain at least one address")
	}
	for _, addr := range m.ToAddresses {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("TO_EMAIL_ADDRESSES contains invalid address %q: %w", addr, err)
		}
	}
	return nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("Config: could not parse int, using default",
			slog.String("key", key), slog.String("value", valueStr), slog.Int("default", defaultValue))
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		slog.Warn("Config: could not parse bool, using default",
			slog.String("key", key), slog.String("value", valStr), slog.Bool("default", defaultValue))
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration понимает "1500ms", "30s" и т.п.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		slog.Warn("Config: could not parse duration, using default",
			slog.String("key", key), slog.String("value", valStr), slog.Duration("default", defaultValue))
		return defaultValue
	}
	return d
}

// getEnvAsList разбивает значение по запятым, пустые элементы отбрасываются
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
