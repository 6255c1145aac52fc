package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"go.uber.org/zap"
)

const dbCredentialsSecret = "order-ingestion/DB_CREDENTIALS"

// Event backends for order.created.
const (
	EventsBackendSNS   = "sns"
	EventsBackendKafka = "kafka"
	EventsBackendNone  = "none"
)

type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeAPIKey        string
	StripeWebhookSecret string

	RedisURL      string
	OrderCacheTTL time.Duration

	EventsBackend    string
	KafkaBrokers     []string
	OrderEventsTopic string
	OrderSNSTopicARN string

	CheckoutQueueURL   string
	EventArchiveBucket string

	IngestTimeout  time.Duration
	JWTSecret      string
	AllowedOrigins []string

	CloudWatchLogGroup string
	CloudWatchMetrics  bool
	UseAWSSecrets      bool
}

type dbCredentials struct {
	User     string `json:"POSTGRES_USER"`
	Password string `json:"POSTGRES_PASSWORD"`
	DB       string `json:"POSTGRES_DB"`
	Host     string `json:"POSTGRES_HOST"`
	Port     string `json:"POSTGRES_PORT"`
}

// SecretGetter is implemented by awspkg.SecretsClient.
type SecretGetter interface {
	GetSecretJSON(ctx context.Context, name string, v any) error
}

// LoadConfig reads configuration from the environment, loading .env first
// when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseAWSSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background(), zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("load AWS config for secrets: %w", err)
		}
		if err := cfg.ApplySecrets(context.Background(), awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() (*Config, error) {
	cacheTTL, err := getDuration("ORDER_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	ingestTimeout, err := getDuration("INGEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:   getEnv("PORT", "8087"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		RedisURL:      os.Getenv("REDIS_URL"),
		OrderCacheTTL: cacheTTL,

		EventsBackend:    strings.ToLower(getEnv("EVENTS_BACKEND", EventsBackendNone)),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order.created"),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),

		CheckoutQueueURL:   os.Getenv("CHECKOUT_QUEUE_URL"),
		EventArchiveBucket: os.Getenv("EVENT_ARCHIVE_BUCKET"),

		IngestTimeout:  ingestTimeout,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		CloudWatchLogGroup: os.Getenv("CLOUDWATCH_LOG_GROUP"),
		CloudWatchMetrics:  os.Getenv("CLOUDWATCH_METRICS_ENABLED") == "true",
		UseAWSSecrets:      os.Getenv("AWS_USE_SECRETS") == "true",
	}, nil
}

// ApplySecrets overrides the database credentials with the values stored in
// Secrets Manager. Empty values in the secret leave the env value in place.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) error {
	var creds dbCredentials
	if err := sm.GetSecretJSON(ctx, dbCredentialsSecret, &creds); err != nil {
		return fmt.Errorf("read %s: %w", dbCredentialsSecret, err)
	}
	override(&c.PostgresUser, creds.User)
	override(&c.PostgresPassword, creds.Password)
	override(&c.PostgresDB, creds.DB)
	override(&c.PostgresHost, creds.Host)
	override(&c.PostgresPort, creds.Port)
	return nil
}

func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.StripeAPIKey == "" {
		return fmt.Errorf("STRIPE_API_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	switch c.EventsBackend {
	case EventsBackendNone:
	case EventsBackendKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
	case EventsBackendSNS:
		if c.OrderSNSTopicARN == "" {
			return fmt.Errorf("ORDER_SNS_TOPIC_ARN is required when EVENTS_BACKEND=sns")
		}
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}
	return nil
}

// PostgresDSN returns the connection string for gorm's postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// NeedsAWS reports whether any AWS-backed component is configured.
func (c *Config) NeedsAWS() bool {
	return c.EventsBackend == EventsBackendSNS ||
		c.CheckoutQueueURL != "" ||
		c.EventArchiveBucket != "" ||
		c.CloudWatchLogGroup != "" ||
		c.CloudWatchMetrics
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
