package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"sage-api"`
	Version                       string   `env:"VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (config store + history/lead sinks)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"sage"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (webhook dedupe + per-customer locks)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka (conversation events)
	EventsEnabled             bool          `env:"EVENTS_ENABLED" env-default:"false"`
	KafkaBrokers              []string      `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaConversationTopic    string        `env:"KAFKA_CONVERSATION_TOPIC" env-default:"sage.conversations"`
	KafkaProducerBatchSize    int           `env:"KAFKA_PRODUCER_BATCH_SIZE" env-default:"100"`
	KafkaProducerBatchTimeout time.Duration `env:"KAFKA_PRODUCER_BATCH_TIMEOUT" env-default:"1s"`
	KafkaProducerRequiredAcks int           `env:"KAFKA_PRODUCER_REQUIRED_ACKS" env-default:"-1"`
	KafkaProducerCompression  string        `env:"KAFKA_PRODUCER_COMPRESSION" env-default:"snappy"`

	// Admin API auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol   string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure   bool   `env:"OTLP_INSECURE" env-default:"true"`

	// Tenant-config cache
	ConfigCacheTTL     time.Duration `env:"CONFIG_CACHE_TTL" env-default:"5m"`
	ConfigCacheMaxSize int           `env:"CONFIG_CACHE_MAX_SIZE" env-default:"1000"`

	// Webhook processing
	WebhookDedupeTTL time.Duration `env:"WEBHOOK_DEDUPE_TTL" env-default:"10m"`
	CustomerLockTTL  time.Duration `env:"CUSTOMER_LOCK_TTL" env-default:"30s"`
	CustomerLockWait time.Duration `env:"CUSTOMER_LOCK_WAIT" env-default:"10s"`

	// Generic webhook parser (JMESPath field selectors)
	WebhookGenericFromPath      string `env:"WEBHOOK_GENERIC_FROM_PATH" env-default:"customer_phone"`
	WebhookGenericToPath        string `env:"WEBHOOK_GENERIC_TO_PATH" env-default:"business_number"`
	WebhookGenericBodyPath      string `env:"WEBHOOK_GENERIC_BODY_PATH" env-default:"message"`
	WebhookGenericGroupPath     string `env:"WEBHOOK_GENERIC_GROUP_PATH" env-default:"is_group"`
	WebhookGenericMessageIDPath string `env:"WEBHOOK_GENERIC_MESSAGE_ID_PATH" env-default:"message_id"`

	// Response pipeline
	HistoryPromptTurns int      `env:"HISTORY_PROMPT_TURNS" env-default:"5"`
	BookingKeywords    []string `env:"BOOKING_KEYWORDS" env-default:"booking,预约"`

	// Generative backend (OpenAI-compatible)
	GenerativeBaseURL        string  `env:"GENERATIVE_BASE_URL" env-default:"https://api.openai.com/v1"`
	GenerativeAPIKey         string  `env:"GENERATIVE_API_KEY" env-default:""`
	GenerativeDefaultModel   string  `env:"GENERATIVE_DEFAULT_MODEL" env-default:"gpt-4o-mini"`
	GenerativeTimeoutSeconds int     `env:"GENERATIVE_TIMEOUT_SECONDS" env-default:"30"`
	GenerativeMaxRetries     int     `env:"GENERATIVE_MAX_RETRIES" env-default:"2"`
	GenerativeTemperature    float64 `env:"GENERATIVE_TEMPERATURE" env-default:"0.7"`

	// Delivery backend (Wassenger-style)
	DeliveryBaseURL        string `env:"DELIVERY_BASE_URL" env-default:"https://api.wassenger.com/v1"`
	DeliveryAPIKey         string `env:"DELIVERY_API_KEY" env-default:""`
	DeliveryTimeoutSeconds int    `env:"DELIVERY_TIMEOUT_SECONDS" env-default:"15"`
	DeliveryMaxRetries     int    `env:"DELIVERY_MAX_RETRIES" env-default:"2"`
}

// Load reads .env (when present) and binds environment variables onto Config
// using the `env`/`env-default` tags.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
