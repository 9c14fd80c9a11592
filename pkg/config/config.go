package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the service configuration
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	HTTPPort       string
	RequestTimeout time.Duration
	StoreDriver    string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	NATS     NATSConfig
	S3       S3Config

	JWTSecret      string
	TokenTTL       time.Duration
	JaegerEndpoint string
	TracingEnabled bool
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings used for distributed locks
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int

	// Requests allowed per employee within RateWindow. Zero disables the
	// limiter.
	RateLimit  int
	RateWindow time.Duration
}

// KafkaConfig holds broker and topic settings
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	NotificationTopic string
	DepartmentTopic   string
	ConsumerGroup     string
}

// NATSConfig holds label printer transport settings
type NATSConfig struct {
	Enabled      bool
	URL          string
	LabelSubject string
}

// S3Config holds attachment storage settings
type S3Config struct {
	Enabled   bool
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// IsDevelopment reports whether the service runs in development mode
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "plantops"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		RequestTimeout: getDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second),
		StoreDriver:    getEnv("STORE_DRIVER", StoreDriverPostgres),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "plantops"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),

			RateLimit:  getInt("RATE_LIMIT_REQUESTS", 300),
			RateWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:           getBool("KAFKA_ENABLED", false),
			Brokers:           splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "plantops-notifications"),
			DepartmentTopic:   getEnv("KAFKA_DEPARTMENT_TOPIC", "plantops-departments"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "plantops-"+hostname()),
		},
		NATS: NATSConfig{
			Enabled:      getBool("NATS_ENABLED", false),
			URL:          getEnv("NATS_URL", "nats://localhost:4222"),
			LabelSubject: getEnv("NATS_LABEL_SUBJECT", "plantops.labels.print"),
		},
		S3: S3Config{
			Enabled:   getBool("S3_ENABLED", false),
			Bucket:    getEnv("S3_BUCKET", "plantops-attachments"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		TokenTTL:       getDuration("JWT_TTL", 12*time.Hour),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TracingEnabled: getBool("TRACING_ENABLED", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "local"
	}
	return name
}
