package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default except DATABASE_URL (postgres store only) and
// JWT_SECRET.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	// Record store
	StoreBackend string
	DatabaseURL  string
	DBMaxConns   int32
	DBMinConns   int32

	// Queue transport
	QueueBackend string
	RedisURL     string
	QueueName    string

	// Dispatcher
	MaxAttempts   int
	PopTimeout    time.Duration
	SendRateLimit int

	// Email channel; an empty host falls back to the logging sender.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration

	// Push channel; an empty URL falls back to the logging sender.
	PushProviderURL string
	PushProviderKey string
	PushTimeout     time.Duration

	JWTSecret string
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBMaxConns:   int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:   int32(getInt("DB_MIN_CONNS", 5)),

		QueueBackend: strings.ToLower(getEnv("QUEUE_BACKEND", BackendRedis)),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		QueueName:    getEnv("QUEUE_NAME", "notifications"),

		MaxAttempts:   getInt("MAX_ATTEMPTS", 3),
		PopTimeout:    getDuration("POP_TIMEOUT", 5*time.Second),
		SendRateLimit: getInt("SEND_RATE_LIMIT", 100),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@notifyhub.local"),
		SMTPTimeout:  getDuration("SMTP_TIMEOUT", 10*time.Second),

		PushProviderURL: os.Getenv("PUSH_PROVIDER_URL"),
		PushProviderKey: os.Getenv("PUSH_PROVIDER_KEY"),
		PushTimeout:     getDuration("PUSH_TIMEOUT", 10*time.Second),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}

	switch c.QueueBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.QueueBackend)
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME must not be empty")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
