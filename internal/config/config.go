package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds relay service configuration loaded from the environment.
type Config struct {
	AppName  string
	LogLevel string
	HTTPPort string

	RabbitURL       string
	SendQueue       string
	DeadLetterQueue string
	PrefetchCount   int
	WorkerCount     int

	DatabaseURL string
	RedisURL    string
	JobTable    string

	FCMServerKey string
	FCMEndpoint  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	ProviderTimeout time.Duration
	ScheduleZone    *time.Location

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
}

// Load loads configuration and performs basic validation.
func Load() (*Config, error) {
	_ = godotenv.Load()

	zone, err := parseUTCOffset(getEnv("SCHEDULE_UTC_OFFSET", "+00:00"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULE_UTC_OFFSET: %w", err)
	}

	cfg := &Config{
		AppName:             getEnv("APP_NAME", "pushrelay"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		RabbitURL:           getEnv("RABBITMQ_URL", ""),
		SendQueue:           getEnv("SEND_QUEUE", "relay.send"),
		DeadLetterQueue:     getEnv("SEND_DLQ", "relay.failed"),
		PrefetchCount:       getEnvAsInt("SEND_PREFETCH", 100),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 5),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		JobTable:            getEnv("JOB_TABLE", "scheduled_jobs"),
		FCMServerKey:        getEnv("FCM_SERVER_KEY", ""),
		FCMEndpoint:         getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
		MinioEndpoint:       getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getEnv("MINIO_BUCKET", ""),
		MinioUseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		ProviderTimeout:     getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		ScheduleZone:        zone,
		RetryMaxAttempts:    getEnvAsInt("RETRY_MAX_ATTEMPTS", 4),
		RetryInitialBackoff: getEnvAsDuration("RETRY_INITIAL_BACKOFF", time.Second),
		RetryMaxBackoff:     getEnvAsDuration("RETRY_MAX_BACKOFF", 15*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.FCMServerKey == "" {
		missing = append(missing, "FCM_SERVER_KEY")
	}
	if c.MinioEndpoint == "" {
		missing = append(missing, "MINIO_ENDPOINT")
	}
	if c.MinioBucket == "" {
		missing = append(missing, "MINIO_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// parseUTCOffset turns "+01:00" or "-05:30" into a fixed time zone. Scheduled
// fire instants combine the caller's date and time in this one offset.
func parseUTCOffset(raw string) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "Z" {
		return time.UTC, nil
	}
	sign := 1
	switch raw[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("offset %q must start with + or -", raw)
	}
	parts := strings.SplitN(raw[1:], ":", 2)
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 14 {
		return nil, fmt.Errorf("invalid offset hours in %q", raw)
	}
	minutes := 0
	if len(parts) == 2 {
		minutes, err = strconv.Atoi(parts[1])
		if err != nil || minutes < 0 || minutes > 59 {
			return nil, fmt.Errorf("invalid offset minutes in %q", raw)
		}
	}
	seconds := sign * (hours*3600 + minutes*60)
	if seconds == 0 {
		return time.UTC, nil
	}
	return time.FixedZone("UTC"+raw, seconds), nil
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid int for %s, using default %d: %v", key, def, err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid bool for %s, using default %t: %v", key, def, err)
			return def
		}
		return b
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		return d
	}
	return def
}
