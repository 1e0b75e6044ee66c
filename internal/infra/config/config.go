package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from
// environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	MongoURI         string
	MongoDB          string
	KafkaBrokers     []string
	KafkaTopicPrefix string

	ProcessorBaseURL string
	ProcessorAPIKey  string
	ProcessorTimeout time.Duration

	Currency           string
	TransactionFee     int64
	StatusSyncSchedule string
}

// Load parses configuration from the current environment. MongoURI and
// KafkaBrokers may stay empty: the service then falls back to in-memory
// storage and logged notifications (dev mode).
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "boxstand"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", "boxstand."),
		ProcessorBaseURL:   getEnv("PROCESSOR_BASE_URL", "https://api.stripe.com"),
		ProcessorAPIKey:    os.Getenv("PROCESSOR_API_KEY"),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "EUR")),
		StatusSyncSchedule: getEnv("STATUS_SYNC_SCHEDULE", "@every 5m"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	timeout, err := parseDurationEnv("PROCESSOR_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ProcessorTimeout = timeout

	fee, err := parseInt64Env("TRANSACTION_FEE_MINOR", 250)
	if err != nil {
		return Config{}, err
	}
	if fee < 0 {
		return Config{}, fmt.Errorf("TRANSACTION_FEE_MINOR must not be negative")
	}
	cfg.TransactionFee = fee

	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("CURRENCY must be a 3-letter code, got %q", cfg.Currency)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseInt64Env(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}
