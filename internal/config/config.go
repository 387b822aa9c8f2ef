package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL          string
	BotToken             string
	PaymentProviderToken string
	OperatorChatID       int64
	Currency             string
	ServerAddr           string
	SessionTTL           time.Duration
	MigrationsDir        string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "rentbot")
		pass := getenv("POSTGRES_PASSWORD", "rentbot_pass")
		db := getenv("POSTGRES_DB", "rentbot")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	operatorChat, err := strconv.ParseInt(getenv("OPERATOR_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OPERATOR_CHAT_ID: %w", err)
	}

	return &Config{
		DatabaseURL:          dsn,
		BotToken:             token,
		PaymentProviderToken: os.Getenv("PAYMENT_PROVIDER_TOKEN"),
		OperatorChatID:       operatorChat,
		Currency:             getenv("CURRENCY", "RUB"),
		ServerAddr:           getenv("SERVER_ADDR", "0.0.0.0:8080"),
		SessionTTL:           parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		MigrationsDir:        getenv("MIGRATIONS_DIR", "internal/migrations"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
