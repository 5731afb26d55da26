package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Shared secret for the inbound settlement trigger signature.
	SettlementWebhookSecret string
	SettlementLockTTL       time.Duration
	SettlementRetryDelay    time.Duration

	StripeSecretKey string

	PayPalClientID string
	PayPalSecret   string
	PayPalAPIBase  string

	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	FXRateEndpoint string
	FXRateAPIKey   string
	FXRateTimeout  time.Duration
	FXRateCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	SchedulerRunInterval time.Duration
	SchedulerBatchSize   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "partnerpay"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "partnerpay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		SettlementWebhookSecret: strings.TrimSpace(getenv("SETTLEMENT_WEBHOOK_SECRET", "")),
		SettlementLockTTL:       getenvDuration("SETTLEMENT_LOCK_TTL", 2*time.Minute),
		SettlementRetryDelay:    getenvDuration("SETTLEMENT_RETRY_DELAY", 24*time.Hour),

		StripeSecretKey: strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),

		PayPalClientID: strings.TrimSpace(getenv("PAYPAL_CLIENT_ID", "")),
		PayPalSecret:   strings.TrimSpace(getenv("PAYPAL_SECRET", "")),
		PayPalAPIBase:  getenv("PAYPAL_API_BASE", "https://api-m.sandbox.paypal.com"),

		SendGridAPIKey: strings.TrimSpace(getenv("SENDGRID_API_KEY", "")),
		EmailFrom:      getenv("EMAIL_FROM", "payouts@partnerpay.local"),
		EmailFromName:  getenv("EMAIL_FROM_NAME", "Partnerpay"),

		FXRateEndpoint: getenv("FXRATE_ENDPOINT", "https://api.exchangerate.host"),
		FXRateAPIKey:   strings.TrimSpace(getenv("FXRATE_API_KEY", "")),
		FXRateTimeout:  getenvDuration("FXRATE_TIMEOUT", 5*time.Second),
		FXRateCacheTTL: getenvDuration("FXRATE_CACHE_TTL", 10*time.Minute),

		OutboxPollInterval: getenvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:    getenvInt("OUTBOX_BATCH_SIZE", 50),

		SchedulerRunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
		SchedulerBatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 50),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
