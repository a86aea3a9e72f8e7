package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	MetricsAddr    string
	CRDBDSN        string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RabbitURL      string
	JWTSecret      string
	TokenTTL       time.Duration
	IdempotencyTTL time.Duration
	RateLimitUser  int
	RateLimitIP    int
	OutboxInterval time.Duration
	OutboxBatch    int
	AuditInterval  time.Duration
	LogLevel       string
	OTLPEndpoint   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		MetricsAddr:  getenv("METRICS_ADDR", ":9102"),
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getenv("MONGO_DB", "course_bookings"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = duration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OutboxInterval, err = duration("OUTBOX_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuditInterval, err = duration("AUDIT_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitUser, err = integer("RATE_LIMIT_USER", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitIP, err = integer("RATE_LIMIT_IP", 100); err != nil {
		return nil, err
	}
	if cfg.OutboxBatch, err = integer("OUTBOX_BATCH", 50); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Require fails when any of the named environment variables resolved to an empty value.
func (c *Config) Require(keys ...string) error {
	values := map[string]string{
		"HTTP_ADDR":    c.HTTPAddr,
		"METRICS_ADDR": c.MetricsAddr,
		"CRDB_DSN":     c.CRDBDSN,
		"MONGO_URI":    c.MongoURI,
		"MONGO_DB":     c.MongoDB,
		"REDIS_ADDR":   c.RedisAddr,
		"RABBIT_URL":   c.RabbitURL,
		"JWT_SECRET":   c.JWTSecret,
	}
	var missing []string
	for _, k := range keys {
		if values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.Newf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, errors.Newf("invalid duration for %s: %q", key, v)
	}
	return d, nil
}

func integer(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.Newf("invalid integer for %s: %q", key, v)
	}
	return n, nil
}
