// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :3100).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// CacheDriver selects the cache backend: "memory" or "redis". Chosen once at startup.
	CacheDriver string `mapstructure:"CACHE_DRIVER"`
	// RedisURL is the Redis connection URL; required when CACHE_DRIVER=redis.
	RedisURL string `mapstructure:"REDIS_URL"`
	// TenantCacheTTL is the TTL for cached tenant lookups (e.g. "1h").
	TenantCacheTTL string `mapstructure:"TENANT_CACHE_TTL"`
	// SessionCacheTTL is the TTL for cached session records (e.g. "1h").
	SessionCacheTTL string `mapstructure:"SESSION_CACHE_TTL"`
	// SessionTTL is the full session lifetime granted at login and on sliding refresh (e.g. "720h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RateLimitFailOpen controls behavior when the rate-limit store is unreachable:
	// true lets requests through (logged), false rejects them.
	RateLimitFailOpen bool `mapstructure:"RATE_LIMIT_FAIL_OPEN"`
	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, the server also publishes
	// gateway events to Kafka for the worker to forward.
	// KafkaBrokers is a comma-separated list of broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic for gateway events (default gateway-events).
	KafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only settings.
	// LokiURL is the Loki push endpoint for the worker (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// SessionSweepInterval is how often the worker purges expired sessions (e.g. "15m").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3100")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CACHE_DRIVER", "memory")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("TENANT_CACHE_TTL", "1h")
	v.SetDefault("SESSION_CACHE_TTL", "1h")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT_FAIL_OPEN", true)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "gateway-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "gateway-session-worker")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "15m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.CacheDriver {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("config: CACHE_DRIVER must be memory or redis, got %q", cfg.CacheDriver)
	}
	if cfg.CacheDriver == "redis" && cfg.RedisURL == "" {
		return nil, errors.New("config: REDIS_URL must be set when CACHE_DRIVER=redis")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// TenantTTL parses TenantCacheTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) TenantTTL() time.Duration {
	return parseDuration(c.TenantCacheTTL, time.Hour)
}

// SessionCacheDuration parses SessionCacheTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SessionCacheDuration() time.Duration {
	return parseDuration(c.SessionCacheTTL, time.Hour)
}

// SessionLifetime parses SessionTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	return parseDuration(c.SessionTTL, 720*time.Hour)
}

// SweepInterval parses SessionSweepInterval as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.SessionSweepInterval, 15*time.Minute)
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
