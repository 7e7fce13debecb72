// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	// Production selects 10% trace/profile sampling on both vendors; anything else samples 100%.
	Env string `mapstructure:"APP_ENV"`
	// ServiceName is the logical service name reported to both vendors (OTel resource, Sentry server name).
	ServiceName string `mapstructure:"SERVICE_NAME"`
	// ServiceVersion is the build/release identifier (OTel resource, Sentry release).
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`

	// OTLPEndpoint is the tracing/metrics backend connection string (host:port or URL).
	// Empty means the tracing adapter runs disabled; expected in development and test.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the OTLP endpoint even for https URLs
	// (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// SentryDSN is the error-tracking backend DSN. Empty means the error-tracking
	// adapter runs disabled; expected in development and test.
	SentryDSN string `mapstructure:"SENTRY_DSN"`

	// Event fan-out pipeline (optional). When Kafka brokers are set, the request
	// middleware mirrors telemetry events to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic for mirrored telemetry events (default tb-telemetry).
	KafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// DatabaseURL is the Postgres DSN for the telemetry event store; empty disables persistence.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_NAME", "telemetry-bridge")
	v.SetDefault("SERVICE_VERSION", "dev")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "tb-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "tb-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("DATABASE_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("config: SERVICE_NAME must be set")
	}

	return &cfg, nil
}

// IsProduction reports whether the app runs in the production environment.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// SampleRatio is the trace/profile sampling rate derived from the environment:
// 0.1 in production, 1.0 everywhere else. Applied to both vendors so they agree.
func (c *Config) SampleRatio() float64 {
	if c.IsProduction() {
		return 0.1
	}
	return 1.0
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event fan-out is enabled (non-empty list) and to create the producer.
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
