package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	StoreBackendAPI      = "api"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	ConsumerGroupID string   `env:"CONSUMER_GROUP_ID" envDefault:"payments-worker"`

	PurchaseRequestedTopic string `env:"PURCHASE_REQUESTED_TOPIC" envDefault:"game-purchase-requested"`
	PaymentProcessingTopic string `env:"PAYMENT_PROCESSING_TOPIC" envDefault:"payments-requests"`
	PaymentEventsTopic     string `env:"PAYMENT_EVENTS_TOPIC" envDefault:"payment-events"`
	PurchaseCompletedTopic string `env:"PURCHASE_COMPLETED_TOPIC" envDefault:"game-purchase-completed"`
	DLQTopic               string `env:"DLQ_TOPIC" envDefault:"payments-worker-dlq"`

	RetryMaxAttempts   int `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoffBaseMs int `env:"RETRY_BACKOFF_BASE_MS" envDefault:"1000"`

	// StoreBackend selects the system-of-record backend for the
	// processing path: "api" or "postgres". Creation always goes through
	// the payments API, which owns creation events.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"api"`

	PaymentsAPIBaseURL       string `env:"PAYMENTS_API_BASE_URL"`
	PaymentsAPIInternalToken string `env:"PAYMENTS_API_INTERNAL_TOKEN"`
	PaymentsAPITimeoutS      int    `env:"PAYMENTS_API_TIMEOUT_S" envDefault:"30"`

	DatabaseURL        string `env:"DATABASE_URL"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv       string `env:"APP_ENV" envDefault:"production"`
	HealthPort   int    `env:"HEALTH_PORT" envDefault:"8080"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PaymentsAPIBaseURL == "" {
		return fmt.Errorf("PAYMENTS_API_BASE_URL is required")
	}
	if c.PaymentsAPIInternalToken == "" {
		return fmt.Errorf("PAYMENTS_API_INTERNAL_TOKEN is required")
	}
	switch c.StoreBackend {
	case StoreBackendAPI:
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func (c *Config) RetryBackoffBase() time.Duration {
	return time.Duration(c.RetryBackoffBaseMs) * time.Millisecond
}

func (c *Config) PaymentsAPITimeout() time.Duration {
	return time.Duration(c.PaymentsAPITimeoutS) * time.Second
}
