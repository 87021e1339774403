// Package config loads client configuration from environment variables,
// following the same struct-of-structs-plus-envconfig-tags pattern used
// throughout the rest of the stack.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	API       APIConfig
	Realtime  RealtimeConfig
	Telemetry TelemetryConfig
	Crypto    CryptoConfig
	Log       LogConfig
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL          string        `envconfig:"BRAGERONE_API_BASE_URL" required:"true"`
	Email            string        `envconfig:"BRAGERONE_EMAIL"`
	Password         string        `envconfig:"BRAGERONE_PASSWORD"`
	RequestTimeout   time.Duration `envconfig:"BRAGERONE_REQUEST_TIMEOUT" default:"8s"`
	RefreshLeeway    time.Duration `envconfig:"BRAGERONE_REFRESH_LEEWAY" default:"60s"`
	MaxConcurrency   int           `envconfig:"BRAGERONE_HTTP_CONCURRENCY" default:"4"`
	AppVersion       string        `envconfig:"BRAGERONE_APP_VERSION" default:"1.0.0"`
}

// RealtimeConfig configures the Socket.IO-style realtime channel.
type RealtimeConfig struct {
	URL                 string        `envconfig:"BRAGERONE_REALTIME_URL" required:"true"`
	Namespace           string        `envconfig:"BRAGERONE_REALTIME_NAMESPACE" default:"/"`
	InitialBackoff      time.Duration `envconfig:"BRAGERONE_RECONNECT_INITIAL" default:"1s"`
	MaxBackoff          time.Duration `envconfig:"BRAGERONE_RECONNECT_MAX" default:"10s"`
	HandshakeTimeout    time.Duration `envconfig:"BRAGERONE_HANDSHAKE_TIMEOUT" default:"10s"`
	Origin              string        `envconfig:"BRAGERONE_ORIGIN"`
	Referer             string        `envconfig:"BRAGERONE_REFERER"`
}

// TelemetryConfig configures the otel bootstrap.
type TelemetryConfig struct {
	ServiceName  string `envconfig:"BRAGERONE_SERVICE_NAME" default:"bragerone-go"`
	OTLPEndpoint string `envconfig:"BRAGERONE_OTLP_ENDPOINT"`
	Enabled      bool   `envconfig:"BRAGERONE_TELEMETRY_ENABLED" default:"false"`
}

// CryptoConfig configures the optional token-at-rest cipher.
type CryptoConfig struct {
	Passphrase string `envconfig:"BRAGERONE_TOKEN_PASSPHRASE"`
	Salt       string `envconfig:"BRAGERONE_TOKEN_SALT"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `envconfig:"BRAGERONE_LOG_LEVEL" default:"info"`
	Format string `envconfig:"BRAGERONE_LOG_FORMAT" default:"text"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Crypto.Passphrase != "" && c.Crypto.Salt == "" {
		return fmt.Errorf("BRAGERONE_TOKEN_SALT is required when BRAGERONE_TOKEN_PASSPHRASE is set")
	}
	if c.API.MaxConcurrency < 1 {
		return fmt.Errorf("BRAGERONE_HTTP_CONCURRENCY must be at least 1")
	}
	return nil
}
