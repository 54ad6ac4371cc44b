package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable, e.g. ASAAN_SERVER_ADDR.
const envPrefix = "ASAAN"

type Config struct {
	Server  ServerConfig  `envconfig:"SERVER"`
	Data    DataConfig    `envconfig:"DATA"`
	Logging LoggingConfig `envconfig:"LOG"`
}

type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080" validate:"required"`
	RateLimit       float64       `envconfig:"RATE_LIMIT" default:"20" validate:"gte=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type DataConfig struct {
	// Source is a file path or an http(s) URL; .xlsx selects the workbook parser.
	Source         string        `envconfig:"SOURCE" default:"predicted_crop_prices.csv" validate:"required"`
	Catalog        string        `envconfig:"CATALOG"`
	ReloadInterval time.Duration `envconfig:"RELOAD_INTERVAL" default:"0s" validate:"gte=0"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `envconfig:"FORMAT" default:"console" validate:"oneof=console json"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
