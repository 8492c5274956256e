package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Report sources.
const (
	ReportSourceSQL      = "sql"
	ReportSourceBigQuery = "bigquery"
)

// ServiceConfig describes how to reach one collaborator service.
type ServiceConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Config holds the process configuration.
type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURL    string

	ReportSource    string
	BigQueryProject string
	BigQueryDataset string

	UsersService ServiceConfig
	FarmsService ServiceConfig

	PlotVerifyConcurrency int

	ReportArchiveBucket string

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// LoadEnvFile copies the variables of ./.env into the process environment.
// A missing file is not an error; variables already set win.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	timeout, err := time.ParseDuration(env("SERVICE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("SERVICE_TIMEOUT: %w", err)
	}
	backoff, err := time.ParseDuration(env("SERVICE_RETRY_BACKOFF", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("SERVICE_RETRY_BACKOFF: %w", err)
	}
	retries, err := strconv.Atoi(env("SERVICE_MAX_RETRIES", "2"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("SERVICE_MAX_RETRIES: invalid value %q", getenv("SERVICE_MAX_RETRIES"))
	}
	concurrency, err := strconv.Atoi(env("PLOT_VERIFY_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("PLOT_VERIFY_CONCURRENCY: invalid value %q", getenv("PLOT_VERIFY_CONCURRENCY"))
	}

	cfg := &Config{
		Port:                  env("PORT", "8080"),
		DatabaseDriver:        env("DATABASE_DRIVER", "postgres"),
		DatabaseURL:           getenv("DATABASE_URL"),
		ReportSource:          env("REPORT_SOURCE", ReportSourceSQL),
		BigQueryProject:       getenv("BIGQUERY_PROJECT"),
		BigQueryDataset:       env("BIGQUERY_DATASET", "transactions"),
		PlotVerifyConcurrency: concurrency,
		ReportArchiveBucket:   getenv("REPORT_ARCHIVE_BUCKET"),
		LogLevel:              env("LOG_LEVEL", "info"),
		LogFormat:             env("LOG_FORMAT", "console"),
		UsersService: ServiceConfig{
			BaseURL:      env("USERS_SERVICE_URL", "http://localhost:8000"),
			Timeout:      timeout,
			MaxRetries:   retries,
			RetryBackoff: backoff,
		},
		FarmsService: ServiceConfig{
			BaseURL:      env("FARMS_SERVICE_URL", "http://localhost:8002"),
			Timeout:      timeout,
			MaxRetries:   retries,
			RetryBackoff: backoff,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", c.DatabaseDriver)
	}
	switch c.ReportSource {
	case ReportSourceSQL:
	case ReportSourceBigQuery:
		if c.BigQueryProject == "" {
			return fmt.Errorf("BIGQUERY_PROJECT is required when REPORT_SOURCE=bigquery")
		}
	default:
		return fmt.Errorf("REPORT_SOURCE: unsupported source %q", c.ReportSource)
	}
	return nil
}
