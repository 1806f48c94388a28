package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SecretsProviderAWS = "aws"
	SecretsProviderEnv = "env"

	DefaultAuthorizationsURL = "https://decentraland.github.io/linker-server-authorizations/authorizations.json"
)

// DefaultFiles are loaded in order; values already set are never overridden
var DefaultFiles = []string{".env", ".env.default"}

// Config is the runtime configuration of the server
type Config struct {
	HTTPHost    string
	HTTPPort    int
	Environment string
	LogLevel    string

	AuthorizationsURL     string
	AuthorizationsRefresh time.Duration

	CatalystDomain string

	SecretID        string
	SecretsProvider string
	AWSRegion       string
	AWSEndpoint     string
	SecretCacheTTL  time.Duration

	RedisURL        string
	EventsStreamMax int

	UploadTimeout     time.Duration
	HTTPClientTimeout time.Duration
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// Production reports whether the server runs in the production environment
func (c *Config) Production() bool {
	return c.Environment == "prd"
}

// Load reads dotenv files (missing ones are ignored) and then the environment
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	r := &reader{}
	cfg := &Config{
		HTTPHost:              r.string("HTTP_SERVER_HOST", "0.0.0.0"),
		HTTPPort:              r.int("HTTP_SERVER_PORT", 3000),
		Environment:           r.string("ENVIRONMENT", "stg"),
		LogLevel:              r.string("LOG_LEVEL", "info"),
		AuthorizationsURL:     r.string("AUTHORIZATIONS_URL", DefaultAuthorizationsURL),
		AuthorizationsRefresh: time.Duration(r.int("AUTHORIZATIONS_UPDATE_INTERVAL_MS", 600000)) * time.Millisecond,
		CatalystDomain:        r.required("CATALYST_DOMAIN"),
		SecretID:              r.required("AWS_SECRET_ID"),
		SecretsProvider:       r.string("SECRETS_PROVIDER", SecretsProviderAWS),
		AWSRegion:             r.string("AWS_REGION", ""),
		AWSEndpoint:           r.string("AWS_ENDPOINT", ""),
		SecretCacheTTL:        r.duration("SECRET_CACHE_TTL", time.Hour),
		RedisURL:              r.string("REDIS_URL", ""),
		EventsStreamMax:       r.int("EVENTS_STREAM_MAXLEN", 10000),
		UploadTimeout:         r.duration("UPLOAD_TIMEOUT", 10*time.Minute),
		HTTPClientTimeout:     r.duration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
	}

	switch cfg.SecretsProvider {
	case SecretsProviderAWS:
		if cfg.AWSRegion == "" {
			r.fail("AWS_REGION is required when SECRETS_PROVIDER is aws")
		}
	case SecretsProviderEnv:
	default:
		r.fail(fmt.Sprintf("SECRETS_PROVIDER must be %q or %q, got %q", SecretsProviderAWS, SecretsProviderEnv, cfg.SecretsProvider))
	}

	if cfg.AuthorizationsRefresh <= 0 {
		r.fail("AUTHORIZATIONS_UPDATE_INTERVAL_MS must be positive")
	}
	if cfg.EventsStreamMax <= 0 {
		r.fail("EVENTS_STREAM_MAXLEN must be positive")
	}
	if cfg.UploadTimeout <= 0 || cfg.HTTPClientTimeout <= 0 {
		r.fail("UPLOAD_TIMEOUT and HTTP_CLIENT_TIMEOUT must be positive")
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// reader collects every problem instead of stopping at the first one
type reader struct {
	errs []error
}

func (r *reader) fail(msg string) {
	r.errs = append(r.errs, errors.New(msg))
}

func (r *reader) string(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func (r *reader) required(key string) string {
	value := os.Getenv(key)
	if value == "" {
		r.fail(key + " is required")
	}
	return value
}

func (r *reader) int(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(fmt.Sprintf("%s must be an integer, got %q", key, value))
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.fail(fmt.Sprintf("%s must be a duration, got %q", key, value))
		return fallback
	}
	return d
}
