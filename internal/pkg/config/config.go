package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// MinSecretLength is the shortest JWT secret accepted without a startup warning.
const MinSecretLength = 32

var ErrMissingJWTSecret = errors.New("config: JWT_SECRET must be set")

type Config struct {
	Port            string        `env:"PORT,             default=5000"`
	Env             string        `env:"ENV,              default=development"`
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL,        default=24h"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS, default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://127.0.0.1:27017"`
	Database string `env:"MONGO_DB,  default=todoapp"`
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// WeakSecret reports whether the configured secret is shorter than MinSecretLength.
func (c *Config) WeakSecret() bool {
	return len(c.JWTSecret) < MinSecretLength
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.Port == "" {
		return errors.New("config: PORT must not be empty")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
