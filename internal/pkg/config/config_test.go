package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "0123456789abcdef0123456789abcdef",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.Mongo.URI != "mongodb://127.0.0.1:27017" || cfg.Mongo.Database != "todoapp" {
		t.Errorf("unexpected mongo config: %+v", cfg.Mongo)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected development env by default")
	}
	if cfg.WeakSecret() {
		t.Errorf("32 byte secret should not be reported as weak")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "short",
		"PORT":                 "8081",
		"ENV":                  "production",
		"TOKEN_TTL":            "1h",
		"MONGO_DB":             "todo_test",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}

	if cfg.Port != "8081" || cfg.TokenTTL != time.Hour || cfg.Mongo.Database != "todo_test" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.IsDevelopment() {
		t.Errorf("expected production env")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 cors origins, got %v", cfg.CORSOrigins)
	}
	if !cfg.WeakSecret() {
		t.Errorf("short secret should be reported as weak")
	}
}

func TestLoadWith_RequiresSecret(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"unset": {},
		"blank": {"JWT_SECRET": "   "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
			if !errors.Is(err, ErrMissingJWTSecret) {
				t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
			}
		})
	}
}

func TestLoadWith_RejectsNonPositiveTTL(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
		"TOKEN_TTL":  "0s",
	}))
	if err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}
