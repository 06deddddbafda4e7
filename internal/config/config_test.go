package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
host: 127.0.0.1
port: 9090
database-dsn: "file:zapcodes.db"
debug: true
jwt:
  secret: "file-secret"
  expiry: 48h
stripe:
  secret-key: "sk_test_abc"
  webhook-secret: "whsec_abc"
providers:
  groq-api-key: "gsk_abc"
  github-token: "ghp_abc"
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 9090 || !cfg.Debug {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.DatabaseDSN != "file:zapcodes.db" {
		t.Fatalf("unexpected dsn %q", cfg.DatabaseDSN)
	}
	if cfg.JWT.Secret != "file-secret" || cfg.JWT.Expiry != 48*time.Hour {
		t.Fatalf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.Stripe.SecretKey != "sk_test_abc" || cfg.Stripe.WebhookSecret != "whsec_abc" {
		t.Fatalf("unexpected stripe config: %+v", cfg.Stripe)
	}
	if cfg.Providers.GroqAPIKey != "gsk_abc" || cfg.Providers.GithubToken != "ghp_abc" {
		t.Fatalf("unexpected providers config: %+v", cfg.Providers)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database-dsn: "file:from-file.db"
jwt:
  secret: "file-secret"
`)
	t.Setenv(EnvDBConnection, "file:from-env.db")
	t.Setenv(EnvJWTSecret, "env-secret")
	t.Setenv(EnvJWTExpiry, "1h")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.DatabaseDSN != "file:from-env.db" {
		t.Fatalf("env dsn must win, got %q", cfg.DatabaseDSN)
	}
	if cfg.JWT.Secret != "env-secret" || cfg.JWT.Expiry != time.Hour {
		t.Fatalf("env jwt values must win: %+v", cfg.JWT)
	}
}

func TestLoad_MissingFileWithEnvDSN(t *testing.T) {
	t.Setenv(EnvDBConnection, "file:envonly.db")

	cfg, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if errLoad != nil {
		t.Fatalf("missing file with env dsn must load: %v", errLoad)
	}
	if cfg.DatabaseDSN != "file:envonly.db" {
		t.Fatalf("unexpected dsn %q", cfg.DatabaseDSN)
	}
	if cfg.Port != 8080 {
		t.Fatalf("unexpected default port %d", cfg.Port)
	}
	if cfg.JWT.Expiry != 30*24*time.Hour {
		t.Fatalf("unexpected default expiry %v", cfg.JWT.Expiry)
	}
}

func TestLoad_MissingDSN(t *testing.T) {
	path := writeConfig(t, "host: localhost\n")

	_, errLoad := Load(path)
	if !errors.Is(errLoad, ErrMissingDatabaseDSN) {
		t.Fatalf("expected ErrMissingDatabaseDSN, got %v", errLoad)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	path := writeConfig(t, `
port: 99999
database-dsn: "file:x.db"
jwt:
  expiry: -1h
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Port != 8080 {
		t.Fatalf("out-of-range port must fall back, got %d", cfg.Port)
	}
	if cfg.JWT.Expiry != 30*24*time.Hour {
		t.Fatalf("negative expiry must fall back, got %v", cfg.JWT.Expiry)
	}
}

func TestResolveConfigPath(t *testing.T) {
	abs := ResolveConfigPath("")
	if !filepath.IsAbs(abs) {
		t.Fatalf("default path must be absolute, got %q", abs)
	}

	t.Setenv(EnvConfigPath, "/etc/zapcodes/config.yaml")
	if got := ResolveConfigPath(""); got != "/etc/zapcodes/config.yaml" {
		t.Fatalf("env path must win, got %q", got)
	}
	if got := ResolveConfigPath("/explicit.yaml"); got != "/explicit.yaml" {
		t.Fatalf("explicit path must win over env, got %q", got)
	}
}
