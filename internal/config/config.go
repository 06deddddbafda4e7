// Package config loads application configuration from the YAML config file
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvDBConnection        = "DB_CONNECTION"
	EnvJWTSecret           = "JWT_SECRET"
	EnvJWTExpiry           = "JWT_EXPIRY"
	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvGroqAPIKey          = "GROQ_API_KEY"
	EnvAnthropicAPIKey     = "ANTHROPIC_API_KEY"
	EnvGithubToken         = "GITHUB_TOKEN"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// StripeConfig holds Stripe API and webhook credentials.
type StripeConfig struct {
	SecretKey     string `yaml:"secret-key"`
	WebhookSecret string `yaml:"webhook-secret"`
}

// ProvidersConfig holds the external provider credentials.
type ProvidersConfig struct {
	GroqAPIKey      string `yaml:"groq-api-key"`
	AnthropicAPIKey string `yaml:"anthropic-api-key"`
	GithubToken     string `yaml:"github-token"`
}

// Config holds the resolved application configuration.
type Config struct {
	Host        string          `yaml:"host"`
	Port        int             `yaml:"port"`
	DatabaseDSN string          `yaml:"database-dsn"`
	Debug       bool            `yaml:"debug"`
	JWT         JWTConfig       `yaml:"jwt"`
	Stripe      StripeConfig    `yaml:"stripe"`
	Providers   ProvidersConfig `yaml:"providers"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file and applies environment overrides. A
// missing file is not an error as long as the DSN arrives by environment.
func Load(configPath string) (*Config, error) {
	cfg := &Config{Port: 8080, JWT: JWTConfig{Expiry: defaultJWTExpiry}}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return nil, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnvOverrides(cfg)

	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, ErrMissingDatabaseDSN
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 8080
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvStripeSecretKey)); key != "" {
		cfg.Stripe.SecretKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvStripeWebhookSecret)); secret != "" {
		cfg.Stripe.WebhookSecret = secret
	}
	if key := strings.TrimSpace(os.Getenv(EnvGroqAPIKey)); key != "" {
		cfg.Providers.GroqAPIKey = key
	}
	if key := strings.TrimSpace(os.Getenv(EnvAnthropicAPIKey)); key != "" {
		cfg.Providers.AnthropicAPIKey = key
	}
	if token := strings.TrimSpace(os.Getenv(EnvGithubToken)); token != "" {
		cfg.Providers.GithubToken = token
	}
}
