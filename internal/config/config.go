// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on access tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTTLRaw is the refresh credential lifetime (e.g. "168h" for 7 days).
	RefreshTTLRaw string `mapstructure:"REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// PolicyEnforce switches policy enforcement on ("true"/"1") or off ("false"/"0").
	// Empty means: enforce when Env is "production", observe otherwise.
	PolicyEnforce string `mapstructure:"POLICY_ENFORCE"`
	// OTLPEndpoint is the OTLP gRPC endpoint for telemetry; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// CleanupIntervalRaw is how often the worker sweeps old credential rows (e.g. "1h").
	CleanupIntervalRaw string `mapstructure:"CLEANUP_INTERVAL"`
	// LogLevel is the slog level (-4 debug, 0 info, 4 warn, 8 error).
	LogLevel int `mapstructure:"LOG_LEVEL"`
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
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "aap-auth")
	v.SetDefault("JWT_AUDIENCE", "aap-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("POLICY_ENFORCE", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("LOG_LEVEL", 0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.PolicyEnforce)) {
	case "", "true", "1", "false", "0":
	default:
		return nil, errors.New("config: POLICY_ENFORCE must be true, false, or unset")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTTLRaw as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTLRaw)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// CleanupInterval parses CleanupIntervalRaw as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) CleanupInterval() time.Duration {
	d, err := time.ParseDuration(c.CleanupIntervalRaw)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Enforcing reports whether policy enforcement is on. An explicit POLICY_ENFORCE
// value wins; otherwise enforcement defaults to on only in production.
func (c *Config) Enforcing() bool {
	switch strings.ToLower(strings.TrimSpace(c.PolicyEnforce)) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return c.Env == "production"
}
