package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/auxcare/internal/platform/resource"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	APITimeout        time.Duration `mapstructure:"API_TIMEOUT"`
	APIRateLimit      float64       `mapstructure:"API_RATE_LIMIT"`
	APIRateBurst      int           `mapstructure:"API_RATE_BURST"`
	FetchPolicy       string        `mapstructure:"FETCH_POLICY"`
	BridgePort        string        `mapstructure:"BRIDGE_PORT"`
	RefreshInterval   time.Duration `mapstructure:"REFRESH_INTERVAL"`
	SandboxPort       string        `mapstructure:"SANDBOX_PORT"`
	SandboxSigningKey string        `mapstructure:"SANDBOX_SIGNING_KEY"`
	SandboxSeed       int64         `mapstructure:"SANDBOX_SEED"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "API_BASE_URL", "API_TIMEOUT", "API_RATE_LIMIT",
	"API_RATE_BURST", "FETCH_POLICY", "BRIDGE_PORT", "REFRESH_INTERVAL",
	"SANDBOX_PORT", "SANDBOX_SIGNING_KEY", "SANDBOX_SEED", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("API_RATE_LIMIT", 20)
	v.SetDefault("API_RATE_BURST", 40)
	v.SetDefault("FETCH_POLICY", "last-completion")
	v.SetDefault("BRIDGE_PORT", "8090")
	v.SetDefault("REFRESH_INTERVAL", "30s")
	v.SetDefault("SANDBOX_PORT", "8080")
	v.SetDefault("SANDBOX_SEED", 1)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Policy returns the parsed FETCH_POLICY.
func (c *Config) Policy() resource.Policy {
	p, _ := resource.ParsePolicy(c.FetchPolicy)
	return p
}

// Validate checks that the client side of the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if _, err := resource.ParsePolicy(c.FetchPolicy); err != nil {
		return fmt.Errorf("FETCH_POLICY: %w", err)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	return nil
}

// ValidateSandbox checks the settings needed to run the sandbox backend.
// Outside development a signing key of at least 32 bytes is required.
func (c *Config) ValidateSandbox() error {
	if c.SandboxSigningKey == "" && !c.IsDev() {
		return fmt.Errorf("SANDBOX_SIGNING_KEY is required outside development")
	}
	if c.SandboxSigningKey != "" && len(c.SandboxSigningKey) < 32 {
		return fmt.Errorf("SANDBOX_SIGNING_KEY must be at least 32 bytes, got %d", len(c.SandboxSigningKey))
	}
	if c.DatabaseURL != "" && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// SigningKey returns the sandbox token key, falling back to a fixed
// development key.
func (c *Config) SigningKey() []byte {
	if c.SandboxSigningKey != "" {
		return []byte(c.SandboxSigningKey)
	}
	return []byte("auxcare-development-signing-key-0000")
}
