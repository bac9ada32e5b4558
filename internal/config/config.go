package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "password", "your-static-secret-key",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	TokenSecret            string `env:"TOKEN_SECRET" envDefault:"dev-secret-change-me"`
	DefaultUser            string `env:"DEFAULT_USER" envDefault:"user1"`
	PendingTTLSeconds      int    `env:"PENDING_TTL_SECONDS" envDefault:"300"`
	AuthedTTLSeconds       int    `env:"AUTHED_TTL_SECONDS" envDefault:"3600"`
	SweepIntervalSeconds   int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	PollTokenTTLMinutes    int    `env:"POLL_TOKEN_TTL_MINUTES" envDefault:"30"`
	ConfirmTokenTTLMinutes int    `env:"CONFIRM_TOKEN_TTL_MINUTES" envDefault:"60"`
	AllowedOrigins         string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost,http://127.0.0.1"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLSeconds) * time.Second
}

func (c *Config) AuthedTTL() time.Duration {
	return time.Duration(c.AuthedTTLSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) PollTokenTTL() time.Duration {
	return time.Duration(c.PollTokenTTLMinutes) * time.Minute
}

func (c *Config) ConfirmTokenTTL() time.Duration {
	return time.Duration(c.ConfirmTokenTTLMinutes) * time.Minute
}

func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.PendingTTLSeconds <= 0 {
		return fmt.Errorf("PENDING_TTL_SECONDS must be positive")
	}
	if c.AuthedTTLSeconds < c.PendingTTLSeconds {
		return fmt.Errorf("AUTHED_TTL_SECONDS must not be shorter than PENDING_TTL_SECONDS")
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive")
	}

	if isProduction {
		if err := validateSecret("TOKEN_SECRET", c.TokenSecret); err != nil {
			return err
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
