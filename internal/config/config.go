// Package config loads server configuration from environment variables.
//
// Every setting has an env tag and, where one makes sense, a default, so the
// server starts with no environment at all: local backend, SQLite file under
// data/, text logs at info level.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backends.
const (
	BackendLocal    = "local"
	BackendSupabase = "supabase"
)

// minJWTSecret matches auth.NewTokenService's requirement.
const minJWTSecret = 16

type Config struct {
	Port    int    `env:"PORT"    envDefault:"8080"`
	Backend string `env:"BACKEND" envDefault:"local"`

	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`

	DBPath    string `env:"DB_PATH"    envDefault:"data/fitness-hub.db"`
	JWTSecret string `env:"JWT_SECRET"`

	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir   string `env:"STATIC_DIR"   envDefault:"web/static"`

	VisitorIdleTimeout time.Duration `env:"VISITOR_IDLE_TIMEOUT"  envDefault:"30m"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CookieSecure       bool          `env:"COOKIE_SECURE"         envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the chosen backend depends on.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.VisitorIdleTimeout <= 0 {
		errs = append(errs, errors.New("VISITOR_IDLE_TIMEOUT must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q: want text or json", c.LogFormat))
	}

	switch c.Backend {
	case BackendLocal:
		if len(c.JWTSecret) < minJWTSecret {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters for the local backend", minJWTSecret))
		}
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the local backend"))
		}
	case BackendSupabase:
		u, err := url.Parse(c.SupabaseURL)
		if c.SupabaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, errors.New("SUPABASE_URL must be an absolute URL"))
		}
		if c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("BACKEND %q: want %s or %s", c.Backend, BackendLocal, BackendSupabase))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
