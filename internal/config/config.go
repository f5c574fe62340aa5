// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis), used for rate limiting and the orphan identity stream
	RedisURL          string `env:"REDIS_URL,required"`
	RedisPoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`

	// Identity subsystem (GoTrue-compatible admin API).
	// SUPABASE_* names are accepted so existing deployments keep working.
	AuthURL        string `env:"AUTH_URL" envDefault:""`
	SupabaseURL    string `env:"SUPABASE_URL" envDefault:""`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY,required"`

	// Password given to freshly provisioned identities. Users reset it out of band.
	PlaceholderPassword string `env:"PLACEHOLDER_PASSWORD" envDefault:"temporary-password-for-user"`

	SessionConfig

	// Metrics: "prometheus" serves the client_golang registry, "memory" the
	// built-in text exposition.
	MetricsBackend string `env:"METRICS_BACKEND" envDefault:"prometheus"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Compensating delete retry budget before handing the identity to the sweeper
	RollbackMaxElapsed time.Duration `env:"ROLLBACK_MAX_ELAPSED" envDefault:"5s"`

	// Orphan identity sweeper
	SweeperEnabled bool `env:"SWEEPER_ENABLED" envDefault:"true"`

	// Rate limiting (per session user)
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPerMinute  int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`
	RateLimitBurst      int  `env:"RATE_LIMIT_BURST" envDefault:"50"`

	// Rate limiting (per client IP, applied before authentication)
	RateLimitIPEnabled   bool `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPPerSecond int  `env:"RATE_LIMIT_IP_PER_SECOND" envDefault:"20"`
	RateLimitIPBurst     int  `env:"RATE_LIMIT_IP_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins; "*" allows any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// SessionConfig holds the session token settings. It is embedded in Config
// and loaded on its own by tooling that mints tokens.
type SessionConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IdentityBaseURL returns the base URL of the identity subsystem.
// AUTH_URL wins over SUPABASE_URL.
func (c *Config) IdentityBaseURL() string {
	if c.AuthURL != "" {
		return strings.TrimSuffix(c.AuthURL, "/")
	}
	return strings.TrimSuffix(c.SupabaseURL, "/")
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.IdentityBaseURL() == "" {
		return nil, fmt.Errorf("failed to parse config: AUTH_URL or SUPABASE_URL is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("failed to parse config: SESSION_TTL must be positive")
	}
	switch cfg.MetricsBackend {
	case "prometheus", "memory":
	default:
		return nil, fmt.Errorf("failed to parse config: METRICS_BACKEND must be prometheus or memory, got %q", cfg.MetricsBackend)
	}
	return cfg, nil
}

// LoadSession parses only the session token settings.
func LoadSession() (*SessionConfig, error) {
	cfg := &SessionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse session config: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("failed to parse session config: SESSION_TTL must be positive")
	}
	return cfg, nil
}
