// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendREST   = "rest"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend picks the score store: memory, rest or redis.
	StoreBackend string `koanf:"store_backend"`

	// RESTURL and RESTToken address the HTTP command endpoint.
	RESTURL   string `koanf:"rest_url"`
	RESTToken string `koanf:"rest_token"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// StoreTimeoutMS bounds each store command. Zero means no bound.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// AdminSecret guards delete, edit and reset. Empty disables them.
	AdminSecret string `koanf:"admin_secret"`

	// CORSOrigin is echoed in Access-Control-Allow-Origin.
	CORSOrigin string `koanf:"cors_origin"`

	// Modes lists the boards ResetAll clears.
	Modes []string `koanf:"modes"`

	// BoardSize is how many entries each board keeps.
	BoardSize int `koanf:"board_size"`

	// SubmitRatePerSec and SubmitBurst shape POST /scores per client.
	// A zero rate turns limiting off.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// MetricsEnabled turns metric recording on. /healthz serves either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is how often board and system gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		StoreBackend:     BackendMemory,
		RedisAddr:        "localhost:6379",
		StoreTimeoutMS:   5000,
		CORSOrigin:       "*",
		Modes:            []string{"grid", "flick", "tracking", "switching", "microshot"},
		BoardSize:        50,
		SubmitRatePerSec: 20,
		SubmitBurst:      40,
		MetricsEnabled:   true,
		MetricsRefreshMS: 10000,
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate checks field values and cross-field requirements.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendREST:
		if c.RESTURL == "" {
			return fmt.Errorf("%w: rest_url is required for the rest backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.StoreTimeoutMS < 0 {
		return fmt.Errorf("%w: store_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.BoardSize <= 0 {
		return fmt.Errorf("%w: board_size must be positive", ErrInvalidConfig)
	}
	if len(c.Modes) == 0 || slices.Contains(c.Modes, "") {
		return fmt.Errorf("%w: modes must be a non-empty list of names", ErrInvalidConfig)
	}
	if c.MetricsRefreshMS <= 0 {
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	if c.SubmitRatePerSec < 0 {
		return fmt.Errorf("%w: submit_rate_per_sec must not be negative", ErrInvalidConfig)
	}
	if c.SubmitRatePerSec > 0 && c.SubmitBurst < 1 {
		return fmt.Errorf("%w: submit_burst must be at least 1 when limiting", ErrInvalidConfig)
	}
	return nil
}

// splitModes turns "grid, flick" into [grid flick].
func splitModes(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
