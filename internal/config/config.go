// Package config loads and validates console config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"savings-admin/console/internal/cache"
)

// DefaultAPIBaseURL is the hosted savings backend, versioned path included.
const DefaultAPIBaseURL = "https://savings-ms-client-api.onrender.com/api/v1"

// Config holds application configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the backend base URL including the version prefix (e.g. https://host/api/v1).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// HTTPTimeout is the per-request timeout for backend calls (e.g. "15s").
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// SessionFile is where the access token and admin profile are persisted. "~" is expanded.
	SessionFile string `mapstructure:"SESSION_FILE"`
	// SessionSecret, when set, encrypts the session file. Required when Env is production.
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	// CacheInvalidation selects how invalidation matches cached keys: "prefix" (endpoint path) or "substring".
	CacheInvalidation string `mapstructure:"CACHE_INVALIDATION"`
	// DashboardAddr is the address the dashboard server listens on (e.g. :3000).
	DashboardAddr string `mapstructure:"DASHBOARD_ADDR"`

	// OTLPEndpoint is the OTLP gRPC collector; empty means no-op telemetry providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	// LokiURL is an optional Loki base URL that also receives session events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", DefaultAPIBaseURL)
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("SESSION_FILE", "~/.savings-admin/session.json")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("CACHE_INVALIDATION", "prefix")
	v.SetDefault("DASHBOARD_ADDR", ":3000")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "savings-admin-console")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("config: API_BASE_URL must be an absolute http(s) URL")
	}

	switch strings.ToLower(cfg.CacheInvalidation) {
	case "", "prefix", "substring":
	default:
		return nil, errors.New("config: CACHE_INVALIDATION must be prefix or substring")
	}

	if cfg.Env == "production" && cfg.SessionSecret == "" {
		return nil, errors.New("config: SESSION_SECRET must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// HTTPTimeoutDuration parses HTTPTimeout. Returns 15s if unset or invalid.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// SessionFilePath returns SessionFile with a leading "~" expanded to the user's home directory.
func (c *Config) SessionFilePath() string {
	p := c.SessionFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// InvalidationMode maps CacheInvalidation to a cache match mode. Defaults to prefix matching.
func (c *Config) InvalidationMode() cache.MatchMode {
	if c != nil && strings.EqualFold(c.CacheInvalidation, "substring") {
		return cache.MatchSubstring
	}
	return cache.MatchPrefix
}
