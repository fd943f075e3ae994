package config

import (
	"net/url"
	"strings"
	"time"
)

// Config is thumbsmith's settings tree. Load layers built-in defaults, then
// the config file (--config or $XDG_CONFIG_HOME/thumbsmith/config.yaml), then
// .env, THUMBSMITH_* variables and flags; later layers win.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Presets   PresetsConfig   `mapstructure:"presets"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// ServerConfig shapes `thumbsmith serve`. The write timeout has to outlast a
// thumbnail generation call.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken enables POST /admin/signal when set.
	AdminToken string `mapstructure:"admin_token"`
}

// BackendConfig points at the thumbnail generation backend.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each backend call, including image downloads.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LimitsConfig controls the client-side sliding window limiter.
type LimitsConfig struct {
	Window         time.Duration `mapstructure:"window"`
	ThumbnailQuota int           `mapstructure:"thumbnail_quota"`
	StyleQuota     int           `mapstructure:"style_quota"`

	// SummaryEnabled puts summary fetches behind their own quota.
	// Off by default: summaries were never limited.
	SummaryEnabled bool `mapstructure:"summary_enabled"`
	SummaryQuota   int  `mapstructure:"summary_quota"`

	// Store selects where windows live: memory, sqlite or redis.
	Store       string `mapstructure:"store"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`

	// FailOpen admits requests unmetered while the window store is
	// failing. Set it false to refuse them instead.
	FailOpen bool `mapstructure:"fail_open"`

	// PerUser gives each signed-in API user separate windows under serve.
	PerUser bool `mapstructure:"per_user"`
}

// StoreConfig selects the libSQL database: a local path or a Turso url.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// AuthConfig contains session and identity settings.
type AuthConfig struct {
	// SessionSecret signs API session tokens (HS256).
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`

	// UserID is the identity CLI commands act as.
	UserID string `mapstructure:"user_id"`
}

// PresetsConfig locates user style presets.
type PresetsConfig struct {
	Dir string `mapstructure:"dir"`
}

// DownloadsConfig controls where CLI downloads are written and which hosts
// GET /api/download may fetch from.
type DownloadsConfig struct {
	Dir string `mapstructure:"dir"`

	// AllowedHosts are extra image hosts (host or host:port) the server may
	// fetch. The backend host is always allowed.
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

// DownloadHosts returns the lowercased hosts GET /api/download may fetch:
// the backend's host:port plus downloads.allowed_hosts.
func (c *Config) DownloadHosts() []string {
	var hosts []string
	if u, err := url.Parse(strings.TrimSpace(c.Backend.BaseURL)); err == nil && u.Host != "" {
		hosts = append(hosts, strings.ToLower(u.Host))
	}
	for _, h := range c.Downloads.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// LoggingConfig sets the server log level: trace, debug, info, warn or
// error. CLI commands log at info, or debug with --verbose.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus exporter. Port 0 picks a free port;
// GET /metrics on the main port proxies to it either way.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DebugConfig contains debug settings.
type DebugConfig struct {
	// TraceFile records backend exchanges as NDJSON when set.
	TraceFile string `mapstructure:"trace_file"`
}
