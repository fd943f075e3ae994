// Package config provides centralized configuration management for thumbsmith.
// Defaults, the user config file and THUMBSMITH_* environment variables are
// layered through viper and decoded into a typed Config with mapstructure.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names the binary and its XDG directories.
	AppName = "thumbsmith"

	// EnvPrefix prefixes every environment override (THUMBSMITH_BACKEND_BASE_URL).
	EnvPrefix = "THUMBSMITH"
)

// Window store backends.
const (
	LimitStoreMemory = "memory"
	LimitStoreSQLite = "sqlite"
	LimitStoreRedis  = "redis"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// NewViper returns a viper instance with defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	ConfigureEnv(v)
	SetDefaults(v)
	return v
}

// ConfigureEnv maps nested keys to THUMBSMITH_* variables.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers every configuration key with its default value.
// Keys must be registered for environment overrides to be visible.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.timeout", "120s")

	// Limiter defaults
	v.SetDefault("limits.window", "30s")
	v.SetDefault("limits.thumbnail_quota", 2)
	v.SetDefault("limits.style_quota", 2)
	v.SetDefault("limits.summary_enabled", false)
	v.SetDefault("limits.summary_quota", 2)
	v.SetDefault("limits.store", LimitStoreMemory)
	v.SetDefault("limits.redis_url", "")
	v.SetDefault("limits.redis_prefix", "thumbsmith:ratelimit")
	v.SetDefault("limits.fail_open", true)
	v.SetDefault("limits.per_user", true)

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Auth defaults
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.user_id", "local")

	v.SetDefault("presets.dir", DefaultPresetsDir())
	v.SetDefault("downloads.dir", ".")
	v.SetDefault("downloads.allowed_hosts", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("debug.trace_file", "")
}

// LoadDotEnv loads variables from .env files that exist. Variables already
// set in the environment are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load decodes the layered settings in v into a Config. Runtime overrides
// are nested maps merged over the settings (e.g. {"limits": {"store": "redis"}}).
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	merged := v.AllSettings()
	for _, overrides := range runtimeOverrides {
		mergeSettings(merged, overrides)
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	cfg.Limits.Store = strings.ToLower(strings.TrimSpace(cfg.Limits.Store))
	if cfg.Limits.Store == "" {
		cfg.Limits.Store = LimitStoreMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	parsed, err := url.Parse(strings.TrimSpace(c.Backend.BaseURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout < 0 {
		return errors.New("backend.timeout must not be negative")
	}

	if c.Limits.Window < 0 {
		return errors.New("limits.window must not be negative")
	}
	if c.Limits.ThumbnailQuota < 0 || c.Limits.StyleQuota < 0 || c.Limits.SummaryQuota < 0 {
		return errors.New("limits quotas must not be negative")
	}
	switch c.Limits.Store {
	case LimitStoreMemory, LimitStoreSQLite:
	case LimitStoreRedis:
		if strings.TrimSpace(c.Limits.RedisURL) == "" {
			return errors.New("limits.redis_url is required when limits.store is redis")
		}
	default:
		return fmt.Errorf("limits.store must be memory, sqlite or redis, got %q", c.Limits.Store)
	}

	if c.Auth.SessionTTL < 0 {
		return errors.New("auth.session_ttl must not be negative")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func mergeSettings(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeSettings(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	return gfconfig.GetAppCacheDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

// DefaultPresetsDir returns where user style presets are looked up.
func DefaultPresetsDir() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "presets")
}
