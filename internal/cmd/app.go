package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/viper"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/core/store"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/library"
	"github.com/thumbsmith/thumbsmith/internal/preset"
	"github.com/thumbsmith/thumbsmith/internal/studio"
)

// app holds the components a command runs against.
type app struct {
	Config  *config.Config
	Store   *store.Store
	Limiter *genclient.RateLimiter
	Client  *genclient.Client
	Library *library.Service
	Presets preset.Registry
	Studio  *studio.Studio

	redis   *genclient.RedisWindowStore
	closers []func() error
}

type appOptions struct {
	// withStore opens and migrates the thumbnail database.
	withStore bool

	// provider overrides the static CLI identity.
	provider auth.Provider
}

// openApp loads configuration and wires the client, limiter, library and
// studio. Callers must Close the result.
func openApp(ctx context.Context, logger *logging.Logger, opts appOptions) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{Config: cfg}

	if opts.withStore || cfg.Limits.Store == config.LimitStoreSQLite {
		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Store = db
	}

	limiter, err := a.buildLimiter()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Limiter = limiter

	client := genclient.NewClient(cfg.Backend.BaseURL, limiter)
	client.Timeout = cfg.Backend.Timeout
	client.LimitSummary = cfg.Limits.SummaryEnabled
	client.FailClosed = !cfg.Limits.FailOpen
	client.Logger = logger
	a.Client = client

	presets, err := preset.DefaultRegistry(cfg.Presets.Dir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load presets: %w", err)
	}
	a.Presets = presets

	provider := opts.provider
	if provider == nil {
		provider = auth.NewStaticProvider(cfg.Auth.UserID)
	}

	var lib studio.Library
	if a.Store != nil {
		a.Library = library.New(a.Store, provider)
		a.Library.Logger = logger
		lib = a.Library
	}

	a.Studio = &studio.Studio{
		Client:  client,
		Library: lib,
		Presets: presets,
		Auth:    provider,
		Logger:  logger,
	}

	return a, nil
}

func (a *app) buildLimiter() (*genclient.RateLimiter, error) {
	cfg := a.Config.Limits
	limiter := &genclient.RateLimiter{Limits: limitsFromConfig(cfg)}

	switch cfg.Store {
	case config.LimitStoreSQLite:
		limiter.Store = a.Store.RateWindows()
	case config.LimitStoreRedis:
		rs, err := genclient.NewRedisWindowStoreFromURL(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect limiter store: %w", err)
		}
		a.redis = rs
		a.closers = append(a.closers, rs.Close)
		limiter.Store = rs
	default:
		limiter.Store = genclient.NewMemoryWindowStore()
	}
	return limiter, nil
}

func limitsFromConfig(cfg config.LimitsConfig) map[genclient.Endpoint]genclient.RateLimit {
	window := cfg.Window
	if window <= 0 {
		window = genclient.DefaultWindow
	}
	return map[genclient.Endpoint]genclient.RateLimit{
		genclient.EndpointThumbnail: {Requests: cfg.ThumbnailQuota, Window: window},
		genclient.EndpointStyle:     {Requests: cfg.StyleQuota, Window: window},
		genclient.EndpointSummary:   {Requests: cfg.SummaryQuota, Window: window},
	}
}

// pingStore reports whether the thumbnail database answers.
func (a *app) pingStore(ctx context.Context) error {
	if a.Store == nil || a.Store.DB == nil {
		return fmt.Errorf("store is not open")
	}
	return a.Store.DB.PingContext(ctx)
}

// pingLimiter reports whether a shared limiter store answers.
func (a *app) pingLimiter(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx)
}

func (a *app) Close() error {
	var errs []string
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// backendContext bounds a whole CLI flow so a stuck backend cannot hang it.
func backendContext(ctx context.Context, cfg *config.Config, calls int) (context.Context, context.CancelFunc) {
	timeout := cfg.Backend.Timeout
	if timeout <= 0 {
		timeout = genclient.DefaultTimeout
	}
	return context.WithTimeout(ctx, time.Duration(calls)*timeout)
}
