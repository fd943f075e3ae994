package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/config"
	errwrap "github.com/thumbsmith/thumbsmith/internal/errors"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/server"
	"github.com/thumbsmith/thumbsmith/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker reports unhealthy once the exporter is gone.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation API over HTTP",
	Long: `Serve health, version and metrics endpoints, plus the generation,
studio and library API under /api when auth.session_secret is set.
Issue API tokens with 'thumbsmith session issue'.

Signals:
  SIGINT/SIGTERM   graceful shutdown (twice within 2s forces quit)
  SIGHUP           re-read and validate the config file; backend, limits
                   and store changes apply on the next restart`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	observability.InitServerLogger(config.AppName, viper.GetString("logging.level"), config.AppName)
	logger := observability.ServerLogger

	a, err := openApp(ctx, logger, appOptions{withStore: true, provider: auth.ContextProvider{}})
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "application initialization failed")
	}
	cfg := a.Config

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port, config.AppName); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			_ = a.Close()
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	logger.Info("Initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("limits_store", cfg.Limits.Store))

	srv := buildServer(a)
	registerShutdown(srv, a, cfg.Server.ShutdownTimeout)
	signals.OnReload(reloadConfig)

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errCh <- err
		}
	}()

	if err := <-errCh; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// buildServer registers health checks and mounts the API when sessions can
// be verified.
func buildServer(a *app) *server.Server {
	cfg := a.Config
	logger := observability.ServerLogger

	handlers.SetAppName(config.AppName)
	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	if cfg.Metrics.Enabled {
		hm.RegisterOptional("telemetry", telemetryHealthChecker{})
	}
	hm.RegisterChecker("store", handlers.CheckFunc(a.pingStore))
	// with limits.fail_open the limiter admits requests while its store is down
	hm.RegisterOptional("rate_limit_store", handlers.CheckFunc(a.pingLimiter))

	srv := server.New(cfg.Server.Host, cfg.Server.Port)
	srv.SetTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	srv.EnableAdminSignals(cfg.Server.AdminToken)

	sessions, err := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		logger.Warn("API disabled: no session secret configured",
			zap.String("env", config.EnvPrefix+"_AUTH_SESSION_SECRET"))
		return srv
	}
	if cfg.Limits.PerUser && a.Limiter != nil {
		a.Limiter.Scope = auth.UserScope
	}
	srv.MountAPI(&handlers.API{
		Client:  a.Client,
		Studio:  a.Studio,
		Library: a.Library,
		Presets: a.Presets,

		DownloadHosts: cfg.DownloadHosts(),
	}, sessions)
	return srv
}

// registerShutdown queues the shutdown steps. gofulmen runs them LIFO, so
// the HTTP server stops first and the logger flushes last.
func registerShutdown(srv *server.Server, a *app, timeout time.Duration) {
	logger := observability.ServerLogger
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	signals.OnShutdown(func(context.Context) error {
		if err := logger.Sync(); err != nil {
			// stderr may already be closed
			logger.Debug("Logger sync returned error", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(context.Context) error {
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Failed to stop metrics exporter", zap.Error(err))
		}
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close store or limiter", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped")
		return nil
	})
}

func reloadConfig(ctx context.Context) error {
	logger := observability.ServerLogger
	logger.Info("Received SIGHUP, reloading config")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Info("No config file found, keeping defaults and environment")
			return nil
		}
		logger.Error("Failed to reload config file",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	if _, err := config.Load(nil); err != nil {
		logger.Error("Reloaded config is invalid", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	logger.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
