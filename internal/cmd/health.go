package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/thumbsmith/thumbsmith/internal/errors"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

const healthCheckTimeout = 5 * time.Second

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: configuration, presets, the thumbnail store and
the rate limit store. Use --backend-check to also check the generation backend.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		// Check 1: Version info available
		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		// Check 2: Configuration, presets and store open cleanly
		a, err := openApp(cmd.Context(), logger, appOptions{withStore: true})
		if err != nil {
			logger.Error("❌ FAIL: Configuration invalid", zap.Error(err))
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup
		logger.Info("✅ Configuration loaded", zap.Int("presets", len(a.Presets.List())))

		ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
		defer cancel()

		// Check 3: Thumbnail store
		if err := a.pingStore(ctx); err != nil {
			logger.Error("❌ FAIL: Thumbnail store unreachable", zap.Error(err))
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Thumbnail store unreachable", err)
			return
		}
		logger.Info("✅ Thumbnail store reachable", zap.String("driver", a.Store.Driver()))

		// Check 4: Rate limit store
		if err := a.pingLimiter(ctx); err != nil {
			logger.Error("❌ FAIL: Rate limit store unreachable", zap.Error(err))
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Rate limit store unreachable", err)
			return
		}
		logger.Info("✅ Rate limit store ready", zap.String("store", a.Config.Limits.Store))

		// Check 5 (optional): Generation backend answers
		if check, _ := cmd.Flags().GetBool("backend-check"); check {
			if err := pingBackend(ctx, a.Config.Backend.BaseURL); err != nil {
				logger.Error("❌ FAIL: Generation backend unreachable", zap.Error(err))
				ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Generation backend unreachable", err)
				return
			}
			logger.Info("✅ Generation backend reachable", zap.String("url", a.Config.Backend.BaseURL))
		}

		// Overall status
		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Bool("backend-check", false, "Also check that the generation backend answers HTTP")
}
