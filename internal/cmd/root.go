package cmd

import (
	"errors"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string
	userID    string
	backend   string

	// build stamp from main
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records the build stamp for `version` and GET /version.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Generate YouTube thumbnails from videos and style presets",
	Long: `thumbsmith generates YouTube thumbnails from video links and style presets.

It calls a thumbnail generation backend behind client-side rate limits,
keeps a per-user library of generated thumbnails and serves the same
operations over HTTP with 'thumbsmith serve'.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Commands that load config must not emit metrics on stdout; serve
	// installs the real telemetry system later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/thumbsmith/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&traceFile, "trace", "", "append backend requests and responses to this NDJSON file")
	flags.StringVar(&userID, "user", "", "user id CLI commands act as (overrides auth.user_id)")
	flags.StringVar(&backend, "backend", "", "generation backend base URL (overrides backend.base_url)")

	for key, flag := range map[string]string{
		"verbose":          "verbose",
		"auth.user_id":     "user",
		"backend.base_url": "backend",
		"debug.trace_file": "trace",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)
	logger := observability.CLILogger

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	configureSearchPaths(viper.GetViper())
	config.ConfigureEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		logger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	case errors.As(err, &notFound):
		logger.Debug("No config file found, using defaults and environment")
	default:
		logger.Warn("Error reading config file", zap.Error(err))
	}

	if path := viper.GetString("debug.trace_file"); path != "" {
		// the trace file stays open until the process exits
		if _, err := genclient.EnableTracing(path); err != nil {
			logger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			logger.Debug("Backend tracing enabled", zap.String("file", path))
		}
	}
}

// configureSearchPaths points v at --config, else the XDG config dir, else
// ~/.thumbsmith.yaml. ./config is always searched too.
func configureSearchPaths(v *viper.Viper) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}

	if dir := config.DefaultConfigDir(); dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName("." + config.AppName)
	}
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")
}
