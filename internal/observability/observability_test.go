package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevelName(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" info ":  "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelName(in), in)
	}
}

func TestServerLoggerConfig(t *testing.T) {
	cfg := serverLoggerConfig(ServerLogOptions{Service: "thumbsmith", Level: "debug", Namespace: "gen"})
	require.Equal(t, logging.ProfileStructured, cfg.Profile)
	require.Equal(t, "DEBUG", cfg.DefaultLevel)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "gen", cfg.StaticFields["namespace"])
	require.Len(t, cfg.Sinks, 1)
	require.Equal(t, "json", cfg.Sinks[0].Format)

	cfg = serverLoggerConfig(ServerLogOptions{Service: "thumbsmith", Environment: "test"})
	require.Equal(t, "test", cfg.Environment)
	require.NotContains(t, cfg.StaticFields, "namespace")

	logger, err := logging.New(cfg)
	require.NoError(t, err)
	logger.Info("thumbnail generated", zap.String("record", "r1"))
}

func TestLoggersInitialize(t *testing.T) {
	InitCLILogger("thumbsmith-test", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("verbose output", zap.String("kind", "style"))

	InitServerLogger("thumbsmith-test", "info", "test")
	require.NotNil(t, ServerLogger)
	ServerLogger.Info("request served", zap.Int("status", 200))

	logger, err := NewCLILogger("thumbsmith-test", false)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestStopMetricsWithoutExporter(t *testing.T) {
	PrometheusExporter = nil
	TelemetrySystem = nil
	require.NoError(t, StopMetrics())
	require.Nil(t, TelemetrySystem)
}
