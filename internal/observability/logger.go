package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-oriented console output for commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON lines for `serve`.
	ServerLogger *logging.Logger
)

// ServerLogOptions shapes the structured logger used by the HTTP server.
type ServerLogOptions struct {
	Service     string
	Level       string
	Namespace   string
	Environment string
}

var levelNames = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// NewCLILogger builds the console logger. Verbose drops the level to DEBUG.
func NewCLILogger(service string, verbose bool) (*logging.Logger, error) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		return nil, err
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	return logger, nil
}

// InitCLILogger sets CLILogger or exits when the logger cannot be built.
func InitCLILogger(service string, verbose bool) {
	logger, err := NewCLILogger(service, verbose)
	if err != nil {
		fatal("Failed to initialize CLI logger", err)
	}
	CLILogger = logger
}

// InitServerLogger sets ServerLogger. The optional namespace is attached to
// every entry so generation logs can be told apart from other services.
func InitServerLogger(service string, level string, namespace ...string) {
	opts := ServerLogOptions{Service: service, Level: level}
	if len(namespace) > 0 {
		opts.Namespace = namespace[0]
	}

	logger, err := logging.New(serverLoggerConfig(opts))
	if err != nil {
		fatal("Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(opts ServerLogOptions) *logging.LoggerConfig {
	static := map[string]any{}
	if ns := strings.TrimSpace(opts.Namespace); ns != "" {
		static["namespace"] = ns
	}
	env := strings.TrimSpace(opts.Environment)
	if env == "" {
		env = "production"
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: LevelName(opts.Level),
		Service:      opts.Service,
		Environment:  env,
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// LevelName maps a config level (any case) to the gofulmen severity name.
// Unknown values log at INFO.
func LevelName(level string) string {
	if name, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return name
	}
	return "INFO"
}

// fatal is used before any logger exists, so it writes to stderr directly.
func fatal(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s)\n", info.Code, info.Name)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
