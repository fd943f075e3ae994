package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	fulerrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
)

// ExitWithCode logs err with the foundry exit code metadata and exits.
// A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, code foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(code, msg, err)
		return
	}
	status, name, description := exitMeta(code)

	fields := []zap.Field{
		zap.Int("exit_code", status),
		zap.String("exit_name", name),
		zap.String("exit_description", description),
	}
	var envelope *fulerrors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID))
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
	os.Exit(status)
}

// ExitWithCodeStderr is ExitWithCode for failures before any logger exists.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	status, name, description := exitMeta(code)
	fmt.Fprintln(os.Stderr, fatalLine(msg, err))
	if name != "" {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", status, name, description)
	}
	os.Exit(status)
}

func exitMeta(code foundry.ExitCode) (int, string, string) {
	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		return int(code), "", ""
	}
	return info.Code, info.Name, info.Description
}

func fatalLine(msg string, err error) string {
	var envelope *fulerrors.ErrorEnvelope
	switch {
	case err == nil:
		return "FATAL: " + msg
	case stderrors.As(err, &envelope) && envelope != nil:
		return fmt.Sprintf("FATAL: %s [%s]: %s (correlation: %s)", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
	default:
		return fmt.Sprintf("FATAL: %s: %v", msg, err)
	}
}

// ExitCodeFor maps a command error to a foundry exit code. Unreachable
// backends and rate limits are reported as an unavailable external service.
func ExitCodeFor(err error) foundry.ExitCode {
	if failure, ok := genclient.AsFailure(err); ok {
		switch failure.Kind {
		case genclient.KindNetwork, genclient.KindRateLimited:
			return foundry.ExitExternalServiceUnavailable
		}
		return foundry.ExitFailure
	}
	switch {
	case stderrors.Is(err, auth.ErrUnauthenticated):
		return foundry.ExitConfigInvalid
	case stderrors.Is(err, os.ErrNotExist):
		return foundry.ExitFileNotFound
	}
	return foundry.ExitFailure
}
