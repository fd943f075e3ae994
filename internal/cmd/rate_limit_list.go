package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/output"
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show window usage per endpoint",
	Args:  cobra.NoArgs,
	RunE:  runRateLimitList,
}

func init() {
	rateLimitListCmd.Flags().StringSlice("endpoint", nil, "Endpoints to show: thumbnail, style, summary (default: all)")
	rateLimitListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	rateLimitListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().String("out-dir", "", "Write output to a directory")
}

func runRateLimitList(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("endpoint")
	endpoints, err := selectEndpoints(names, len(names) == 0)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	windows := make([]genclient.WindowStatus, 0, len(endpoints))
	for _, endpoint := range endpoints {
		status, err := a.Limiter.Status(cmd.Context(), endpoint)
		if err != nil {
			return fmt.Errorf("%s window: %w", endpoint, err)
		}
		windows = append(windows, status)
	}

	rendered, err := output.NewFormatter(format).FormatWindows(windows)
	if err != nil {
		return err
	}

	if outDir != "" {
		if outDir, err = ensureOutDir(outDir); err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("rate-limit.list.%s", outputExtension(format)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}
