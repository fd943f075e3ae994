package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/output"
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear rate limit windows",
	Args:  cobra.NoArgs,
	RunE:  runRateLimitReset,
}

func init() {
	rateLimitResetCmd.Flags().Bool("all", false, "Reset all endpoints")
	rateLimitResetCmd.Flags().StringSlice("endpoint", nil, "Endpoints to reset: thumbnail, style, summary")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Show what would be cleared")
	rateLimitResetCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
}

type resetResult struct {
	Endpoint genclient.Endpoint `json:"endpoint"`
	Cleared  int                `json:"cleared"`
}

func runRateLimitReset(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	all, _ := cmd.Flags().GetBool("all")
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	names, _ := cmd.Flags().GetStringSlice("endpoint")

	endpoints, err := selectEndpoints(names, all)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return errors.New("specify --endpoint or --all")
	}
	if all && !yes && !dryRun {
		return errors.New("--all requires --yes (or use --dry-run)")
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	results := make([]resetResult, 0, len(endpoints))
	for _, endpoint := range endpoints {
		stamps, err := a.Limiter.Snapshot(cmd.Context(), endpoint)
		if err != nil {
			return fmt.Errorf("%s window: %w", endpoint, err)
		}
		if !dryRun {
			if err := a.Limiter.Reset(cmd.Context(), endpoint); err != nil {
				return fmt.Errorf("reset %s: %w", endpoint, err)
			}
		}
		results = append(results, resetResult{Endpoint: endpoint, Cleared: len(stamps)})
	}

	return writeResetResults(cmd.OutOrStdout(), format, results, dryRun)
}

func writeResetResults(w io.Writer, format output.Format, results []resetResult, dryRun bool) error {
	if format == output.FormatJSON {
		return writeJSON(w, map[string]any{"dry_run": dryRun, "endpoints": results})
	}

	verb := "Cleared"
	if dryRun {
		verb = "Would clear"
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s %d request(s) from %s window\n", verb, r.Cleared, r.Endpoint); err != nil {
			return err
		}
	}
	return nil
}
