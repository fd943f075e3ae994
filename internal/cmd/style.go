package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

const maxSummaryBytes = 64 * 1024

var styleCmd = &cobra.Command{
	Use:   "style [summary]",
	Short: "Generate a thumbnail style from a video summary",
	Long: `Generate a thumbnail style prompt from a video summary.

The summary is read from the argument, from --summary-file, or from stdin
when the argument is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStyle,
}

func init() {
	rootCmd.AddCommand(styleCmd)

	styleCmd.Flags().StringP("summary-file", "f", "", "Read the summary from a file")
	styleCmd.Flags().Bool("no-human", false, "Ask for a style without people")
	styleCmd.Flags().Bool("no-text", false, "Ask for a style without text")
	styleCmd.Flags().Bool("json", false, "Output raw JSON response")
}

func runStyle(cmd *cobra.Command, args []string) error {
	summaryFile, _ := cmd.Flags().GetString("summary-file")
	noHuman, _ := cmd.Flags().GetBool("no-human")
	noText, _ := cmd.Flags().GetBool("no-text")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	summary, err := readSummary(cmd.InOrStdin(), args, summaryFile)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	ctx, cancel := backendContext(cmd.Context(), a.Config, 1)
	defer cancel()

	req := genclient.NewStyleRequest(summary)
	req.IncludeHuman = !noHuman
	req.IncludeText = !noText

	generated, err := a.Client.GenerateStyle(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), generated)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), generated.Style)
	return err
}

func readSummary(stdin io.Reader, args []string, path string) (string, error) {
	var summary string
	switch {
	case strings.TrimSpace(path) != "" && len(args) > 0:
		return "", errors.New("pass a summary or --summary-file, not both")
	case strings.TrimSpace(path) != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading summary file: %w", err)
		}
		summary = string(data)
	case len(args) > 0 && args[0] == "-":
		data, err := io.ReadAll(io.LimitReader(stdin, maxSummaryBytes))
		if err != nil {
			return "", fmt.Errorf("reading summary: %w", err)
		}
		summary = string(data)
	case len(args) > 0:
		summary = args[0]
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("summary is required")
	}
	return summary, nil
}
