package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <youtube-url>",
	Short: "Summarize a YouTube video",
	Long:  "Fetch the summary, title and thumbnail of a YouTube video from the generation backend.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().Bool("json", false, "Output raw JSON response")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	videoID, err := core.ExtractVideoID(args[0])
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

	details, err := a.Client.FetchVideoSummary(ctx, videoID)
	if err != nil {
		return err
	}

	if details.ThumbnailURL == "" {
		details.ThumbnailURL = core.PreviewImageURL(videoID)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, details)
	}
	_, _ = fmt.Fprintf(out, "Title: %s\n", details.Title)
	_, _ = fmt.Fprintf(out, "Thumbnail: %s\n", details.ThumbnailURL)
	_, _ = fmt.Fprintf(out, "\n%s\n", details.Summary)
	return nil
}

func writeJSON(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}
