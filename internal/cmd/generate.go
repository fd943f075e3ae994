package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/studio"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate thumbnails and save them to the library",
}

var generateVideoCmd = &cobra.Command{
	Use:   "video <youtube-url>",
	Short: "Generate a thumbnail for a YouTube video",
	Long: `Summarize a YouTube video, derive a style from the summary (unless --style
is given), render a thumbnail and save it to your library.

The video title is used as the thumbnail text unless --text is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerateVideo,
}

var generateCustomCmd = &cobra.Command{
	Use:   "custom",
	Short: "Generate a thumbnail from a style preset",
	Long: `Render a thumbnail from a style preset (minimal-tech by default) or a
literal --style, and save it to your library.`,
	Args: cobra.NoArgs,
	RunE: runGenerateCustom,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.AddCommand(generateVideoCmd)
	generateCmd.AddCommand(generateCustomCmd)

	generateVideoCmd.Flags().StringP("text", "t", "", "Text rendered on the thumbnail (default: video title)")
	generateVideoCmd.Flags().StringP("style", "s", "", "Use this style instead of generating one")
	generateVideoCmd.Flags().Bool("no-human", false, "Ask for a style without people")
	generateVideoCmd.Flags().Bool("no-text", false, "Ask for a style without text")

	generateCustomCmd.Flags().StringP("preset", "p", "", "Style preset slug (see 'presets list')")
	generateCustomCmd.Flags().StringP("style", "s", "", "Literal style (overrides --preset)")
	generateCustomCmd.Flags().StringP("text", "t", "", "Text rendered on the thumbnail")

	for _, c := range []*cobra.Command{generateVideoCmd, generateCustomCmd} {
		c.Flags().Bool("download", false, "Download the generated image")
		c.Flags().String("out-dir", "", "Download directory (default: downloads.dir)")
		c.Flags().Bool("json", false, "Output raw JSON result")
	}
}

func runGenerateVideo(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	style, _ := cmd.Flags().GetString("style")
	noHuman, _ := cmd.Flags().GetBool("no-human")
	noText, _ := cmd.Flags().GetBool("no-text")

	req := studio.VideoRequest{URL: args[0], CustomText: text, Style: style}
	if noHuman {
		req.IncludeHuman = boolPtr(false)
	}
	if noText {
		req.IncludeText = boolPtr(false)
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	ctx, cancel := backendContext(cmd.Context(), a.Config, 4)
	defer cancel()

	result, err := a.Studio.FromVideo(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(out, "Video:     %s (%s)\n", result.Details.Title, result.VideoLink)
		writeGenerated(out, result.Style, result.Thumbnail, result.RecordID)
	}

	return downloadGenerated(ctx, cmd, a, result.Thumbnail)
}

func runGenerateCustom(cmd *cobra.Command, _ []string) error {
	presetSlug, _ := cmd.Flags().GetString("preset")
	style, _ := cmd.Flags().GetString("style")
	text, _ := cmd.Flags().GetString("text")

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	ctx, cancel := backendContext(cmd.Context(), a.Config, 2)
	defer cancel()

	result, err := a.Studio.Custom(ctx, studio.CustomRequest{Preset: presetSlug, Style: style, CustomText: text})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		if result.Preset != "" {
			_, _ = fmt.Fprintf(out, "Preset:    %s\n", result.Preset)
		}
		writeGenerated(out, result.Style, result.Thumbnail, result.RecordID)
	}

	return downloadGenerated(ctx, cmd, a, result.Thumbnail)
}

func writeGenerated(w io.Writer, style string, thumb *genclient.ThumbnailResult, recordID string) {
	_, _ = fmt.Fprintf(w, "Style:     %s\n", style)
	_, _ = fmt.Fprintf(w, "Image:     %s\n", thumb.URL)
	_, _ = fmt.Fprintf(w, "Filename:  %s\n", thumb.Filename)
	_, _ = fmt.Fprintf(w, "Saved as:  %s\n", recordID)
}

// downloadGenerated saves the rendered image when --download is set. The
// thumbnail is already in the library, so a failed download only warns.
func downloadGenerated(ctx context.Context, cmd *cobra.Command, a *app, thumb *genclient.ThumbnailResult) error {
	download, _ := cmd.Flags().GetBool("download")
	if !download {
		return nil
	}
	outDir, _ := cmd.Flags().GetString("out-dir")
	dir, err := downloadDir(a, outDir)
	if err != nil {
		return err
	}

	sink := genclient.FileSink{Dir: dir}
	if err := a.Client.DownloadAsFile(ctx, thumb.URL, thumb.Filename, sink); err != nil {
		observability.CLILogger.Warn("Thumbnail saved to library but download failed",
			zap.String("url", thumb.URL), zap.Error(err))
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s\n", sink.PathFor(thumb.Filename))
	return nil
}

func downloadDir(a *app, flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = a.Config.Downloads.Dir
	}
	return ensureOutDir(dir)
}

func boolPtr(v bool) *bool { return &v }
