package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
)

var downloadCmd = &cobra.Command{
	Use:   "download <image-url>",
	Short: "Download a thumbnail image",
	Long: `Download a thumbnail image into the downloads directory. The file is
staged next to the target and only appears once fully written.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringP("filename", "o", "", "Target filename (default: last URL path segment)")
	downloadCmd.Flags().String("out-dir", "", "Download directory (default: downloads.dir)")
	downloadCmd.Flags().Bool("preview", false, "Also write a small jpeg preview next to the download")
}

func runDownload(cmd *cobra.Command, args []string) error {
	url := strings.TrimSpace(args[0])
	filename, _ := cmd.Flags().GetString("filename")
	outDir, _ := cmd.Flags().GetString("out-dir")
	preview, _ := cmd.Flags().GetBool("preview")

	if strings.TrimSpace(filename) == "" {
		filename = filenameFromURL(url)
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	dir, err := downloadDir(a, outDir)
	if err != nil {
		return err
	}

	ctx, cancel := backendContext(cmd.Context(), a.Config, 1)
	defer cancel()

	sink := genclient.FileSink{Dir: dir}
	if err := a.Client.DownloadAsFile(ctx, url, filename, sink); err != nil {
		return err
	}
	path := sink.PathFor(filename)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

	if preview {
		opts := defaultPreviewOptions()
		previewFile := previewPath(path, opts)
		if err := writePreview(path, previewFile, opts); err != nil {
			observability.CLILogger.Warn("Failed to write preview", zap.String("file", path), zap.Error(err))
			return nil
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), previewFile)
	}
	return nil
}

// filenameFromURL takes the last path segment of an image URL.
func filenameFromURL(url string) string {
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimRight(clean, "/")
	if i := strings.LastIndex(clean, "/"); i >= 0 {
		clean = clean[i+1:]
	}
	if clean == "" || !strings.Contains(clean, ".") {
		return sanitizeFilename(clean) + ".png"
	}
	return sanitizeFilename(clean)
}
