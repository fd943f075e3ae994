package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/output"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage your saved thumbnails",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your thumbnails, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your thumbnails",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryDelete,
}

var libraryDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download one of your thumbnails",
	Long:  "Download a saved thumbnail as thumbnail-<type>-<epoch-ms>.png.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryDownload,
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryDeleteCmd)
	libraryCmd.AddCommand(libraryDownloadCmd)

	libraryListCmd.Flags().String("type", "", "Only list thumbnails of this type: youtube|custom")
	libraryListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	libraryListCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	libraryListCmd.Flags().String("out-dir", "", "Write output to a directory")

	libraryDownloadCmd.Flags().String("out-dir", "", "Download directory (default: downloads.dir)")
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	var kind core.ThumbnailType
	if value, _ := cmd.Flags().GetString("type"); value != "" {
		if kind, err = core.ParseThumbnailType(value); err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	records, err := a.Library.List(cmd.Context())
	if err != nil {
		return err
	}
	if kind != "" {
		records = filterByType(records, kind)
	}

	rendered, err := output.NewFormatter(format).FormatLibrary(records)
	if err != nil {
		return err
	}

	if outDir != "" {
		if outDir, err = ensureOutDir(outDir); err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("library.%s.%s", sanitizeFilename(a.Config.Auth.UserID), outputExtension(format)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}

func filterByType(records []core.ThumbnailRecord, kind core.ThumbnailType) []core.ThumbnailRecord {
	filtered := make([]core.ThumbnailRecord, 0, len(records))
	for _, r := range records {
		if r.Type == kind {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func runLibraryDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	if err := a.Library.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return err
}

func runLibraryDownload(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")

	a, err := openApp(cmd.Context(), observability.CLILogger, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck // best-effort cleanup

	record, err := a.Library.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	dir, err := downloadDir(a, outDir)
	if err != nil {
		return err
	}

	ctx, cancel := backendContext(cmd.Context(), a.Config, 1)
	defer cancel()

	filename := record.DownloadFilename(time.Now())
	sink := genclient.FileSink{Dir: dir}
	if err := a.Client.DownloadAsFile(ctx, record.ImageURL, filename, sink); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), sink.PathFor(filename))
	return err
}
