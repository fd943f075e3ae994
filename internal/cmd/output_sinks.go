package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/output"
)

// outputSink is where a listing command writes its rendered report.
type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

var (
	errOutTargetsExclusive = errors.New("--out and --out-dir are mutually exclusive")

	unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

	formatExtensions = map[output.Format]string{
		output.FormatJSON:     "json",
		output.FormatMarkdown: "md",
	}
)

func outputExtension(format output.Format) string {
	if ext, ok := formatExtensions[format]; ok {
		return ext
	}
	return "txt"
}

// sanitizeFilename lowercases value and collapses anything outside
// [a-z0-9._-] to a dash.
func sanitizeFilename(value string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if name = strings.Trim(name, "-."); name == "" {
		return "output"
	}
	return name
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	raw, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(raw)
}

// resolveOutputTargets reads --out and --out-dir. At most one may be set.
func resolveOutputTargets(cmd *cobra.Command) (string, string, error) {
	flags := cmd.Flags()
	outPath, err := flags.GetString("out")
	if err != nil {
		return "", "", err
	}
	outDir, err := flags.GetString("out-dir")
	if err != nil {
		return "", "", err
	}

	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)
	if outPath != "" && outDir != "" {
		return "", "", errOutTargetsExclusive
	}
	return outPath, outDir, nil
}

// openSink opens path for writing, creating parent directories. An empty
// path or "-" means stdout.
func openSink(path string) (*outputSink, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if _, err := ensureOutDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &outputSink{writer: file, close: file.Close, path: path}, nil
}

// ensureOutDir creates dir and returns its absolute form. Empty input is a
// no-op.
func ensureOutDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs, nil
	}
	return dir, nil
}
