package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/output"
)

func sinkCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "sample"}
	c.Flags().String("out", "", "")
	c.Flags().String("out-dir", "", "")
	c.Flags().String("output-format", "table", "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestResolveOutputTargets(t *testing.T) {
	outPath, outDir, err := resolveOutputTargets(sinkCommand(t, "--out", " report.json "))
	require.NoError(t, err)
	require.Equal(t, "report.json", outPath)
	require.Empty(t, outDir)

	_, _, err = resolveOutputTargets(sinkCommand(t, "--out", "a", "--out-dir", "b"))
	require.ErrorIs(t, err, errOutTargetsExclusive)
}

func TestResolveOutputFormat(t *testing.T) {
	format, err := resolveOutputFormat(sinkCommand(t, "--output-format", "json"))
	require.NoError(t, err)
	require.Equal(t, output.FormatJSON, format)
	require.Equal(t, "json", outputExtension(format))
	require.Equal(t, "md", outputExtension(output.FormatMarkdown))
	require.Equal(t, "txt", outputExtension(output.FormatTable))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "alice-example.com", sanitizeFilename(" Alice@Example.com "))
	require.Equal(t, "output", sanitizeFilename("..."))
}

func TestOpenSinkCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.json")
	sink, err := openSink(path)
	require.NoError(t, err)
	_, err = sink.writer.Write([]byte("[]"))
	require.NoError(t, err)
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))

	stdout, err := openSink("-")
	require.NoError(t, err)
	require.Equal(t, "-", stdout.path)
}

func TestWriteVersion(t *testing.T) {
	var short, full bytes.Buffer
	writeVersion(&short, false)
	writeVersion(&full, true)

	require.Equal(t, config.AppName+" "+versionInfo.Version+"\n", short.String())
	require.Contains(t, full.String(), "Commit:")
	require.Contains(t, full.String(), "gofulmen:")
}
