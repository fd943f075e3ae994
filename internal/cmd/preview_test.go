package cmd

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
}

func TestWritePreviewShrinksImage(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "thumbnail-custom-1.png")
	writePNG(t, inPath, 1280, 720)

	opts := defaultPreviewOptions()
	outPath := previewPath(inPath, opts)
	require.Equal(t, filepath.Join(dir, "thumbnail-custom-1.preview.jpg"), outPath)
	require.NoError(t, writePreview(inPath, outPath, opts))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 320, cfg.Width)
	require.Equal(t, 180, cfg.Height)
}

func TestScaleToFitKeepsSmallImages(t *testing.T) {
	dst, err := scaleToFit(image.NewRGBA(image.Rect(0, 0, 100, 50)), 320)
	require.NoError(t, err)
	require.Equal(t, 100, dst.Bounds().Dx())
	require.Equal(t, 50, dst.Bounds().Dy())
}

func TestPreviewCandidatesSkipsPreviews(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 10, 10)
	writePNG(t, filepath.Join(dir, "a.preview.png"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	paths, err := previewCandidates(dir, previewSuffix)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.png")}, paths)
}

func TestPreviewOptionsValidate(t *testing.T) {
	opts := defaultPreviewOptions()
	require.NoError(t, opts.validate())

	opts.MaxSize = 10
	require.Error(t, opts.validate())

	opts = defaultPreviewOptions()
	opts.Format = "gif"
	require.Error(t, opts.validate())
}
