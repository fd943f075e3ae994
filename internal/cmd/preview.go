package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"
)

const (
	previewSuffix     = "preview"
	defaultPreviewMax = 320
)

// previewOptions control how previews of downloaded thumbnails are written.
type previewOptions struct {
	MaxSize     int
	Format      string
	JPEGQuality int
	Suffix      string
}

func defaultPreviewOptions() previewOptions {
	return previewOptions{MaxSize: defaultPreviewMax, Format: "jpeg", JPEGQuality: 80, Suffix: previewSuffix}
}

func (o previewOptions) validate() error {
	if o.MaxSize < 64 || o.MaxSize > 1280 {
		return errors.New("--max-size must be between 64 and 1280")
	}
	switch o.Format {
	case "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("unsupported preview format: %s", o.Format)
	}
	return nil
}

var previewCmd = &cobra.Command{
	Use:   "preview <file|dir>",
	Short: "Write small previews of downloaded thumbnails",
	Long: `Write scaled-down previews (png/jpeg) of downloaded thumbnails. Given a
directory, every png/jpeg image in it gets a preview next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().Int("max-size", defaultPreviewMax, "Max preview dimension (64-1280)")
	previewCmd.Flags().String("format", "jpeg", "Preview format: jpeg or png")
	previewCmd.Flags().Int("jpeg-quality", 80, "JPEG quality (1-100)")
	previewCmd.Flags().String("suffix", previewSuffix, "Filename suffix (e.g. 'preview' -> name.preview.jpg)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	opts := defaultPreviewOptions()
	opts.MaxSize, _ = cmd.Flags().GetInt("max-size")
	opts.Format, _ = cmd.Flags().GetString("format")
	opts.JPEGQuality, _ = cmd.Flags().GetInt("jpeg-quality")
	opts.Suffix, _ = cmd.Flags().GetString("suffix")
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if strings.TrimSpace(opts.Suffix) == "" {
		opts.Suffix = previewSuffix
	}
	if err := opts.validate(); err != nil {
		return err
	}

	target := strings.TrimSpace(args[0])
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	paths := []string{target}
	if info.IsDir() {
		paths, err = previewCandidates(target, opts.Suffix)
		if err != nil {
			return err
		}
	}

	for _, path := range paths {
		outPath := previewPath(path, opts)
		if err := writePreview(path, outPath, opts); err != nil {
			return fmt.Errorf("preview %s: %w", filepath.Base(path), err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), outPath)
	}
	return nil
}

// previewCandidates lists the images in dir that are not previews themselves.
func previewCandidates(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	marker := "." + strings.ToLower(suffix) + "."
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if !isImageName(lower) || strings.Contains(lower, marker) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

func isImageName(name string) bool {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// previewPath puts the preview next to the source: name.preview.jpg.
func previewPath(source string, opts previewOptions) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	ext := "jpg"
	if opts.Format == "png" {
		ext = "png"
	}
	return filepath.Join(filepath.Dir(source), fmt.Sprintf("%s.%s.%s", base, opts.Suffix, ext))
}

func writePreview(inPath, outPath string, opts previewOptions) error {
	inFile, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inFile.Close() // nolint:errcheck

	srcImg, _, err := image.Decode(inFile)
	if err != nil {
		return err
	}

	dst, err := scaleToFit(srcImg, opts.MaxSize)
	if err != nil {
		return err
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := encodeImage(outFile, dst, opts.Format, opts.JPEGQuality); err != nil {
		_ = outFile.Close()
		_ = os.Remove(outPath)
		return err
	}
	return outFile.Close()
}

// scaleToFit shrinks img so its longer side is at most maxSize. Images that
// already fit are copied unscaled.
func scaleToFit(img image.Image, maxSize int) (*image.RGBA, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	scale := min(float64(maxSize)/float64(max(width, height)), 1)
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst, nil
}

func encodeImage(w io.Writer, img image.Image, format string, jpegQuality int) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg", "jpg", "":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: min(max(jpegQuality, 1), 100)})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
