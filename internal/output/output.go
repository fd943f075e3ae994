package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

// Format names a listing layout.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders CLI listings.
type Formatter interface {
	FormatLibrary(records []core.ThumbnailRecord) (string, error)
	FormatPresets(presets []*preset.Preset) (string, error)
	FormatWindows(windows []genclient.WindowStatus) (string, error)
}

var formatAliases = map[string]Format{
	"":         FormatTable,
	"table":    FormatTable,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
}

// ParseFormat accepts a format name in any case. Empty means table.
func ParseFormat(value string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", value)
}

// NewFormatter returns the formatter for format, falling back to a table.
func NewFormatter(format Format) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	if format == FormatMarkdown {
		return &MarkdownFormatter{}
	}
	return &TableFormatter{}
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func windowRetry(w genclient.WindowStatus) string {
	if w.RetryAfter <= 0 {
		return "-"
	}
	return w.RetryAfter.Round(100 * time.Millisecond).String()
}
