package output

import (
	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

// MarkdownFormatter renders listings as markdown tables.
type MarkdownFormatter struct{}

// FormatLibrary renders a user's thumbnails as Markdown.
func (f *MarkdownFormatter) FormatLibrary(records []core.ThumbnailRecord) (string, error) {
	return f.table().FormatLibrary(records)
}

// FormatPresets renders the preset catalog as Markdown.
func (f *MarkdownFormatter) FormatPresets(presets []*preset.Preset) (string, error) {
	return f.table().FormatPresets(presets)
}

// FormatWindows renders limiter window usage as Markdown.
func (f *MarkdownFormatter) FormatWindows(windows []genclient.WindowStatus) (string, error) {
	return f.table().FormatWindows(windows)
}

func (f *MarkdownFormatter) table() *TableFormatter {
	return &TableFormatter{Markdown: true}
}
