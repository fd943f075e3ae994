package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

const styleColumnWidth = 48

// TableFormatter renders listings as ASCII tables.
type TableFormatter struct {
	// Markdown switches the renderer to markdown tables.
	Markdown bool
}

// FormatLibrary renders a user's thumbnails, newest first as given.
func (f *TableFormatter) FormatLibrary(records []core.ThumbnailRecord) (string, error) {
	t := f.newWriter()
	t.AppendHeader(table.Row{"ID", "Type", "Created", "Style", "Video"})
	for _, r := range records {
		video := r.VideoLink
		if video == "" {
			video = "-"
		}
		t.AppendRow(table.Row{
			r.ID,
			string(r.Type),
			r.CreatedAt.UTC().Format(time.RFC3339),
			truncate(r.Style, styleColumnWidth),
			video,
		})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d thumbnail(s)", len(records)), ""})
	return f.render(t), nil
}

// FormatPresets renders the preset catalog.
func (f *TableFormatter) FormatPresets(presets []*preset.Preset) (string, error) {
	t := f.newWriter()
	t.AppendHeader(table.Row{"Slug", "Name", "Style"})
	for _, p := range presets {
		if p == nil {
			continue
		}
		t.AppendRow(table.Row{p.Slug, p.Name, truncate(p.Style, styleColumnWidth)})
	}
	return f.render(t), nil
}

// FormatWindows renders limiter window usage.
func (f *TableFormatter) FormatWindows(windows []genclient.WindowStatus) (string, error) {
	t := f.newWriter()
	t.AppendHeader(table.Row{"Endpoint", "Used", "Window", "Retry After"})
	for _, w := range windows {
		t.AppendRow(table.Row{
			string(w.Endpoint),
			fmt.Sprintf("%d/%d", w.Count, w.Limit),
			w.Window.String(),
			windowRetry(w),
		})
	}
	return f.render(t), nil
}

func (f *TableFormatter) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) render(t table.Writer) string {
	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}
