package output

import (
	"encoding/json"

	"github.com/thumbsmith/thumbsmith/internal/core"
	"github.com/thumbsmith/thumbsmith/internal/genclient"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

// JSONFormatter renders listings as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatLibrary renders records as a JSON array.
func (f *JSONFormatter) FormatLibrary(records []core.ThumbnailRecord) (string, error) {
	if records == nil {
		records = []core.ThumbnailRecord{}
	}
	return f.marshal(records)
}

// FormatPresets renders presets as a JSON array.
func (f *JSONFormatter) FormatPresets(presets []*preset.Preset) (string, error) {
	if presets == nil {
		presets = []*preset.Preset{}
	}
	return f.marshal(presets)
}

type windowJSON struct {
	Endpoint     string  `json:"endpoint"`
	Count        int     `json:"count"`
	Limit        int     `json:"limit"`
	WindowMs     int64   `json:"window_ms"`
	Oldest       *string `json:"oldest,omitempty"`
	RetryAfterMs int64   `json:"retry_after_ms"`
}

// FormatWindows renders limiter windows with millisecond durations.
func (f *JSONFormatter) FormatWindows(windows []genclient.WindowStatus) (string, error) {
	out := make([]windowJSON, 0, len(windows))
	for _, w := range windows {
		entry := windowJSON{
			Endpoint:     string(w.Endpoint),
			Count:        w.Count,
			Limit:        w.Limit,
			WindowMs:     w.Window.Milliseconds(),
			RetryAfterMs: w.RetryAfter.Milliseconds(),
		}
		if w.Oldest != nil {
			oldest := w.Oldest.UTC().Format("2006-01-02T15:04:05.000Z07:00")
			entry.Oldest = &oldest
		}
		out = append(out, entry)
	}
	return f.marshal(out)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
