package preset

import (
	"embed"
	"fmt"
)

//go:embed presets/*.md
var defaultPresetsFS embed.FS

// LoadDefaults loads the embedded preset set.
func LoadDefaults() ([]*Preset, error) {
	entries, err := defaultPresetsFS.ReadDir("presets")
	if err != nil {
		return nil, fmt.Errorf("read embedded presets: %w", err)
	}
	results := make([]*Preset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPresetsFS.ReadFile("presets/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded preset %s: %w", entry.Name(), err)
		}
		p, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

// DefaultRegistry builds a registry from the embedded presets plus any found
// in userDir. A user preset replaces an embedded one with the same slug.
func DefaultRegistry(userDir string) (Registry, error) {
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	user, err := LoadFromDir(userDir)
	if err != nil {
		return nil, err
	}

	overridden := make(map[string]bool, len(user))
	for _, p := range user {
		overridden[p.Slug] = true
	}
	merged := make([]*Preset, 0, len(defaults)+len(user))
	for _, p := range defaults {
		if !overridden[p.Slug] {
			merged = append(merged, p)
		}
	}
	merged = append(merged, user...)
	return NewRegistry(merged)
}
