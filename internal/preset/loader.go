package preset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Load parses and validates a preset from YAML bytes. Markdown files with
// YAML frontmatter are accepted too; the body becomes the style when the
// frontmatter does not set one.
func Load(source string, data []byte) (*Preset, error) {
	p, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", source, err)
	}

	if strings.TrimSpace(p.Style) == "" {
		p.Style = strings.TrimSpace(body)
	}
	p.Style = strings.TrimSpace(p.Style)
	p.Slug = strings.TrimSpace(p.Slug)

	if err := validate(p); err != nil {
		return nil, fmt.Errorf("validate preset %s: %w", source, err)
	}

	p.Source = source
	return &p, nil
}

// LoadFromDir reads every preset file in dir. A missing directory yields no
// presets.
func LoadFromDir(dir string) ([]*Preset, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var entries []string
	for _, pattern := range []string{"*.md", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan presets: %w", err)
		}
		entries = append(entries, matches...)
	}
	sort.Strings(entries)

	results := make([]*Preset, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path) // #nosec G304 -- preset path is user-provided
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", path, err)
		}
		p, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

func parseYAMLWithFrontmatter(data []byte) (Preset, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Preset{}, "", fmt.Errorf("empty preset")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Preset{}, "", err
	}

	var p Preset
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &p); err != nil {
			return Preset{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
		return p, strings.Join(body, "\n"), nil
	}
	if err := yaml.Unmarshal(trimmed, &p); err != nil {
		return Preset{}, "", fmt.Errorf("invalid yaml: %w", err)
	}
	return p, "", nil
}

func validate(p Preset) error {
	switch {
	case p.Slug == "":
		return fmt.Errorf("slug is required")
	case !slugPattern.MatchString(p.Slug):
		return fmt.Errorf("slug %q must be lowercase letters, digits and dashes", p.Slug)
	case p.Style == "":
		return fmt.Errorf("style is required")
	}
	return nil
}
