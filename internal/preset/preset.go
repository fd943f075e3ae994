package preset

// DefaultSlug is the preset used by custom generation when none is named.
const DefaultSlug = "minimal-tech"

// Preset is a named style description sent to the style and thumbnail
// endpoints.
type Preset struct {
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Style       string `yaml:"style,omitempty" json:"style"`
	Source      string `yaml:"-" json:"source,omitempty"`
}
