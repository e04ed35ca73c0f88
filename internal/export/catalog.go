package export

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CustomTheme selects a user-composed theme instead of a catalog entry.
const CustomTheme = "custom"

// ErrUnknownTheme is returned for a theme name missing from the catalog.
var ErrUnknownTheme = errors.New("unknown export theme")

//go:embed themes.yaml
var builtinThemes []byte

// Theme is one predefined export style.
type Theme struct {
	Name    string `yaml:"name" json:"name"`
	Label   string `yaml:"label" json:"label"`
	Compact bool   `yaml:"compact" json:"compact"`
	CSS     string `yaml:"css" json:"-"`
}

// Class is the style class attached to an exported region.
func (t Theme) Class() string {
	return "theme-" + t.Name
}

// Catalog lists the predefined themes in display order.
type Catalog struct {
	themes []Theme
	byName map[string]Theme
}

// LoadCatalog decodes a catalog from YAML.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Themes []Theme `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode theme catalog: %w", err)
	}
	c := &Catalog{byName: make(map[string]Theme, len(doc.Themes))}
	for _, t := range doc.Themes {
		if t.Name == "" || t.Name == CustomTheme {
			return nil, fmt.Errorf("invalid theme name %q", t.Name)
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate theme %q", t.Name)
		}
		c.byName[t.Name] = t
		c.themes = append(c.themes, t)
	}
	return c, nil
}

// DefaultCatalog returns the built-in themes.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(builtinThemes)
	if err != nil {
		panic(err)
	}
	return c
}

// Themes returns the catalog entries in display order.
func (c *Catalog) Themes() []Theme {
	return append([]Theme(nil), c.themes...)
}

// Lookup finds a theme by name. "theme-<name>" is accepted too.
func (c *Catalog) Lookup(name string) (Theme, error) {
	t, ok := c.byName[strings.TrimPrefix(name, "theme-")]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	return t, nil
}

// Stylesheet concatenates the CSS of every theme.
func (c *Catalog) Stylesheet() string {
	var b strings.Builder
	for _, t := range c.themes {
		b.WriteString(t.CSS)
		if !strings.HasSuffix(t.CSS, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
