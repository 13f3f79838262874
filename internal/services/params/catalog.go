package params

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeSelect  ParamType = "select"
	TypeBoolean ParamType = "boolean"
)

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// SchemaItem declares one tunable parameter.
type SchemaItem struct {
	Key     string    `yaml:"key" json:"key"`
	Type    ParamType `yaml:"type" json:"type"`
	Default any       `yaml:"default" json:"default"`
	Min     *float64  `yaml:"min" json:"min,omitempty"`
	Max     *float64  `yaml:"max" json:"max,omitempty"`
	Step    *float64  `yaml:"step" json:"step,omitempty"`
	Label   string    `yaml:"label" json:"label"`
	Help    string    `yaml:"help" json:"help"`
	Group   string    `yaml:"group" json:"group"`
	Options []Option  `yaml:"options" json:"options,omitempty"`
}

func (s SchemaItem) hasOption(v string) bool {
	for _, o := range s.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

type Group struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Preset is a partial parameter set layered over the schema defaults.
type Preset struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Timeframe   string         `yaml:"timeframe" json:"timeframe"`
	Params      map[string]any `yaml:"params" json:"params"`
}

type catalogFile struct {
	Version string       `yaml:"version"`
	Groups  []Group      `yaml:"groups"`
	Schema  []SchemaItem `yaml:"schema"`
	Presets []Preset     `yaml:"presets"`
}

// Catalog is the read-only parameter table. Accessors return copies.
type Catalog struct {
	version string
	groups  []Group
	schema  []SchemaItem
	presets []Preset
	byKey   map[string]SchemaItem
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary. It panics if the
// embedded document is malformed.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("params: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and checks a catalog document.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		version: f.Version,
		groups:  f.Groups,
		presets: f.Presets,
		byKey:   make(map[string]SchemaItem, len(f.Schema)),
	}
	groups := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		groups[g.ID] = true
	}

	for _, item := range f.Schema {
		if _, dup := c.byKey[item.Key]; dup {
			return nil, fmt.Errorf("duplicate param %q", item.Key)
		}
		if !groups[item.Group] {
			return nil, fmt.Errorf("param %q: unknown group %q", item.Key, item.Group)
		}
		switch item.Type {
		case TypeNumber:
			v, ok := toFloat(item.Default)
			if !ok {
				return nil, fmt.Errorf("param %q: default is not a number", item.Key)
			}
			item.Default = v
		case TypeSelect:
			s, ok := item.Default.(string)
			if !ok || !item.hasOption(s) {
				return nil, fmt.Errorf("param %q: default is not an option", item.Key)
			}
		case TypeBoolean:
			if _, ok := item.Default.(bool); !ok {
				return nil, fmt.Errorf("param %q: default is not a boolean", item.Key)
			}
		default:
			return nil, fmt.Errorf("param %q: unknown type %q", item.Key, item.Type)
		}
		c.byKey[item.Key] = item
		c.schema = append(c.schema, item)
	}

	for i, p := range c.presets {
		normalized := make(map[string]any, len(p.Params))
		for k, v := range p.Params {
			if f, ok := toFloat(v); ok {
				v = f
			}
			normalized[k] = v
		}
		c.presets[i].Params = normalized
	}
	return c, nil
}

func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Schema() []SchemaItem { return append([]SchemaItem(nil), c.schema...) }

func (c *Catalog) Groups() []Group { return append([]Group(nil), c.groups...) }

func (c *Catalog) Presets() []Preset {
	out := make([]Preset, len(c.presets))
	for i, p := range c.presets {
		p.Params = copyMap(p.Params)
		out[i] = p
	}
	return out
}

func (c *Catalog) Preset(id string) (Preset, bool) {
	for _, p := range c.presets {
		if p.ID == id {
			p.Params = copyMap(p.Params)
			return p, true
		}
	}
	return Preset{}, false
}

func (c *Catalog) Item(key string) (SchemaItem, bool) {
	item, ok := c.byKey[key]
	return item, ok
}

// Defaults returns every schema key mapped to its default.
func (c *Catalog) Defaults() map[string]any {
	out := make(map[string]any, len(c.schema))
	for _, item := range c.schema {
		out[item.Key] = item.Default
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
