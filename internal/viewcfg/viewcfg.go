// Package viewcfg holds the column presets of every table surface.
//
// Presets are YAML documents. The defaults are embedded in the binary and a
// views.yaml file in the data directory replaces individual views by name.
package viewcfg

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/vyaparitrack/vyaparitrack/internal/table"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// FileName is the override file looked up in the data directory.
const FileName = "views.yaml"

// File is the on-disk layout of a presets document.
type File struct {
	Views map[string]*Preset `yaml:"views"`
}

// Preset configures one table surface.
type Preset struct {
	Title        string         `yaml:"title" json:"title"`
	PageSize     int            `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	Sort         *SortConfig    `yaml:"sort,omitempty" json:"sort,omitempty"`
	EmptyMessage string         `yaml:"empty_message,omitempty" json:"empty_message,omitempty"`
	Columns      []ColumnConfig `yaml:"columns" json:"columns"`
}

// ColumnConfig is the YAML form of a column descriptor.
type ColumnConfig struct {
	Key        string `yaml:"key" json:"key"`
	Header     string `yaml:"header" json:"header"`
	Sortable   bool   `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Filterable bool   `yaml:"filterable,omitempty" json:"filterable,omitempty"`
	Class      string `yaml:"class,omitempty" json:"class,omitempty"`
	Render     string `yaml:"render,omitempty" json:"render,omitempty"`
	Visible    *bool  `yaml:"visible,omitempty" json:"visible,omitempty"` // nil means visible
}

// IsVisible reports whether the column starts visible.
func (c *ColumnConfig) IsVisible() bool {
	return c.Visible == nil || *c.Visible
}

// SortConfig is the default sort of a view.
type SortConfig struct {
	Key string `yaml:"key" json:"key"`
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"` // "asc" or "desc"
}

// Presets is a validated set of views keyed by resource name.
type Presets struct {
	views map[string]*Preset
}

// Parse parses and validates a presets document.
func Parse(data []byte) (*Presets, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse views: %w", err)
	}
	p := &Presets{views: map[string]*Preset{}}
	for name, v := range f.Views {
		if v == nil {
			return nil, fmt.Errorf("view %q: empty definition", name)
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("view %q: %w", name, err)
		}
		p.views[name] = v
	}
	return p, nil
}

// Default returns the embedded presets.
func Default() *Presets {
	p, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded views are invalid: %v", err))
	}
	return p
}

// Load returns the embedded presets with dataDir/views.yaml applied on top.
// A missing override file is not an error.
func Load(dataDir string) (*Presets, error) {
	p := Default()
	data, err := os.ReadFile(filepath.Join(dataDir, FileName)) //nolint:gosec // G304: path is constructed from dataDir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	overrides, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileName, err)
	}
	for name, v := range overrides.views {
		p.views[name] = v
	}
	return p, nil
}

// Get returns the view for a resource.
func (p *Presets) Get(name string) (*Preset, bool) {
	v, ok := p.views[name]
	return v, ok
}

// Names returns the configured resource names, sorted.
func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.views))
	for n := range p.views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the preset for structural errors.
func (v *Preset) Validate() error {
	if len(v.Columns) == 0 {
		return errors.New("at least one column is required")
	}
	if v.PageSize < 0 {
		return errors.New("page_size must be non-negative")
	}
	seen := make(map[string]bool, len(v.Columns))
	for i := range v.Columns {
		c := &v.Columns[i]
		if c.Key == "" {
			return fmt.Errorf("column %d: key is required", i)
		}
		if seen[c.Key] {
			return fmt.Errorf("column %q: duplicate key", c.Key)
		}
		seen[c.Key] = true
		if c.Render != "" {
			if _, ok := Renderer(c.Render); !ok {
				return fmt.Errorf("column %q: unknown renderer %q", c.Key, c.Render)
			}
		}
	}
	if v.Sort != nil {
		i := slices.IndexFunc(v.Columns, func(c ColumnConfig) bool { return c.Key == v.Sort.Key })
		if i < 0 {
			return fmt.Errorf("sort: unknown column %q", v.Sort.Key)
		}
		if !v.Columns[i].Sortable {
			return fmt.Errorf("sort: column %q is not sortable", v.Sort.Key)
		}
		if v.Sort.Dir != "" && v.Sort.Dir != string(table.Asc) && v.Sort.Dir != string(table.Desc) {
			return fmt.Errorf("sort: invalid direction %q", v.Sort.Dir)
		}
	}
	return nil
}

// CheckKeys returns an error naming the first column key not in known.
func (v *Preset) CheckKeys(known []string) error {
	for i := range v.Columns {
		if !slices.Contains(known, v.Columns[i].Key) {
			return fmt.Errorf("column %q is not a field of the record", v.Columns[i].Key)
		}
	}
	return nil
}

// CheckResources verifies that every view names a resource in known and only
// uses fields of its records. known maps a resource to its record field names.
func (p *Presets) CheckResources(known map[string][]string) error {
	for _, name := range p.Names() {
		keys, ok := known[name]
		if !ok {
			return fmt.Errorf("view %q: unknown resource", name)
		}
		if err := p.views[name].CheckKeys(keys); err != nil {
			return fmt.Errorf("view %q: %w", name, err)
		}
	}
	return nil
}

// TableColumns converts the preset to engine column descriptors.
func (v *Preset) TableColumns() []table.Column {
	cols := make([]table.Column, len(v.Columns))
	for i := range v.Columns {
		c := &v.Columns[i]
		header := c.Header
		if header == "" {
			header = humanize(c.Key)
		}
		cols[i] = table.Column{
			Key:        c.Key,
			Header:     header,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Class:      c.Class,
		}
		if c.Render != "" {
			cols[i].Render, _ = Renderer(c.Render)
		}
	}
	return cols
}

// NewEngine returns an engine configured with the preset's columns, hidden
// columns, default sort, page size and empty message.
func (v *Preset) NewEngine() *table.Engine {
	opts := []table.Option{
		table.WithPageSize(v.PageSize),
		table.WithEmptyMessage(v.EmptyMessage),
	}
	var hidden []string
	for i := range v.Columns {
		if !v.Columns[i].IsVisible() {
			hidden = append(hidden, v.Columns[i].Key)
		}
	}
	if len(hidden) > 0 {
		opts = append(opts, table.WithHidden(hidden...))
	}
	if v.Sort != nil {
		opts = append(opts, table.WithSort(v.Sort.Key, table.ParseDirection(v.Sort.Dir)))
	}
	return table.New(v.TableColumns(), opts...)
}
