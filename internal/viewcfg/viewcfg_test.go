package viewcfg

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

func TestDefault(t *testing.T) {
	p := Default()
	want := []string{"categories", "products", "purchase-orders", "sales-orders", "users", "vendors"}
	if got := p.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	v, ok := p.Get("products")
	if !ok {
		t.Fatal("products preset missing")
	}
	e := v.NewEngine()
	if e.IsVisible("cost_price") {
		t.Error("cost_price should start hidden")
	}
	if s := e.Sort(); s.Key != "name" || s.Dir != table.Asc {
		t.Errorf("Sort() = %+v", s)
	}
	if got := e.VisiblePage().Empty; got != "No products yet" {
		t.Errorf("Empty = %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: "views:\n  x:\n    columns:\n      - {key: a, sortable: true}\n    sort: {key: a, dir: desc}\n",
		},
		{
			name:    "no columns",
			yaml:    "views:\n  x:\n    title: X\n",
			wantErr: "at least one column",
		},
		{
			name:    "duplicate key",
			yaml:    "views:\n  x:\n    columns:\n      - {key: a}\n      - {key: a}\n",
			wantErr: "duplicate key",
		},
		{
			name:    "unknown renderer",
			yaml:    "views:\n  x:\n    columns:\n      - {key: a, render: sparkline}\n",
			wantErr: "unknown renderer",
		},
		{
			name:    "sort on non-sortable",
			yaml:    "views:\n  x:\n    columns:\n      - {key: a}\n    sort: {key: a}\n",
			wantErr: "not sortable",
		},
		{
			name:    "bad direction",
			yaml:    "views:\n  x:\n    columns:\n      - {key: a, sortable: true}\n    sort: {key: a, dir: up}\n",
			wantErr: "invalid direction",
		},
		{
			name:    "negative page size",
			yaml:    "views:\n  x:\n    page_size: -1\n    columns:\n      - {key: a}\n",
			wantErr: "page_size",
		},
		{
			name:    "not yaml",
			yaml:    "views: [",
			wantErr: "failed to parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		p, err := Load(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.Get("vendors"); !ok {
			t.Error("defaults not loaded")
		}
	})

	t.Run("override", func(t *testing.T) {
		dir := t.TempDir()
		data := "views:\n  vendors:\n    title: Suppliers\n    page_size: 25\n    columns:\n      - {key: name, header: Supplier, sortable: true}\n"
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		p, err := Load(dir)
		if err != nil {
			t.Fatal(err)
		}
		v, _ := p.Get("vendors")
		if v.Title != "Suppliers" || len(v.Columns) != 1 {
			t.Errorf("vendors = %+v", v)
		}
		if _, ok := p.Get("products"); !ok {
			t.Error("untouched default dropped")
		}
		if got := v.NewEngine().Pagination().PageSize; got != 25 {
			t.Errorf("PageSize = %d", got)
		}
	})

	t.Run("invalid override", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte("views:\n  vendors:\n    columns: []\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(dir); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRenderers(t *testing.T) {
	tests := []struct {
		render string
		in     any
		want   string
	}{
		{"currency", 12.5, "12.50"},
		{"currency", 3, "3.00"},
		{"currency", "x", ""},
		{"number", 4.0, "4"},
		{"date", float64(1767225600), "2026-01-01"},
		{"date", nil, ""},
		{"date", 0.0, ""},
		{"datetime", float64(1767261600), "2026-01-01 10:00"},
		{"upper", "27aapfu0939f1zv", "27AAPFU0939F1ZV"},
		{"status", "pending", "Pending"},
		{"bool", true, "yes"},
		{"bool", false, "no"},
		{"count", []any{1, 2, 3}, "3"},
		{"count", nil, "0"},
	}
	for _, tt := range tests {
		r, ok := Renderer(tt.render)
		if !ok {
			t.Fatalf("renderer %q missing", tt.render)
		}
		if got := r(tt.in, nil); got != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.render, tt.in, got, tt.want)
		}
	}
	if len(RendererNames()) != len(renderers) {
		t.Error("RendererNames() incomplete")
	}
}

type BaseRow struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

type sampleRow struct {
	BaseRow
	Name   string   `json:"name" jsonschema:"title=Product name"`
	Price  float64  `json:"price"`
	Active bool     `json:"active"`
	Tags   []string `json:"tags,omitempty"`
	secret string
}

func TestColumnsFor(t *testing.T) {
	cols, err := ColumnsFor[*sampleRow]()
	if err != nil {
		t.Fatal(err)
	}
	byKey := map[string]table.Column{}
	for _, c := range cols {
		byKey[c.Key] = c
	}
	for _, k := range []string{"id", "created", "name", "price", "active", "tags"} {
		if _, ok := byKey[k]; !ok {
			t.Errorf("missing column %q in %v", k, cols)
		}
	}
	if c := byKey["name"]; c.Header != "Product name" || !c.Sortable || !c.Filterable {
		t.Errorf("name = %+v", c)
	}
	if c := byKey["price"]; !c.Sortable || c.Filterable {
		t.Errorf("price = %+v", c)
	}
	if c := byKey["tags"]; c.Sortable {
		t.Errorf("tags = %+v", c)
	}
	if _, err := ColumnsFor[int](); err == nil {
		t.Error("expected error for non-struct")
	}

	keys, err := KeysFor[sampleRow]()
	if err != nil {
		t.Fatal(err)
	}
	p := &Preset{Columns: []ColumnConfig{{Key: "name"}, {Key: "price"}}}
	if err := p.CheckKeys(keys); err != nil {
		t.Errorf("CheckKeys() = %v", err)
	}
	p.Columns = append(p.Columns, ColumnConfig{Key: "margin"})
	if err := p.CheckKeys(keys); err == nil {
		t.Error("CheckKeys() accepted unknown key")
	}
	_ = sampleRow{}.secret
}

func TestDerived(t *testing.T) {
	cols, err := ColumnsFor[sampleRow]()
	if err != nil {
		t.Fatal(err)
	}
	p := Derived("sample-rows", cols)
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Sample rows" || len(p.Columns) != len(cols) {
		t.Errorf("preset = %+v", p)
	}
	for i, c := range p.TableColumns() {
		w := cols[i]
		if c.Key != w.Key || c.Header != w.Header || c.Sortable != w.Sortable || c.Filterable != w.Filterable || c.Render != nil {
			t.Errorf("column %d = %+v, want %+v", i, c, w)
		}
		if !p.Columns[i].IsVisible() {
			t.Errorf("column %q hidden", c.Key)
		}
	}
}

func TestCheckResources(t *testing.T) {
	p, err := Parse([]byte("views:\n  rows:\n    columns:\n      - {key: name}\n"))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		known map[string][]string
		want  string
	}{
		{name: "ok", known: map[string][]string{"rows": {"id", "name"}}},
		{name: "unknown key", known: map[string][]string{"rows": {"id"}}, want: `view "rows": column "name"`},
		{name: "unknown resource", known: map[string][]string{"cols": {"name"}}, want: `view "rows": unknown resource`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CheckResources(tt.known)
			if tt.want == "" {
				if err != nil {
					t.Errorf("err = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
