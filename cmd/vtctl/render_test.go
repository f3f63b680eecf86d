package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

func productView() *dto.ViewResponse {
	return &dto.ViewResponse{
		Name:         "products",
		Title:        "Products",
		PageSize:     2,
		Sort:         &dto.SortState{Key: "name", Dir: "asc"},
		EmptyMessage: "No products yet",
		Columns: []dto.ViewColumn{
			{Key: "name", Header: "Name", Sortable: true, Filterable: true, Visible: true},
			{Key: "sku", Header: "SKU", Visible: false},
			{Key: "stock", Header: "Stock", Sortable: true, Render: "number", Visible: true},
			{Key: "price", Header: "Price", Render: "sparkline", Visible: true},
		},
	}
}

func TestPresetFromView(t *testing.T) {
	p := presetFromView(productView())
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.Sort == nil || p.Sort.Key != "name" || p.PageSize != 2 {
		t.Errorf("preset = %+v", p)
	}
	if p.Columns[1].IsVisible() {
		t.Error("sku must start hidden")
	}
	if p.Columns[2].Render != "number" {
		t.Errorf("stock render = %q", p.Columns[2].Render)
	}
	if p.Columns[3].Render != "" {
		t.Errorf("unknown renderer kept: %q", p.Columns[3].Render)
	}
}

func TestListFlagsQuery(t *testing.T) {
	tests := []struct {
		name    string
		flags   listFlags
		wantErr bool
		check   func(t *testing.T, q *table.Query)
	}{
		{
			name:  "filters",
			flags: listFlags{filters: []string{"name=ri", "unit=", "sku=a=b"}},
			check: func(t *testing.T, q *table.Query) {
				if q.Filters["name"] != "ri" || q.Filters["unit"] != "" || q.Filters["sku"] != "a=b" {
					t.Errorf("filters = %v", q.Filters)
				}
			},
		},
		{
			name:  "dir",
			flags: listFlags{sort: []string{"stock"}, dir: "desc"},
			check: func(t *testing.T, q *table.Query) {
				if q.Dir != table.Desc || len(q.Sort) != 1 {
					t.Errorf("query = %+v", q)
				}
			},
		},
		{name: "missing equals", flags: listFlags{filters: []string{"name"}}, wantErr: true},
		{name: "empty key", flags: listFlags{filters: []string{"=rice"}}, wantErr: true},
		{name: "bad dir", flags: listFlags{dir: "up"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.flags.query()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.check != nil {
				tt.check(t, q)
			}
		})
	}
}

func TestRenderLocal(t *testing.T) {
	records := []table.Record{
		{"id": "1", "name": "Sugar", "sku": "S-1", "stock": 1200, "price": 40},
		{"id": "2", "name": "Rice", "sku": "R-1", "stock": 3, "price": 55},
		{"id": "3", "name": "Dal", "sku": "D-1", "stock": 8, "price": 90},
	}

	t.Run("page", func(t *testing.T) {
		e := presetFromView(productView()).NewEngine()
		e.SetRecords(records)
		var buf bytes.Buffer
		if err := renderLocal(&buf, "Products", e); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Products\n", "Dal", "Rice", "Page 1 of 2 (3 items)"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Sugar") || strings.Contains(out, "S-1") {
			t.Errorf("unexpected row or hidden column:\n%s", out)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		e := presetFromView(productView()).NewEngine()
		e.SetRecords(records)
		(&table.Query{Filters: map[string]string{"name": "su"}}).Apply(e)
		var buf bytes.Buffer
		if err := renderLocal(&buf, "", e); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "1200") || !strings.Contains(out, "1 filter active") {
			t.Errorf("output:\n%s", out)
		}
	})

	t.Run("empty", func(t *testing.T) {
		e := presetFromView(productView()).NewEngine()
		e.SetRecords(records)
		(&table.Query{Search: "zzz"}).Apply(e)
		var buf bytes.Buffer
		if err := renderLocal(&buf, "", e); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, `No results found for "zzz"`) || !strings.Contains(out, `Search "zzz"`) || strings.Contains(out, "Page") {
			t.Errorf("output:\n%s", out)
		}
	})

	t.Run("no records", func(t *testing.T) {
		e := presetFromView(productView()).NewEngine()
		var buf bytes.Buffer
		if err := renderLocal(&buf, "", e); err != nil {
			t.Fatal(err)
		}
		if out := buf.String(); out != "No products yet\n" {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("no columns", func(t *testing.T) {
		e := presetFromView(productView()).NewEngine()
		e.SetRecords(records)
		(&table.Query{Hide: []string{"name", "stock", "price"}}).Apply(e)
		if err := renderLocal(&bytes.Buffer{}, "", e); !errors.Is(err, errNoColumns) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestRenderRemote(t *testing.T) {
	resp := &dto.TableResponse{
		Resource: "vendors",
		Title:    "Vendors",
		Columns: []dto.ViewColumn{
			{Key: "name", Header: "Name", Visible: true},
			{Key: "gstin", Header: "GSTIN", Visible: false},
		},
		Rows: []dto.TableRow{
			{ID: "v1", Cells: []dto.TableCell{{Key: "name", Text: "Sharma Traders"}}},
		},
		Pagination:    dto.PaginationState{Page: 1, PageSize: 10, TotalItems: 1, TotalPages: 1},
		ActiveFilters: 2,
	}
	var buf bytes.Buffer
	if err := renderRemote(&buf, resp); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Vendors\n", "Sharma Traders", "Page 1 of 1 (1 items)", "2 filters active"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(strings.ToUpper(out), "GSTIN") {
		t.Errorf("hidden column rendered:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	s := &dto.SummaryResponse{Products: 4, LowStock: 1, SalesTotal: 1250.5, SalesCount: 3}
	if err := renderSummary(&buf, s); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "1250.50 (3 orders)") || !strings.Contains(out, "Low stock") {
		t.Errorf("output:\n%s", out)
	}
}
