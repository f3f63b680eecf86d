package table

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

func testColumns() []Column {
	return []Column{
		{Key: "id", Header: "ID", Sortable: true},
		{Key: "name", Header: "Name", Sortable: true, Filterable: true},
		{Key: "city", Header: "City", Sortable: true, Filterable: true},
		{Key: "qty", Header: "Qty", Sortable: true},
		{Key: "note", Header: "Note"},
	}
}

func testRecords() []Record {
	return []Record{
		{"id": "a", "name": "Basmati Rice", "city": "Pune", "qty": 10.0, "note": nil},
		{"id": "b", "name": "Toor Dal", "city": "Mumbai", "qty": 2.0, "note": "fresh"},
		{"id": "c", "name": "Rice Flour", "city": "Mumbai", "qty": 33.0},
		{"id": "d", "name": "Jaggery", "city": "Kolhapur", "qty": 5.0, "note": "organic rice-free"},
	}
}

func numbered(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"id": fmt.Sprintf("r%02d", i+1), "name": fmt.Sprintf("Item %d", i+1), "qty": float64(i + 1)}
	}
	return out
}

func keys(p Page) []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Key
	}
	return out
}

func TestEngine(t *testing.T) {
	t.Run("SetSearchTerm", func(t *testing.T) {
		tests := []struct {
			name string
			term string
			want []string
		}{
			{"empty term keeps all", "", []string{"a", "b", "c", "d"}},
			{"case insensitive", "RICE", []string{"a", "c", "d"}},
			{"hidden column still searched", "fresh", []string{"b"}},
			{"numbers are stringified", "33", []string{"c"}},
			{"no match", "saffron", nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := New(testColumns(), WithHidden("note"))
				e.SetRecords(testRecords())
				e.SetSearchTerm(tt.term)
				if got := keys(e.VisiblePage()); !slices.Equal(got, tt.want) {
					t.Errorf("rows = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("search results contain the term", func(t *testing.T) {
		e := New(testColumns())
		e.SetRecords(testRecords())
		for _, term := range []string{"r", "mum", "a", "0"} {
			e.SetSearchTerm(term)
			for _, rec := range e.Filtered() {
				found := false
				for _, c := range testColumns() {
					if s, ok := Stringify(rec[c.Key]); ok && strings.Contains(strings.ToLower(s), strings.ToLower(term)) {
						found = true
					}
				}
				if !found {
					t.Errorf("term %q: record %v does not contain it", term, rec["id"])
				}
			}
		}
	})

	t.Run("nil never matches", func(t *testing.T) {
		e := New(testColumns())
		e.SetRecords([]Record{{"id": "x", "name": nil}})
		e.SetColumnFilter("name", "nil")
		if n := e.Pagination().TotalItems; n != 0 {
			t.Errorf("TotalItems = %d, want 0", n)
		}
		e.ClearFilters()
		e.SetSearchTerm("<nil>")
		if n := e.Pagination().TotalItems; n != 0 {
			t.Errorf("TotalItems = %d, want 0", n)
		}
	})

	t.Run("SetColumnFilter", func(t *testing.T) {
		e := New(testColumns())
		e.SetRecords(testRecords())
		e.SetColumnFilter("city", "mum")
		if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"b", "c"}) {
			t.Errorf("one filter: rows = %v", got)
		}
		before := e.Pagination().TotalItems
		e.SetColumnFilter("name", "rice")
		after := e.Pagination().TotalItems
		if after > before {
			t.Errorf("second filter grew results: %d > %d", after, before)
		}
		if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"c"}) {
			t.Errorf("two filters: rows = %v", got)
		}
		if got := e.ActiveFilterCount(); got != 2 {
			t.Errorf("ActiveFilterCount() = %d, want 2", got)
		}
		e.SetSearchTerm("flour")
		if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"c"}) {
			t.Errorf("filters and search: rows = %v", got)
		}
		e.SetSearchTerm("dal")
		if got := keys(e.VisiblePage()); len(got) != 0 {
			t.Errorf("search ANDed with filters: rows = %v", got)
		}
		e.SetColumnFilter("name", "")
		if got := e.ActiveFilterCount(); got != 1 {
			t.Errorf("ActiveFilterCount() after clearing one = %d, want 1", got)
		}
	})

	t.Run("SetColumnFilter ignores unfilterable keys", func(t *testing.T) {
		tests := []struct {
			name string
			key  string
		}{
			{"unknown column", "bogus"},
			{"not filterable", "qty"},
			{"no filterable flag", "note"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := New(testColumns())
				e.SetRecords(testRecords())
				e.SetPageSize(2)
				e.GoToPage(2)
				e.SetColumnFilter(tt.key, "1")
				if got := e.ActiveFilterCount(); got != 0 {
					t.Errorf("ActiveFilterCount() = %d, want 0", got)
				}
				if got := e.ColumnFilter(tt.key); got != "" {
					t.Errorf("ColumnFilter(%q) = %q", tt.key, got)
				}
				p := e.VisiblePage()
				if p.Pagination.TotalItems != 4 || p.Pagination.Page != 2 || p.Empty != "" {
					t.Errorf("page = %+v", p.Pagination)
				}
				e.SetColumnFilter(tt.key, "")
				if got := e.Pagination().Page; got != 2 {
					t.Errorf("clearing an absent filter moved to page %d", got)
				}
			})
		}
	})

	t.Run("SortBy", func(t *testing.T) {
		t.Run("numeric not lexicographic", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords([]Record{{"qty": 10.0}, {"qty": 2.0}, {"qty": 33.0}})
			e.SortBy("qty")
			var got []any
			for _, r := range e.Filtered() {
				got = append(got, r["qty"])
			}
			if !slices.Equal(got, []any{2.0, 10.0, 33.0}) {
				t.Errorf("sorted = %v, want [2 10 33]", got)
			}
		})

		t.Run("toggle", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(testRecords())
			e.SortBy("name")
			asc := keys(e.VisiblePage())
			if s := e.Sort(); s.Key != "name" || s.Dir != Asc {
				t.Fatalf("Sort() = %+v", s)
			}
			e.SortBy("name")
			desc := keys(e.VisiblePage())
			if s := e.Sort(); s.Dir != Desc {
				t.Fatalf("Sort() = %+v, want desc", s)
			}
			slices.Reverse(desc)
			if !slices.Equal(asc, desc) {
				t.Errorf("desc is not the reverse of asc: %v vs %v", asc, desc)
			}
			e.SortBy("name")
			if s := e.Sort(); s.Dir != Asc {
				t.Errorf("third click: Sort() = %+v, want asc", s)
			}
			e.SortBy("city")
			if s := e.Sort(); s.Key != "city" || s.Dir != Asc {
				t.Errorf("new key: Sort() = %+v, want city asc", s)
			}
		})

		t.Run("stable", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(testRecords())
			e.SortBy("city")
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"d", "b", "c", "a"}) {
				t.Errorf("asc rows = %v", got)
			}
			e.SortBy("city")
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
				t.Errorf("desc rows = %v", got)
			}
		})

		t.Run("case insensitive", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords([]Record{{"id": "1", "name": "banana"}, {"id": "2", "name": "Apple"}, {"id": "3", "name": "cherry"}})
			e.SortBy("name")
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"2", "1", "3"}) {
				t.Errorf("rows = %v", got)
			}
		})

		t.Run("ignored columns", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(testRecords())
			e.SortBy("note")
			e.SortBy("missing")
			if s := e.Sort(); s.Key != "" {
				t.Errorf("Sort() = %+v, want unsorted", s)
			}
		})

		t.Run("SetSort", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(testRecords())
			e.SetSort("qty", Desc)
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"c", "a", "d", "b"}) {
				t.Errorf("rows = %v", got)
			}
			e.SetSort("qty", Desc)
			if s := e.Sort(); s.Dir != Desc {
				t.Errorf("SetSort is not a toggle: %+v", s)
			}
			e.ClearSort()
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
				t.Errorf("ClearSort rows = %v", got)
			}
		})
	})

	t.Run("paging", func(t *testing.T) {
		t.Run("12 records of 10", func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(numbered(12))
			p := e.Pagination()
			if p.TotalPages != 2 || p.TotalItems != 12 || p.Page != 1 {
				t.Fatalf("Pagination() = %+v", p)
			}
			e.GoToPage(2)
			if got := keys(e.VisiblePage()); !slices.Equal(got, []string{"r11", "r12"}) {
				t.Errorf("page 2 = %v", got)
			}
		})

		t.Run("GoToPage clamps", func(t *testing.T) {
			tests := []struct {
				req, want int
			}{
				{0, 1}, {-3, 1}, {1, 1}, {3, 3}, {4, 4}, {5, 4}, {100, 4},
			}
			for _, tt := range tests {
				e := New(testColumns(), WithPageSize(3))
				e.SetRecords(numbered(12))
				e.GoToPage(tt.req)
				if got := e.Pagination().Page; got != tt.want {
					t.Errorf("GoToPage(%d) = %d, want %d", tt.req, got, tt.want)
				}
				e.GoToPage(tt.req)
				if got := e.Pagination().Page; got != tt.want {
					t.Errorf("GoToPage(%d) twice = %d, want %d", tt.req, got, tt.want)
				}
			}
		})

		t.Run("SetPageSize resets", func(t *testing.T) {
			for _, size := range []int{1, 3, 5, 7, 12, 50} {
				e := New(testColumns())
				e.SetRecords(numbered(23))
				e.GoToPage(3)
				e.SetPageSize(size)
				p := e.Pagination()
				if p.Page != 1 {
					t.Errorf("size %d: Page = %d, want 1", size, p.Page)
				}
				if want := (23 + size - 1) / size; p.TotalPages != want {
					t.Errorf("size %d: TotalPages = %d, want %d", size, p.TotalPages, want)
				}
			}
			e := New(testColumns())
			e.SetPageSize(0)
			if got := e.Pagination().PageSize; got != DefaultPageSize {
				t.Errorf("SetPageSize(0) = %d, want %d", got, DefaultPageSize)
			}
		})

		t.Run("filtering clamps the page", func(t *testing.T) {
			e := New(testColumns(), WithPageSize(5))
			e.SetRecords(numbered(20))
			e.GoToPage(4)
			e.SetRecords(numbered(7))
			if got := e.Pagination().Page; got != 2 {
				t.Errorf("Page = %d, want 2", got)
			}
		})

		t.Run("empty collection", func(t *testing.T) {
			e := New(testColumns())
			e.GoToPage(3)
			p := e.VisiblePage()
			if p.Pagination.Page != 1 || p.Pagination.TotalPages != 0 {
				t.Errorf("Pagination = %+v", p.Pagination)
			}
			if p.Empty != DefaultEmptyMessage {
				t.Errorf("Empty = %q", p.Empty)
			}
		})
	})

	t.Run("empty state", func(t *testing.T) {
		e := New(testColumns(), WithEmptyMessage("No products yet"))
		if got := e.VisiblePage().Empty; got != "No products yet" {
			t.Errorf("empty source: %q", got)
		}
		e.SetRecords(testRecords())
		if got := e.VisiblePage().Empty; got != "" {
			t.Errorf("rows present: Empty = %q", got)
		}
		e.SetSearchTerm("saffron")
		if got := e.VisiblePage().Empty; got != `No results found for "saffron"` {
			t.Errorf("search miss: %q", got)
		}
		e.SetSearchTerm("")
		e.SetColumnFilter("city", "delhi")
		if got := e.VisiblePage().Empty; got != "No products yet" {
			t.Errorf("filter miss: %q", got)
		}
	})

	t.Run("ToggleColumnVisibility", func(t *testing.T) {
		e := New(testColumns())
		e.SetRecords(testRecords())
		e.SetSearchTerm("rice")
		e.SortBy("city")
		before := keys(e.VisiblePage())
		e.ToggleColumnVisibility("city")
		p := e.VisiblePage()
		if e.IsVisible("city") {
			t.Error("city still visible")
		}
		for _, c := range p.Columns {
			if c.Key == "city" {
				t.Error("hidden column rendered")
			}
		}
		for _, r := range p.Rows {
			if len(r.Cells) != len(p.Columns) {
				t.Errorf("row %s has %d cells, want %d", r.Key, len(r.Cells), len(p.Columns))
			}
		}
		if got := keys(p); !slices.Equal(got, before) {
			t.Errorf("visibility changed rows: %v vs %v", got, before)
		}
		e.ToggleColumnVisibility("city")
		if !e.IsVisible("city") {
			t.Error("city not restored")
		}
	})

	t.Run("render", func(t *testing.T) {
		cols := []Column{
			{Key: "name", Header: "Name"},
			{Key: "qty", Header: "Qty", Class: "num", Render: func(v any, _ Record) string {
				s, _ := Stringify(v)
				return s + " kg"
			}},
		}
		e := New(cols)
		e.SetRecords([]Record{{"name": "Dal", "qty": 2.5}})
		p := e.VisiblePage()
		if len(p.Rows) != 1 {
			t.Fatalf("rows = %d", len(p.Rows))
		}
		row := p.Rows[0]
		if row.Key != "0" {
			t.Errorf("positional Key = %q, want 0", row.Key)
		}
		if c := row.Cells[1]; c.Text != "2.5 kg" || c.Class != "num" || c.Value != 2.5 {
			t.Errorf("cell = %+v", c)
		}
	})
}
