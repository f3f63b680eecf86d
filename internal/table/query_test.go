package table

import (
	"slices"
	"testing"
)

func TestQueryApply(t *testing.T) {
	tests := []struct {
		name  string
		q     Query
		want  []string
		pages int
	}{
		{"zero", Query{}, []string{"a", "b", "c", "d"}, 1},
		{"search", Query{Search: "rice"}, []string{"a", "c", "d"}, 1},
		{"filter", Query{Filters: map[string]string{"city": "mumbai"}}, []string{"b", "c"}, 1},
		{"click", Query{Sort: []string{"qty"}}, []string{"b", "d", "a", "c"}, 1},
		{"double click", Query{Sort: []string{"qty", "qty"}}, []string{"c", "a", "d", "b"}, 1},
		{"dir", Query{Sort: []string{"name", "qty"}, Dir: Desc}, []string{"c", "a", "d", "b"}, 1},
		{"paged", Query{Sort: []string{"qty"}, PageSize: 3, Page: 2}, []string{"c"}, 2},
		{"page clamped", Query{PageSize: 3, Page: 9}, []string{"d"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testColumns())
			e.SetRecords(testRecords())
			tt.q.Apply(e)
			p := e.VisiblePage()
			if got := keys(p); !slices.Equal(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
			if p.Pagination.TotalPages != tt.pages {
				t.Errorf("TotalPages = %d, want %d", p.Pagination.TotalPages, tt.pages)
			}
		})
	}
}

func TestQueryHide(t *testing.T) {
	e := New(testColumns(), WithHidden("note"))
	e.SetRecords(testRecords())
	q := Query{Hide: []string{"note", "city"}}
	q.Apply(e)
	if e.IsVisible("city") || !e.IsVisible("note") {
		t.Errorf("city visible=%v note visible=%v", e.IsVisible("city"), e.IsVisible("note"))
	}
	if n := e.Pagination().TotalItems; n != 4 {
		t.Errorf("TotalItems = %d, want 4", n)
	}
}
