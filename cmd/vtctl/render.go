package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
	"github.com/vyaparitrack/vyaparitrack/internal/viewcfg"
)

// presetFromView rebuilds the server's preset so the engine runs locally with
// the same columns and renderers.
func presetFromView(v *dto.ViewResponse) *viewcfg.Preset {
	p := &viewcfg.Preset{
		Title:        v.Title,
		PageSize:     v.PageSize,
		EmptyMessage: v.EmptyMessage,
		Columns:      make([]viewcfg.ColumnConfig, len(v.Columns)),
	}
	if v.Sort != nil && v.Sort.Key != "" {
		p.Sort = &viewcfg.SortConfig{Key: v.Sort.Key, Dir: v.Sort.Dir}
	}
	for i, c := range v.Columns {
		visible := c.Visible
		p.Columns[i] = viewcfg.ColumnConfig{
			Key:        c.Key,
			Header:     c.Header,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Class:      c.Class,
			Render:     c.Render,
			Visible:    &visible,
		}
		// Unknown renderers from a newer server fall back to plain text.
		if _, ok := viewcfg.Renderer(c.Render); c.Render != "" && !ok {
			p.Columns[i].Render = ""
		}
	}
	return p
}

var errNoColumns = errors.New("no visible columns")

// grid is the display form shared by local and remote rendering.
type grid struct {
	title   string
	headers []string
	rows    [][]string
	page    dto.PaginationState
	search  string
	filters int
	empty   string
}

func sortMark(dir string) string {
	if dir == string(table.Desc) {
		return " v"
	}
	return " ^"
}

func renderLocal(w io.Writer, title string, e *table.Engine) error {
	p := e.VisiblePage()
	g := grid{
		title: title,
		page: dto.PaginationState{
			Page:       p.Pagination.Page,
			PageSize:   p.Pagination.PageSize,
			TotalItems: p.Pagination.TotalItems,
			TotalPages: p.Pagination.TotalPages,
			HasPrev:    p.Pagination.HasPrev(),
			HasNext:    p.Pagination.HasNext(),
		},
		search:  e.SearchTerm(),
		filters: p.ActiveFilters,
		empty:   p.Empty,
	}
	for _, c := range p.Columns {
		h := c.Header
		if c.Key == p.Sort.Key {
			h += sortMark(string(p.Sort.Dir))
		}
		g.headers = append(g.headers, h)
	}
	for _, r := range p.Rows {
		line := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			line[i] = c.Text
		}
		g.rows = append(g.rows, line)
	}
	return g.render(w)
}

func renderRemote(w io.Writer, t *dto.TableResponse) error {
	g := grid{
		title:   t.Title,
		page:    t.Pagination,
		search:  t.Search,
		filters: t.ActiveFilters,
		empty:   t.Empty,
	}
	for _, c := range t.Columns {
		if !c.Visible {
			continue
		}
		h := c.Header
		if c.Key == t.Sort.Key {
			h += sortMark(t.Sort.Dir)
		}
		g.headers = append(g.headers, h)
	}
	for _, r := range t.Rows {
		line := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			line[i] = c.Text
		}
		g.rows = append(g.rows, line)
	}
	return g.render(w)
}

func (g *grid) render(w io.Writer) error {
	if len(g.headers) == 0 {
		return errNoColumns
	}
	if g.title != "" {
		fmt.Fprintln(w, g.title)
	}
	if len(g.rows) == 0 {
		msg := g.empty
		if msg == "" {
			msg = "No records"
		}
		fmt.Fprintln(w, msg)
	} else {
		tbl := tablewriter.NewWriter(w)
		tbl.Header(g.headers)
		if err := tbl.Bulk(g.rows); err != nil {
			return err
		}
		if err := tbl.Render(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Page %d of %d (%d items)\n", g.page.Page, max(g.page.TotalPages, 1), g.page.TotalItems)
	}
	switch {
	case g.search != "" && g.filters > 0:
		fmt.Fprintf(w, "Search %q, %s\n", g.search, filterBadge(g.filters))
	case g.search != "":
		fmt.Fprintf(w, "Search %q\n", g.search)
	case g.filters > 0:
		fmt.Fprintln(w, filterBadge(g.filters))
	}
	return nil
}

func filterBadge(n int) string {
	if n == 1 {
		return "1 filter active"
	}
	return strconv.Itoa(n) + " filters active"
}

func renderSummary(w io.Writer, s *dto.SummaryResponse) error {
	tbl := tablewriter.NewWriter(w)
	tbl.Header([]string{"Metric", "Value"})
	rows := [][]string{
		{"Products", strconv.Itoa(s.Products)},
		{"Vendors", strconv.Itoa(s.Vendors)},
		{"Low stock", strconv.Itoa(s.LowStock)},
		{"Inventory value", strconv.FormatFloat(s.InventoryValue, 'f', 2, 64)},
		{"Sales", fmt.Sprintf("%.2f (%d orders)", s.SalesTotal, s.SalesCount)},
		{"Purchases", fmt.Sprintf("%.2f (%d orders)", s.PurchaseTotal, s.PurchaseCount)},
		{"Pending purchases", strconv.Itoa(s.PendingPurchases)},
		{"Pending sales", strconv.Itoa(s.PendingSales)},
	}
	if err := tbl.Bulk(rows); err != nil {
		return err
	}
	return tbl.Render()
}
