package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DefaultPageSize is used when no positive page size is given.
const DefaultPageSize = 10

// DefaultEmptyMessage is shown when the source collection yields no rows
// without an active search.
const DefaultEmptyMessage = "No records found"

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithEmptyMessage overrides the generic empty-state message.
func WithEmptyMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.emptyMsg = msg
		}
	}
}

// WithSort sets the initial sort.
func WithSort(key string, dir Direction) Option {
	return func(e *Engine) {
		if c := e.column(key); c != nil && c.Sortable {
			e.sort = Sort{Key: key, Dir: dir}
		}
	}
}

// WithHidden hides the given columns initially.
func WithHidden(keys ...string) Option {
	return func(e *Engine) {
		for _, k := range keys {
			if e.column(k) != nil {
				e.hidden[k] = true
			}
		}
	}
}

// Engine holds the state of one table surface.
type Engine struct {
	columns  []Column
	hidden   map[string]bool
	records  []Record
	search   string
	filters  map[string]string
	sort     Sort
	pageSize int
	page     int
	emptyMsg string

	// derived holds indexes into records after search, filters and sort.
	derived []int
}

// New returns an Engine over the given columns with no records.
func New(columns []Column, opts ...Option) *Engine {
	e := &Engine{
		columns:  slices.Clone(columns),
		hidden:   map[string]bool{},
		filters:  map[string]string{},
		pageSize: DefaultPageSize,
		page:     1,
		emptyMsg: DefaultEmptyMessage,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recompute()
	return e
}

// SetRecords replaces the source collection. Search, filters and sort are
// kept; the current page is clamped.
func (e *Engine) SetRecords(records []Record) {
	e.records = records
	e.recompute()
}

// Columns returns all column descriptors, hidden ones included.
func (e *Engine) Columns() []Column {
	return slices.Clone(e.columns)
}

// SearchTerm returns the raw search text.
func (e *Engine) SearchTerm() string {
	return e.search
}

// SetSearchTerm stores the search text and goes back to page 1.
func (e *Engine) SetSearchTerm(text string) {
	e.search = text
	e.page = 1
	e.recompute()
}

// SetColumnFilter stores the substring pattern for one column. An empty
// pattern removes the filter. Unknown and non-filterable columns are ignored.
func (e *Engine) SetColumnFilter(key, pattern string) {
	if pattern == "" {
		if _, ok := e.filters[key]; !ok {
			return
		}
		delete(e.filters, key)
	} else {
		if c := e.column(key); c == nil || !c.Filterable {
			return
		}
		e.filters[key] = pattern
	}
	e.page = 1
	e.recompute()
}

// ColumnFilter returns the stored pattern for key.
func (e *Engine) ColumnFilter(key string) string {
	return e.filters[key]
}

// ClearFilters removes every column filter.
func (e *Engine) ClearFilters() {
	clear(e.filters)
	e.page = 1
	e.recompute()
}

// ActiveFilterCount is the number of non-empty column filters.
func (e *Engine) ActiveFilterCount() int {
	return len(e.filters)
}

// SortBy acts like a header click on key. Unknown and non-sortable columns
// are ignored.
func (e *Engine) SortBy(key string) {
	c := e.column(key)
	if c == nil || !c.Sortable {
		return
	}
	if e.sort.Key == key {
		if e.sort.Dir == Asc {
			e.sort.Dir = Desc
		} else {
			e.sort.Dir = Asc
		}
	} else {
		e.sort = Sort{Key: key, Dir: Asc}
	}
	e.recompute()
}

// SetSort selects key and direction directly. Unknown and non-sortable
// columns are ignored.
func (e *Engine) SetSort(key string, dir Direction) {
	c := e.column(key)
	if c == nil || !c.Sortable {
		return
	}
	if dir != Desc {
		dir = Asc
	}
	e.sort = Sort{Key: key, Dir: dir}
	e.recompute()
}

// ClearSort restores source order.
func (e *Engine) ClearSort() {
	e.sort = Sort{}
	e.recompute()
}

// Sort returns the active sort.
func (e *Engine) Sort() Sort {
	return e.sort
}

// SetPageSize replaces the page size and resets to page 1. Non-positive
// values select DefaultPageSize.
func (e *Engine) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	e.pageSize = n
	e.page = 1
	e.recompute()
}

// GoToPage moves to page n, clamped to [1, TotalPages].
func (e *Engine) GoToPage(n int) {
	e.page = n
	e.clampPage()
}

// ToggleColumnVisibility hides a visible column or shows a hidden one. It
// only affects rendering.
func (e *Engine) ToggleColumnVisibility(key string) {
	if e.column(key) == nil {
		return
	}
	if e.hidden[key] {
		delete(e.hidden, key)
	} else {
		e.hidden[key] = true
	}
}

// IsVisible reports whether the column is rendered.
func (e *Engine) IsVisible(key string) bool {
	return e.column(key) != nil && !e.hidden[key]
}

// VisibleColumns returns the rendered columns in descriptor order.
func (e *Engine) VisibleColumns() []Column {
	out := make([]Column, 0, len(e.columns))
	for _, c := range e.columns {
		if !e.hidden[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// Pagination returns the current pager state.
func (e *Engine) Pagination() Pagination {
	n := len(e.derived)
	return Pagination{
		Page:       e.page,
		PageSize:   e.pageSize,
		TotalItems: n,
		TotalPages: (n + e.pageSize - 1) / e.pageSize,
	}
}

// Filtered returns every derived record, unpaged, in display order.
func (e *Engine) Filtered() []Record {
	out := make([]Record, len(e.derived))
	for i, idx := range e.derived {
		out[i] = e.records[idx]
	}
	return out
}

// EmptyMessage returns the empty-state message matching the current state.
func (e *Engine) EmptyMessage() string {
	if e.search != "" {
		return fmt.Sprintf("No results found for %q", e.search)
	}
	return e.emptyMsg
}

// VisiblePage renders the current page.
func (e *Engine) VisiblePage() Page {
	cols := e.VisibleColumns()
	p := Page{
		Columns:       cols,
		Pagination:    e.Pagination(),
		Sort:          e.sort,
		ActiveFilters: e.ActiveFilterCount(),
	}
	start := (e.page - 1) * e.pageSize
	end := min(start+e.pageSize, len(e.derived))
	if start >= end {
		p.Empty = e.EmptyMessage()
		return p
	}
	p.Rows = make([]Row, 0, end-start)
	for _, idx := range e.derived[start:end] {
		rec := e.records[idx]
		row := Row{Key: rowKey(rec, idx), Record: rec, Cells: make([]Cell, len(cols))}
		for i, c := range cols {
			v := rec[c.Key]
			var text string
			if c.Render != nil {
				text = c.Render(v, rec)
			} else {
				text, _ = Stringify(v)
			}
			row.Cells[i] = Cell{Key: c.Key, Value: v, Text: text, Class: c.Class}
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

func rowKey(rec Record, pos int) string {
	if s, ok := Stringify(rec["id"]); ok && s != "" {
		return s
	}
	return strconv.Itoa(pos)
}

func (e *Engine) column(key string) *Column {
	for i := range e.columns {
		if e.columns[i].Key == key {
			return &e.columns[i]
		}
	}
	return nil
}

// recompute derives the view: search, column filters, sort, then page clamp.
func (e *Engine) recompute() {
	e.derived = e.derived[:0]
	term := strings.ToLower(e.search)
	for i, rec := range e.records {
		if term != "" && !e.matchesSearch(rec, term) {
			continue
		}
		if !e.matchesFilters(rec) {
			continue
		}
		e.derived = append(e.derived, i)
	}
	if e.sort.Key != "" {
		key := e.sort.Key
		desc := e.sort.Dir == Desc
		slices.SortStableFunc(e.derived, func(a, b int) int {
			c := Compare(e.records[a][key], e.records[b][key])
			if desc {
				return -c
			}
			return c
		})
	}
	e.clampPage()
}

func (e *Engine) matchesSearch(rec Record, term string) bool {
	if len(e.columns) == 0 {
		for _, v := range rec {
			if containsFold(v, term) {
				return true
			}
		}
		return false
	}
	for _, c := range e.columns {
		if containsFold(rec[c.Key], term) {
			return true
		}
	}
	return false
}

func (e *Engine) matchesFilters(rec Record) bool {
	for key, pattern := range e.filters {
		if !containsFold(rec[key], strings.ToLower(pattern)) {
			return false
		}
	}
	return true
}

func (e *Engine) clampPage() {
	total := e.Pagination().TotalPages
	if e.page > total {
		e.page = total
	}
	if e.page < 1 {
		e.page = 1
	}
}
