package table

import "strings"

// Record is one row of the source collection.
type Record map[string]any

// RenderFunc formats a cell value for display.
type RenderFunc func(value any, rec Record) string

// Column describes how a record field is shown and queried.
type Column struct {
	Key        string
	Header     string
	Sortable   bool
	Filterable bool
	Class      string
	Render     RenderFunc
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" (any case) and Asc otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort is the active sort. An empty Key means unsorted.
type Sort struct {
	Key string    `json:"key,omitempty"`
	Dir Direction `json:"dir,omitempty"`
}

// Pagination is the pager state of the derived collection.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// Cell is a rendered value of a visible column.
type Cell struct {
	Key   string
	Value any
	Text  string
	Class string
}

// Row is a rendered record.
type Row struct {
	// Key identifies the row: the record's id, or its source position.
	Key    string
	Record Record
	Cells  []Cell
}

// Page is the rendered output of an Engine.
type Page struct {
	Columns       []Column
	Rows          []Row
	Pagination    Pagination
	Sort          Sort
	ActiveFilters int
	// Empty is the empty-state message, set only when Rows is empty.
	Empty string
}
