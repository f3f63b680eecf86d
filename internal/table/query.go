package table

import "sort"

// Query is a batch of interactions replayed on an Engine, in the order a
// user would perform them: visibility toggles, search, filters, sort, page
// size, then page.
type Query struct {
	Search  string
	Filters map[string]string
	// Sort lists header clicks. When Dir is set only the last key is used and
	// selected with Dir.
	Sort     []string
	Dir      Direction
	PageSize int
	Page     int
	Hide     []string
}

// Apply replays q on e. Zero fields leave the engine state alone.
func (q *Query) Apply(e *Engine) {
	for _, k := range q.Hide {
		e.ToggleColumnVisibility(k)
	}
	if q.Search != "" {
		e.SetSearchTerm(q.Search)
	}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.SetColumnFilter(k, q.Filters[k])
	}
	if len(q.Sort) > 0 {
		if q.Dir != "" {
			e.SetSort(q.Sort[len(q.Sort)-1], q.Dir)
		} else {
			for _, k := range q.Sort {
				e.SortBy(k)
			}
		}
	}
	if q.PageSize > 0 {
		e.SetPageSize(q.PageSize)
	}
	if q.Page > 0 {
		e.GoToPage(q.Page)
	}
}
