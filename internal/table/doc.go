// Package table derives a displayed page of rows from an in-memory record
// collection.
//
// # Overview
//
// [Engine] owns the state of one table surface: the source records, the
// column descriptors, a free-text search term, per-column substring filters,
// a single-key sort and the current page. Every setter recomputes the derived
// view in a fixed order: search, column filters, sort, paginate.
//
// # Matching
//
// Search and filters compare stringified values case-insensitively by
// substring. A nil value never matches. Search retains a row when any column
// (visible or not) matches; filters are ANDed with each other and with the
// search.
//
// # Sorting
//
// [Engine.SortBy] behaves like clicking a column header: the same key toggles
// between ascending and descending, a new key starts ascending. The sort is
// stable. Numbers compare numerically, strings case-insensitively, nil as the
// empty string.
//
// [Compare] is only a total order within one kind of value. A column mixing
// numbers with non-numeric strings can form cycles: 10 < "10a" < "2" < 10.
// Such a column still sorts without error, but the resulting order depends
// on the order of the source records.
//
// # Paging
//
// The current page is always clamped to [1, max(TotalPages, 1)]. An empty
// derived collection reports TotalPages 0 and Page 1.
//
// An Engine is not safe for concurrent use; it has exactly one owner.
package table
