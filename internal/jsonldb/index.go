// In-memory secondary indexes kept in sync through TableObserver.

package jsonldb

import (
	"iter"
	"slices"
	"sync"

	"github.com/maruel/ksid"
)

// UniqueIndex provides O(1) lookup by a unique secondary key.
//
// Keys are expected to be unique; callers enforce uniqueness before writing.
// If duplicates exist on disk, the row with the highest ID wins.
type UniqueIndex[K comparable, T Row[T]] struct {
	table   *Table[T]
	keyFunc func(T) K
	mu      sync.Mutex
	byKey   map[K]ksid.ID
}

// NewUniqueIndex creates a unique index on table.
func NewUniqueIndex[K comparable, T Row[T]](table *Table[T], keyFunc func(T) K) *UniqueIndex[K, T] {
	idx := &UniqueIndex[K, T]{table: table, keyFunc: keyFunc, byKey: make(map[K]ksid.ID)}
	table.AddObserver(idx)
	return idx
}

// Get returns a clone of the row with the given key, or the zero value.
func (idx *UniqueIndex[K, T]) Get(key K) T {
	idx.mu.Lock()
	id, ok := idx.byKey[key]
	idx.mu.Unlock()
	if !ok {
		var zero T
		return zero
	}
	return idx.table.Get(id)
}

// Lookup returns the ID for key.
func (idx *UniqueIndex[K, T]) Lookup(key K) (ksid.ID, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	id, ok := idx.byKey[key]
	return id, ok
}

// OnAppend implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnAppend(row T) {
	idx.mu.Lock()
	idx.byKey[idx.keyFunc(row)] = row.GetID()
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnUpdate(prev, curr T) {
	oldKey, newKey := idx.keyFunc(prev), idx.keyFunc(curr)
	idx.mu.Lock()
	if oldKey != newKey && idx.byKey[oldKey] == prev.GetID() {
		delete(idx.byKey, oldKey)
	}
	idx.byKey[newKey] = curr.GetID()
	idx.mu.Unlock()
}

// OnDelete implements [TableObserver].
func (idx *UniqueIndex[K, T]) OnDelete(row T) {
	key := idx.keyFunc(row)
	idx.mu.Lock()
	if idx.byKey[key] == row.GetID() {
		delete(idx.byKey, key)
	}
	idx.mu.Unlock()
}

// Index provides O(1) lookup by a non-unique secondary key.
type Index[K comparable, T Row[T]] struct {
	table   *Table[T]
	keyFunc func(T) K
	mu      sync.Mutex
	byKey   map[K]map[ksid.ID]struct{}
}

// NewIndex creates a non-unique index on table.
func NewIndex[K comparable, T Row[T]](table *Table[T], keyFunc func(T) K) *Index[K, T] {
	idx := &Index[K, T]{table: table, keyFunc: keyFunc, byKey: make(map[K]map[ksid.ID]struct{})}
	table.AddObserver(idx)
	return idx
}

// Count returns the number of rows with key.
func (idx *Index[K, T]) Count(key K) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.byKey[key])
}

// Iter yields clones of the rows matching key, in ID order.
func (idx *Index[K, T]) Iter(key K) iter.Seq[T] {
	return func(yield func(T) bool) {
		// Snapshot IDs so the index lock is not held while yielding.
		idx.mu.Lock()
		ids := make([]ksid.ID, 0, len(idx.byKey[key]))
		for id := range idx.byKey[key] {
			ids = append(ids, id)
		}
		idx.mu.Unlock()
		slices.Sort(ids)
		for _, id := range ids {
			row, ok := idx.table.lookup(id)
			if !ok {
				continue // deleted since the snapshot
			}
			if !yield(row) {
				return
			}
		}
	}
}

// OnAppend implements [TableObserver].
func (idx *Index[K, T]) OnAppend(row T) {
	key := idx.keyFunc(row)
	idx.mu.Lock()
	if idx.byKey[key] == nil {
		idx.byKey[key] = make(map[ksid.ID]struct{})
	}
	idx.byKey[key][row.GetID()] = struct{}{}
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *Index[K, T]) OnUpdate(prev, curr T) {
	oldKey, newKey := idx.keyFunc(prev), idx.keyFunc(curr)
	if oldKey == newKey {
		return
	}
	idx.OnDelete(prev)
	idx.OnAppend(curr)
}

// OnDelete implements [TableObserver].
func (idx *Index[K, T]) OnDelete(row T) {
	key := idx.keyFunc(row)
	idx.mu.Lock()
	delete(idx.byKey[key], row.GetID())
	if len(idx.byKey[key]) == 0 {
		delete(idx.byKey, key)
	}
	idx.mu.Unlock()
}
