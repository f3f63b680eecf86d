// Generic JSONL table with in-memory cache and mutation observers.

package jsonldb

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/maruel/ksid"
)

var (
	errZeroID      = errors.New("row has zero ID")
	errDuplicateID = errors.New("duplicate ID")
	errNotFound    = errors.New("row not found")
)

// Row is implemented by every type stored in a [Table].
type Row[T any] interface {
	Clone() T
	GetID() ksid.ID
	Validate() error
}

// TableObserver receives notifications after each committed mutation.
//
// Callbacks run while the table write lock is held and must not call back
// into the table.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Table handles storage and in-memory caching for a single JSONL file.
type Table[T Row[T]] struct {
	path string

	mu        sync.RWMutex
	rows      []T
	byID      map[ksid.ID]int
	observers []TableObserver[T]
}

// NewTable creates a Table and loads all rows from path, creating the parent
// directory if needed.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: data directory is shared with git
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	t := &Table[T]{path: path, byID: map[ksid.ID]int{}}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	header := true
	var rows []T
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if header {
			header = false
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("failed to parse schema header in %s: %w", t.path, err)
			}
			if err := h.Validate(); err != nil {
				return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		if row.GetID().IsZero() {
			return fmt.Errorf("%s: %w", t.path, errZeroID)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row %s in %s: %w", row.GetID(), t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	slices.SortFunc(rows, func(a, b T) int {
		x, y := a.GetID(), b.GetID()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
	for i, r := range rows {
		if _, ok := t.byID[r.GetID()]; ok {
			return fmt.Errorf("%s: %w %s", t.path, errDuplicateID, r.GetID())
		}
		t.byID[r.GetID()] = i
	}
	t.rows = rows
	return nil
}

// AddObserver registers o and replays every existing row to its OnAppend.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.rows {
		o.OnAppend(r)
	}
	t.observers = append(t.observers, o)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Last returns a clone of the row with the highest ID, or the zero value.
func (t *Table[T]) Last() T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		var zero T
		return zero
	}
	return t.rows[len(t.rows)-1].Clone()
}

// Get returns a clone of the row with the given ID, or the zero value.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, _ := t.lookupLocked(id)
	return row
}

func (t *Table[T]) lookup(id ksid.ID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(id)
}

func (t *Table[T]) lookupLocked(id ksid.ID) (T, bool) {
	if i, ok := t.byID[id]; ok {
		return t.rows[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Iter returns clones of rows with an ID strictly greater than startID, in
// ID order. Pass 0 to iterate over every row.
//
// The read lock is held during iteration.
func (t *Table[T]) Iter(startID ksid.ID) iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		start, _ := slices.BinarySearchFunc(t.rows, startID, func(r T, id ksid.ID) int {
			switch x := r.GetID(); {
			case x <= id:
				return -1
			default:
				return 1
			}
		})
		for _, r := range t.rows[start:] {
			if !yield(r.Clone()) {
				return
			}
		}
	}
}

// Append validates row and appends it to the file.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	id := row.GetID()
	if id.IsZero() {
		return errZeroID
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("%w %s", errDuplicateID, id)
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	row = row.Clone()
	if len(t.rows) != 0 && id < t.rows[len(t.rows)-1].GetID() {
		// Out of order; keep the slice sorted and rewrite.
		rows := slices.Clone(t.rows)
		i, _ := slices.BinarySearchFunc(rows, id, func(r T, id ksid.ID) int {
			if r.GetID() < id {
				return -1
			}
			return 1
		})
		rows = slices.Insert(rows, i, row)
		if err := t.save(rows); err != nil {
			return err
		}
		t.setRows(rows)
	} else {
		if err := t.appendLine(data); err != nil {
			return err
		}
		t.byID[id] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	for _, o := range t.observers {
		o.OnAppend(row)
	}
	return nil
}

// Update replaces the row with the same ID. It returns the previous row, or
// the zero value and no error when the ID is unknown.
func (t *Table[T]) Update(row T) (T, error) {
	var zero T
	if err := row.Validate(); err != nil {
		return zero, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[row.GetID()]
	if !ok {
		return zero, nil
	}
	return t.replaceAt(i, row.Clone())
}

// Modify applies fn to a clone of the row under the write lock and persists
// the result. fn returning an error aborts the change.
func (t *Table[T]) Modify(id ksid.ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", errNotFound, id)
	}
	row := t.rows[i].Clone()
	if err := fn(row); err != nil {
		return zero, err
	}
	if row.GetID() != id {
		return zero, errors.New("modify must not change the row ID")
	}
	if err := row.Validate(); err != nil {
		return zero, err
	}
	if _, err := t.replaceAt(i, row); err != nil {
		return zero, err
	}
	return row.Clone(), nil
}

func (t *Table[T]) replaceAt(i int, row T) (T, error) {
	var zero T
	prev := t.rows[i]
	rows := slices.Clone(t.rows)
	rows[i] = row
	if err := t.save(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, row)
	}
	return prev, nil
}

// Delete removes the row with the given ID and reports whether it existed.
func (t *Table[T]) Delete(id ksid.ID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return false, nil
	}
	prev := t.rows[i]
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.save(rows); err != nil {
		return false, err
	}
	t.setRows(rows)
	for _, o := range t.observers {
		o.OnDelete(prev)
	}
	return true, nil
}

// Replace replaces every row. Observers see deletions then appends.
func (t *Table[T]) Replace(rows []T) error {
	seen := make(map[ksid.ID]bool, len(rows))
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
		id := r.GetID()
		if id.IsZero() {
			return errZeroID
		}
		if seen[id] {
			return fmt.Errorf("%w %s", errDuplicateID, id)
		}
		seen[id] = true
	}
	rows = slices.Clone(rows)
	slices.SortFunc(rows, func(a, b T) int {
		if a.GetID() < b.GetID() {
			return -1
		}
		return 1
	})
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.save(rows); err != nil {
		return err
	}
	old := t.rows
	t.setRows(rows)
	for _, o := range t.observers {
		for _, r := range old {
			o.OnDelete(r)
		}
		for _, r := range rows {
			o.OnAppend(r)
		}
	}
	return nil
}

func (t *Table[T]) setRows(rows []T) {
	t.rows = rows
	t.byID = make(map[ksid.ID]int, len(rows))
	for i, r := range rows {
		t.byID[r.GetID()] = i
	}
}

func (t *Table[T]) header() ([]byte, error) {
	cols, err := schemaFromType[T]()
	if err != nil {
		return nil, err
	}
	return json.Marshal(schemaHeader{Version: currentVersion, Columns: cols})
}

func (t *Table[T]) appendLine(data []byte) error {
	needHeader := false
	if fi, err := os.Stat(t.path); errors.Is(err, os.ErrNotExist) || (err == nil && fi.Size() == 0) {
		needHeader = true
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: data files are git tracked
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	w := bufio.NewWriter(f)
	if needHeader {
		h, err := t.header()
		if err != nil {
			return err
		}
		_, _ = w.Write(h)
		_ = w.WriteByte('\n')
	}
	_, _ = w.Write(data)
	_ = w.WriteByte('\n')
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// save rewrites the whole file atomically.
func (t *Table[T]) save(rows []T) error {
	h, err := t.header()
	if err != nil {
		return err
	}
	tmp := t.path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // G304: path derived from table path
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	w := bufio.NewWriter(f)
	_, _ = w.Write(h)
	_ = w.WriteByte('\n')
	for _, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		_, _ = w.Write(data)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
