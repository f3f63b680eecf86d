// Derives default column descriptors from Go record types.

package viewcfg

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

// ColumnsFor derives column descriptors from the JSON form of T using JSON
// Schema reflection. Headers come from `jsonschema:"title=..."` tags, or the
// humanized JSON name. Scalars are sortable; strings are also filterable.
// Fields tagged `jsonschema:"-"` are skipped by the reflector.
func ColumnsFor[T any]() ([]table.Column, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(t)

	var cols []table.Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		prop := pair.Value
		header := prop.Title
		if header == "" {
			header = humanize(name)
		}
		c := table.Column{Key: name, Header: header}
		switch prop.Type {
		case "string":
			c.Sortable = true
			c.Filterable = true
		case "number", "integer", "boolean":
			c.Sortable = true
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// KeysFor returns the JSON field names of T, in declaration order.
func KeysFor[T any]() ([]string, error) {
	cols, err := ColumnsFor[T]()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys, nil
}

// Derived builds a preset for a resource without a configured view. Every
// column is visible, in the order of cols.
func Derived(name string, cols []table.Column) *Preset {
	p := &Preset{
		Title:   humanize(strings.ReplaceAll(name, "-", " ")),
		Columns: make([]ColumnConfig, len(cols)),
	}
	for i, c := range cols {
		p.Columns[i] = ColumnConfig{
			Key:        c.Key,
			Header:     c.Header,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Class:      c.Class,
		}
	}
	return p
}
