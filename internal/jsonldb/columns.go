// Schema header of a table file, derived from the row type.

package jsonldb

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

var errSchemaVersionRequired = errors.New("schema version is required")

const currentVersion = "1.0"

type columnType string

const (
	columnTypeText   columnType = "text"
	columnTypeNumber columnType = "number"
	columnTypeBool   columnType = "bool"
	columnTypeJSONB  columnType = "jsonb"
)

type column struct {
	Name        string     `json:"name"`
	Type        columnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

type schemaHeader struct {
	Version string   `json:"version"`
	Columns []column `json:"columns"`
}

func (h *schemaHeader) Validate() error {
	if h.Version == "" {
		return errSchemaVersionRequired
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if col.Type == "" {
			return fmt.Errorf("column %d: type is required", i)
		}
	}
	return nil
}

// schemaFromType extracts column definitions using JSON Schema reflection,
// including `jsonschema:"description=..."` tags and required fields.
func schemaFromType[T any]() ([]column, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(t)

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	var columns []column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		columns = append(columns, column{
			Name:        pair.Key,
			Type:        schemaTypeToColumnType(pair.Value),
			Required:    required[pair.Key],
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

func schemaTypeToColumnType(s *jsonschema.Schema) columnType {
	switch s.Type {
	case "number", "integer":
		return columnTypeNumber
	case "boolean":
		return columnTypeBool
	case "object", "array":
		return columnTypeJSONB
	}
	return columnTypeText
}
