// Package legacy imports the data of the original MySQL deployment into the
// JSONL tables.
//
// The original schema drifted between camelCase (vendorId, createdAt),
// PascalCase (VendorId) and snake_case (vendor_id) column names. Every column
// name is normalised to snake_case before use so all variants import the same.
package legacy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

// Row is one source row keyed by normalised column name.
type Row map[string]any

// NormalizeColumn returns the snake_case form of a column name.
func NormalizeColumn(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case r == '-' || r == ' ' || r == '.':
			b.WriteByte('_')
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}

// NormalizeRow returns a copy of m with normalised keys. When two columns
// normalise to the same name, the first non-nil value wins.
func NormalizeRow(m map[string]any) Row {
	r := make(Row, len(m))
	for k, v := range m {
		k = NormalizeColumn(k)
		if prev, ok := r[k]; ok && prev != nil {
			continue
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		r[k] = v
	}
	return r
}

func (r Row) value(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r Row) str(keys ...string) string {
	switch v := r.value(keys...).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) int(keys ...string) (int64, bool) {
	switch v := r.value(keys...).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	}
	return 0, false
}

func (r Row) float(keys ...string) float64 {
	switch v := r.value(keys...).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	if i, ok := r.int(keys...); ok {
		return float64(i)
	}
	return 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r Row) time(keys ...string) storage.Time {
	switch v := r.value(keys...).(type) {
	case time.Time:
		return storage.ToTime(v)
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return storage.ToTime(t)
			}
		}
	}
	return 0
}
