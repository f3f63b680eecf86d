// Stringification and comparison of record values.

package table

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Stringify returns the display form of v. The bool result is false for nil,
// which never matches a search or filter.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case time.Time:
		return t.Format(time.RFC3339), true
	case fmt.Stringer:
		return t.String(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return Stringify(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b), true
		}
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprint(v), true
}

// containsFold reports whether v's string form contains the already
// lowercased needle.
func containsFold(v any, lowerNeedle string) bool {
	s, ok := Stringify(v)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

// toFloat converts numeric values to float64.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Compare orders two cell values for sorting.
//
// nil is treated as "". Two numbers compare numerically and two strings
// case-insensitively. For a number against a string, the string is read as a
// number when it parses ("" reads as 0); otherwise both sides compare by
// their string form.
func Compare(a, b any) int {
	if a == nil {
		a = ""
	}
	if b == nil {
		b = ""
	}

	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb)
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		return cmp.Compare(strings.ToLower(sa), strings.ToLower(sb))
	}

	switch {
	case aNum && bStr:
		if f, ok := parseLoose(sb); ok {
			return cmp.Compare(fa, f)
		}
	case aStr && bNum:
		if f, ok := parseLoose(sa); ok {
			return cmp.Compare(f, fb)
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}

	as, _ := Stringify(a)
	bs, _ := Stringify(b)
	return cmp.Compare(as, bs)
}

func parseLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
