// Named cell renderers usable from presets.

package viewcfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

var renderers = map[string]table.RenderFunc{
	"currency": renderCurrency,
	"number":   renderNumber,
	"date":     renderUnix("2006-01-02"),
	"datetime": renderUnix("2006-01-02 15:04"),
	"upper":    renderUpper,
	"status":   renderStatus,
	"bool":     renderBool,
	"count":    renderCount,
}

// Renderer returns the render function registered under name.
func Renderer(name string) (table.RenderFunc, bool) {
	r, ok := renderers[name]
	return r, ok
}

// RendererNames returns the registered renderer names.
func RendererNames() []string {
	names := make([]string, 0, len(renderers))
	for n := range renderers {
		names = append(names, n)
	}
	return names
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func renderCurrency(v any, _ table.Record) string {
	f, ok := number(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func renderNumber(v any, _ table.Record) string {
	s, _ := table.Stringify(v)
	return s
}

func renderUnix(layout string) table.RenderFunc {
	return func(v any, _ table.Record) string {
		f, ok := number(v)
		if !ok || f == 0 {
			return ""
		}
		return time.Unix(int64(f), 0).UTC().Format(layout)
	}
}

func renderUpper(v any, _ table.Record) string {
	s, _ := table.Stringify(v)
	return strings.ToUpper(s)
}

func renderStatus(v any, _ table.Record) string {
	s, _ := table.Stringify(v)
	return humanize(s)
}

func renderBool(v any, _ table.Record) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case nil:
		return ""
	}
	s, _ := table.Stringify(v)
	return s
}

func renderCount(v any, _ table.Record) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return strconv.Itoa(rv.Len())
	}
	if v == nil {
		return "0"
	}
	s, _ := table.Stringify(v)
	return s
}

// humanize turns "cost_price" into "Cost price".
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
