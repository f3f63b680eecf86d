package table

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStringify(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"string", "Dal", "Dal", true},
		{"float integral", 12.0, "12", true},
		{"float", 12.5, "12.5", true},
		{"int", 7, "7", true},
		{"int32", int32(-4), "-4", true},
		{"bool", true, "true", true},
		{"json number", json.Number("3.10"), "3.10", true},
		{"time", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), "2026-03-01T10:00:00Z", true},
		{"nested map", map[string]any{"a": 1}, `{"a":1}`, true},
		{"slice", []any{"x", 2}, `["x",2]`, true},
		{"nil pointer", (*int)(nil), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Stringify(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Stringify(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"numbers", 2.0, 10.0, -1},
		{"mixed numeric kinds", 3, 2.5, 1},
		{"equal numbers", 4, 4.0, 0},
		{"strings fold case", "apple", "Banana", -1},
		{"strings equal ignoring case", "RICE", "rice", 0},
		{"nil as empty string", nil, "a", -1},
		{"nil equals empty", nil, "", 0},
		{"nil against number", nil, 5.0, -1},
		{"numeric string against number", "12", 3.0, 1},
		{"text against number", "abc", 3.0, 1},
		{"bools", false, true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestCompareMixedKinds(t *testing.T) {
	// Numbers against non-numeric strings compare by string form, which
	// breaks transitivity.
	cycle := []any{10, "10a", "2"}
	for i, a := range cycle {
		b := cycle[(i+1)%len(cycle)]
		if got := Compare(a, b); got != -1 {
			t.Errorf("Compare(%#v, %#v) = %d, want -1", a, b, got)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"desc": Desc, "DESC": Desc, "asc": Asc, "": Asc, "down": Asc} {
		if got := ParseDirection(in); got != want {
			t.Errorf("ParseDirection(%q) = %q, want %q", in, got, want)
		}
	}
}
