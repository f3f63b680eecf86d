package storage

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTime(t *testing.T) {
	target := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	st := ToTime(target)
	if !st.AsTime().Equal(target) {
		t.Errorf("AsTime() = %v, want %v", st.AsTime(), target)
	}
	if ToTime(time.Time{}) != 0 || !Time(0).IsZero() {
		t.Error("zero time should map to 0")
	}

	b, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1772368200" {
		t.Errorf("Marshal = %s", b)
	}

	tests := []struct {
		in   string
		want Time
	}{
		{"123", 123},
		{"1.4", 1},
		{"1.6", 2},
	}
	for _, tt := range tests {
		var got Time
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
	var bad Time
	if err := json.Unmarshal([]byte(`"x"`), &bad); err == nil {
		t.Error("expected error for string")
	}
}
