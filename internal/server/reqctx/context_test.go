package reqctx

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/maruel/ksid"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"ipv4 with port", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"ipv6 with port", "[2001:db8::1]:8080", nil, "2001:db8::1"},
		{"no port", "192.0.2.9", nil, "192.0.2.9"},
		{"forwarded list", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "203.0.113.5"},
		{"forwarded single", "10.0.0.1:1", map[string]string{"X-Forwarded-For": " 203.0.113.6 "}, "203.0.113.6"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if ClientIP(ctx) != "" || UserAgent(ctx) != "" || !SessionID(ctx).IsZero() {
		t.Fatal("empty context must yield zero values")
	}
	sid := ksid.NewID()
	ctx = WithClientIP(ctx, "192.0.2.1")
	ctx = WithUserAgent(ctx, "curl/8")
	ctx = WithSessionID(ctx, sid)
	if got := ClientIP(ctx); got != "192.0.2.1" {
		t.Errorf("ClientIP = %q", got)
	}
	if got := UserAgent(ctx); got != "curl/8" {
		t.Errorf("UserAgent = %q", got)
	}
	if got := SessionID(ctx); got != sid {
		t.Errorf("SessionID = %v", got)
	}
}
