// Package reqctx carries request metadata through a context.
package reqctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/maruel/ksid"
)

// GetClientIP extracts the client IP from an HTTP request, checking
// X-Forwarded-For and X-Real-IP for proxied requests.
func GetClientIP(r *http.Request) string {
	// The leftmost X-Forwarded-For entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}

type contextKey int

const (
	keyClientIP contextKey = iota
	keyUserAgent
	keySessionID
)

// WithClientIP adds the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP extracts the client IP from the context.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(keyClientIP).(string)
	return v
}

// WithUserAgent adds the User-Agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, keyUserAgent, ua)
}

// UserAgent extracts the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(keyUserAgent).(string)
	return v
}

// WithSessionID adds the session ID to the context.
func WithSessionID(ctx context.Context, id ksid.ID) context.Context {
	return context.WithValue(ctx, keySessionID, id)
}

// SessionID extracts the session ID from the context.
func SessionID(ctx context.Context) ksid.ID {
	v, _ := ctx.Value(keySessionID).(ksid.ID)
	return v
}
