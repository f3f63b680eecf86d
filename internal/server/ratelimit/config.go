// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"

	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses the client IP address as the key.
	ScopeIP Scope = iota
	// ScopeUser uses the authenticated user ID as the key.
	ScopeUser
)

// Tier is a named limiter with its key scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Limiters holds the limiter of every tier. A nil tier is unlimited.
type Limiters struct {
	Auth       *Tier
	Write      *Tier
	ReadAuth   *Tier
	ReadUnauth *Tier
}

// New creates the tiers from per-minute rates. A rate of 0 disables the tier.
// Auth allows a burst equal to its rate; the others a sixth of it.
func New(rl storage.RateLimits) *Limiters {
	return &Limiters{
		Auth:       newTier("auth", rl.AuthRatePerMin, rl.AuthRatePerMin, ScopeIP),
		Write:      newTier("write", rl.WriteRatePerMin, rl.WriteRatePerMin/6, ScopeUser),
		ReadAuth:   newTier("read", rl.ReadAuthRatePerMin, rl.ReadAuthRatePerMin/6, ScopeUser),
		ReadUnauth: newTier("read", rl.ReadUnauthRatePerMin, rl.ReadUnauthRatePerMin/6, ScopeIP),
	}
}

func newTier(name string, perMin, burst int, scope Scope) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{Name: name, Limiter: NewLimiter(perMin, time.Minute, max(burst, 1)), Scope: scope}
}

// MatchUnauth returns the tier for an unauthenticated request, or nil.
func (l *Limiters) MatchUnauth(method, path string) *Tier {
	if l == nil || path == "/api/health" {
		return nil
	}
	if isAuthEndpoint(method, path) {
		return l.Auth
	}
	if method == "GET" {
		return l.ReadUnauth
	}
	return nil
}

// MatchAuth returns the tier for an authenticated request, or nil.
func (l *Limiters) MatchAuth(method, path string) *Tier {
	if l == nil || path == "/api/health" {
		return nil
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return l.Write
	case "GET":
		return l.ReadAuth
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (l *Limiters) Close() {
	for _, t := range []*Tier{l.Auth, l.Write, l.ReadAuth, l.ReadUnauth} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}

func isAuthEndpoint(method, path string) bool {
	switch method {
	case "POST":
		return path == "/api/auth/login" || path == "/api/auth/register"
	case "GET":
		return strings.HasPrefix(path, "/api/auth/oauth/")
	}
	return false
}
