// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/vyaparitrack/vyaparitrack/internal/analytics"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ipgeo"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/audit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
	"github.com/vyaparitrack/vyaparitrack/internal/viewcfg"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Store            *inventory.Store
	User             *identity.UserService
	Session          *identity.SessionService
	PushSubscription *identity.PushSubscriptionService
	Analytics        *analytics.Service
	Views            *viewcfg.Presets
	Audit            *audit.Repo    // may be nil
	GeoIP            *ipgeo.Checker // may be nil
}

// Config holds configuration values needed by handlers.
type Config struct {
	JWTSecret      []byte
	BaseURL        string
	Version        string
	Quotas         storage.ServerQuotas
	VAPID          storage.VAPIDConfig
	LowStockAlerts bool
	OAuth          []OAuthProvider
}

// OAuthProvider holds the client credentials of one login provider.
type OAuthProvider struct {
	Name         string // google or microsoft
	ClientID     string
	ClientSecret string
}

// AuditAuthor returns the commit author for changes made by user.
func AuditAuthor(user *identity.User) audit.Author {
	if user == nil {
		return audit.Author{}
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return audit.Author{Name: name, Email: user.Email}
}
