// Manages server configuration stored in server_config.json.

package storage

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// ConfigFileName is the name of the server configuration file in the data directory.
const ConfigFileName = "server_config.json"

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// JWTSecret is the secret used to sign JWT tokens.
	// Auto-generated if empty on first load.
	JWTSecret []byte `json:"jwt_secret"`

	// VAPID holds the web push key pair. Auto-generated if empty.
	VAPID VAPIDConfig `json:"vapid"`

	Quotas     ServerQuotas `json:"quotas"`
	RateLimits RateLimits   `json:"rate_limits"`

	// LowStockAlerts enables web push notifications when a sale drops a
	// product to or below its reorder level.
	LowStockAlerts bool `json:"low_stock_alerts"`
}

// VAPIDConfig is the web push application server identity.
type VAPIDConfig struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	// Subject is a mailto: or https: contact URL sent to push services.
	Subject string `json:"subject"`
}

// RateLimits defines rate limiting configuration (requests per minute).
// 0 means unlimited.
type RateLimits struct {
	AuthRatePerMin       int `json:"auth_rate_per_min"`
	WriteRatePerMin      int `json:"write_rate_per_min"`
	ReadAuthRatePerMin   int `json:"read_auth_rate_per_min"`
	ReadUnauthRatePerMin int `json:"read_unauth_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadAuthRatePerMin < 0 {
		return errors.New("read_auth_rate_per_min must be non-negative")
	}
	if r.ReadUnauthRatePerMin < 0 {
		return errors.New("read_unauth_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		AuthRatePerMin:       10,
		WriteRatePerMin:      120,
		ReadAuthRatePerMin:   30000,
		ReadUnauthRatePerMin: 6000,
	}
}

// ServerQuotas defines server-wide resource limits.
type ServerQuotas struct {
	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`

	// MaxSessionsPerUser limits active sessions per user. 0 means unlimited.
	MaxSessionsPerUser int `json:"max_sessions_per_user"`

	// MaxUsers limits total users on the server. 0 means unlimited.
	MaxUsers int `json:"max_users"`

	// TokenLifetimeHours is the validity of issued JWTs and their sessions.
	TokenLifetimeHours int `json:"token_lifetime_hours"`
}

// TokenLifetime returns TokenLifetimeHours as a duration.
func (q *ServerQuotas) TokenLifetime() time.Duration {
	return time.Duration(q.TokenLifetimeHours) * time.Hour
}

// Validate checks the quota values.
func (q *ServerQuotas) Validate() error {
	if q.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	if q.MaxSessionsPerUser < 0 {
		return errors.New("max_sessions_per_user must be non-negative")
	}
	if q.MaxUsers < 0 {
		return errors.New("max_users must be non-negative")
	}
	if q.TokenLifetimeHours <= 0 {
		return errors.New("token_lifetime_hours must be positive")
	}
	return nil
}

// DefaultServerQuotas returns the default server-wide quotas.
func DefaultServerQuotas() ServerQuotas {
	return ServerQuotas{
		MaxRequestBodyBytes: 1024 * 1024,
		MaxSessionsPerUser:  10,
		MaxUsers:            500,
		TokenLifetimeHours:  24 * 7,
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("jwt_secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if (c.VAPID.PublicKey == "") != (c.VAPID.PrivateKey == "") {
		return errors.New("vapid: public_key and private_key must be set together")
	}
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist. Generates the JWT
// secret and the VAPID key pair when missing.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, ConfigFileName)
	cfg := ServerConfig{
		Quotas:         DefaultServerQuotas(),
		RateLimits:     DefaultRateLimits(),
		LowStockAlerts: true,
		VAPID:          VAPIDConfig{Subject: "mailto:admin@localhost"},
	}

	modified := false
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
		}
		modified = true
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}

	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		modified = true
	}
	if cfg.VAPID.PublicKey == "" && cfg.VAPID.PrivateKey == "" {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
		}
		cfg.VAPID.PrivateKey = priv
		cfg.VAPID.PublicKey = pub
		modified = true
	}

	if modified {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, ConfigFileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}
	return nil
}
