package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadServerConfig(t *testing.T) {
	t.Run("creates defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(cfg.JWTSecret) != 32 {
			t.Errorf("JWTSecret length = %d", len(cfg.JWTSecret))
		}
		if cfg.VAPID.PublicKey == "" || cfg.VAPID.PrivateKey == "" {
			t.Error("VAPID keys not generated")
		}
		if !cfg.LowStockAlerts {
			t.Error("LowStockAlerts should default to true")
		}
		if cfg.Quotas.TokenLifetime() != 7*24*time.Hour {
			t.Errorf("TokenLifetime() = %v", cfg.Quotas.TokenLifetime())
		}
		fi, err := os.Stat(filepath.Join(dir, ConfigFileName))
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v", fi.Mode().Perm())
		}

		again, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if string(again.JWTSecret) != string(cfg.JWTSecret) || again.VAPID != cfg.VAPID {
			t.Error("secrets regenerated on reload")
		}
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		dir := t.TempDir()
		data := `{"rate_limits":{"auth_rate_per_min":3,"write_rate_per_min":1,"read_auth_rate_per_min":1,"read_unauth_rate_per_min":1}}`
		if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadServerConfig(dir)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.RateLimits.AuthRatePerMin != 3 {
			t.Errorf("AuthRatePerMin = %d", cfg.RateLimits.AuthRatePerMin)
		}
		if cfg.Quotas.MaxRequestBodyBytes != DefaultServerQuotas().MaxRequestBodyBytes {
			t.Error("quota default lost")
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			data    string
			wantErr string
		}{
			{"not json", "{", "failed to parse"},
			{"short secret", `{"jwt_secret":"c2hvcnQ="}`, "at least 32 bytes"},
			{"negative rate", `{"rate_limits":{"auth_rate_per_min":-1}}`, "auth_rate_per_min"},
			{"bad lifetime", `{"quotas":{"max_request_body_bytes":10,"token_lifetime_hours":0}}`, "token_lifetime_hours"},
			{"half vapid", `{"vapid":{"public_key":"abc"}}`, "set together"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(tt.data), 0o600); err != nil {
					t.Fatal(err)
				}
				_, err := LoadServerConfig(dir)
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("LoadServerConfig() error = %v, want containing %q", err, tt.wantErr)
				}
			})
		}
	})
}
