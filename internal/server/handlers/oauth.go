package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const stateCookie = "oauth_state"

// OAuthHandler handles OAuth2 authentication for multiple providers.
type OAuthHandler struct {
	svc         *Services
	authHandler *AuthHandler
	providers   map[string]*oauth2.Config
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(svc *Services, authHandler *AuthHandler) *OAuthHandler {
	return &OAuthHandler{
		svc:         svc,
		authHandler: authHandler,
		providers:   make(map[string]*oauth2.Config),
	}
}

// AddProvider adds an OAuth2 provider configuration. Unknown names are
// ignored.
func (h *OAuthHandler) AddProvider(name, clientID, clientSecret, redirectURL string) {
	var endpoint oauth2.Endpoint
	var scopes []string
	switch name {
	case "google":
		endpoint = google.Endpoint
		scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	case "microsoft":
		endpoint = microsoft.AzureADEndpoint("common")
		scopes = []string{"openid", "profile", "email", "User.Read"}
	default:
		return
	}
	h.providers[name] = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

// Providers returns the configured provider names.
func (h *OAuthHandler) Providers() []string {
	out := make([]string, 0, len(h.providers))
	for name := range h.providers {
		out = append(out, name)
	}
	return out
}

// LoginRedirect redirects the user to the OAuth provider, remembering the
// state in a short-lived cookie.
func (h *OAuthHandler) LoginRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	config, ok := h.providers[r.PathValue("provider")]
	if !ok {
		WriteError(ctx, w, dto.InvalidProvider())
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		WriteError(ctx, w, dto.InternalWithError("Failed to generate state", err))
		return
	}
	state := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/oauth/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth provider callback and responds with a token.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := r.PathValue("provider")
	config, ok := h.providers[provider]
	if !ok {
		WriteError(ctx, w, dto.InvalidProvider())
		return
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		WriteError(ctx, w, dto.BadRequest("OAuth state mismatch"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth/oauth/", MaxAge: -1})
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(ctx, w, dto.MissingField("code"))
		return
	}
	token, err := config.Exchange(ctx, code)
	if err != nil {
		WriteError(ctx, w, dto.OAuthError("Failed to exchange token").Wrap(err))
		return
	}
	info, err := fetchUserInfo(ctx, provider, config.Client(ctx, token))
	if err != nil {
		WriteError(ctx, w, dto.OAuthError("Failed to get user info").Wrap(err))
		return
	}
	resp, err := h.signIn(ctx, provider, info)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	WriteJSON(ctx, w, http.StatusOK, resp)
}

type oauthUser struct {
	ID    string
	Email string
	Name  string
}

// signIn finds or creates the local user of a provider identity.
func (h *OAuthHandler) signIn(ctx context.Context, provider string, info *oauthUser) (*dto.AuthResponse, error) {
	if strings.TrimSpace(info.Email) == "" {
		return nil, dto.OAuthError("Provider returned no email")
	}
	ident := identity.OAuthIdentity{Provider: provider, ProviderID: info.ID, Email: info.Email}
	user, err := h.svc.User.GetByOAuth(provider, info.ID)
	if err == nil {
		user, err = h.svc.User.LinkOAuth(user.ID, ident)
	} else if user, err = h.svc.User.GetByEmail(info.Email); err == nil {
		user, err = h.svc.User.LinkOAuth(user.ID, ident)
	} else if errors.Is(err, identity.ErrUserNotFound) {
		user, err = h.svc.User.CreateOAuth(info.Email, info.Name, ident)
		if err == nil {
			slog.InfoContext(ctx, "User registered", "user", user.ID, "provider", provider)
		}
	}
	if err != nil {
		return nil, storeError(err, "user")
	}
	return h.authHandler.authResponse(ctx, user)
}

func fetchUserInfo(ctx context.Context, provider string, client *http.Client) (*oauthUser, error) {
	switch provider {
	case "google":
		var g struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &g); err != nil {
			return nil, err
		}
		return &oauthUser{ID: g.ID, Email: g.Email, Name: g.Name}, nil
	case "microsoft":
		var m struct {
			ID                string `json:"id"`
			DisplayName       string `json:"displayName"`
			UserPrincipalName string `json:"userPrincipalName"`
			Mail              string `json:"mail"`
		}
		if err := getJSON(ctx, client, "https://graph.microsoft.com/v1.0/me", &m); err != nil {
			return nil, err
		}
		u := &oauthUser{ID: m.ID, Email: m.Mail, Name: m.DisplayName}
		if u.Email == "" {
			u.Email = m.UserPrincipalName
		}
		return u, nil
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode user info: %w", err)
	}
	return nil
}
