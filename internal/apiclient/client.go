// Package apiclient is the Go client of the VyapariTrack HTTP API.
//
// Every request carries the bearer token and vendor scope of a session.Store.
// A 401 on an authenticated request clears the stored credentials and calls
// the OnUnauthorized hook, so callers only need to send the user back to the
// login step.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/session"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

// ErrUnauthorized is returned when the server rejected the stored token. The
// session has been cleared by then.
var ErrUnauthorized = errors.New("session expired, please log in again")

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// OnUnauthorized sets the hook called after an expired session was cleared.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// Client talks to one server on behalf of one session.
type Client struct {
	baseURL        string
	store          *session.Store
	httpClient     *http.Client
	onUnauthorized func()
}

// New returns a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// credentialPaths authenticate with the request body. They are sent without
// the session token, and their 401s do not end the session.
var credentialPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

// Do sends in as JSON to path and decodes the response into out. Both may be
// nil. The session's vendor scope is added to query unless already present.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if vid := c.store.VendorID(); !vid.IsZero() && q.Get("vendor_id") == "" {
		q.Set("vendor_id", vid.String())
	}
	u := c.baseURL + path
	if len(q) != 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	var token string
	if !credentialPaths[path] {
		token = c.store.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		if err := c.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out != nil && len(data) != 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var er dto.ErrorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Error.Message == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Status: status, Message: msg}
	}
	return &Error{Status: status, Code: string(er.Error.Code), Message: er.Error.Message, Details: er.Details}
}

// Get fetches path.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends in to path.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

// Put replaces path with in.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

// Delete deletes path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Login signs in and stores the token and user in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.UserResponse, error) {
	var resp dto.AuthResponse
	if err := c.Post(ctx, "/api/auth/login", &dto.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	u := resp.User
	err := c.store.Update(func(st *session.State) error {
		st.Token = resp.Token
		st.User = &session.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), VendorID: u.VendorID}
		st.VendorID = 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Logout revokes the server session and clears the local one. The local
// session is cleared even when the server could not be reached.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.store.Token() != "" {
		err = c.Post(ctx, "/api/auth/logout", nil, nil)
		if errors.Is(err, ErrUnauthorized) {
			err = nil
		}
	}
	if cerr := c.store.Clear(); cerr != nil {
		return cerr
	}
	return err
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var u dto.UserResponse
	if err := c.Get(ctx, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Records fetches the raw collection of resource, e.g. "products".
func (c *Client) Records(ctx context.Context, resource string) ([]table.Record, error) {
	var resp dto.ListResponse[table.Record]
	if err := c.Get(ctx, "/api/"+url.PathEscape(resource), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []table.Record{}
	}
	return resp.Items, nil
}

// Table renders one page of resource on the server.
func (c *Client) Table(ctx context.Context, resource string, q *table.Query) (*dto.TableResponse, error) {
	var resp dto.TableResponse
	if err := c.Get(ctx, "/api/"+url.PathEscape(resource)+"/table", QueryValues(q), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Views lists the view presets.
func (c *Client) Views(ctx context.Context) (*dto.ListViewsResponse, error) {
	var resp dto.ListViewsResponse
	if err := c.Get(ctx, "/api/views", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// View returns the preset of resource.
func (c *Client) View(ctx context.Context, resource string) (*dto.ViewResponse, error) {
	var resp dto.ViewResponse
	if err := c.Get(ctx, "/api/views/"+url.PathEscape(resource), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Summary returns the dashboard figures.
func (c *Client) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	var resp dto.SummaryResponse
	if err := c.Get(ctx, "/api/analytics/summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryValues encodes q as table endpoint parameters.
func QueryValues(q *table.Query) url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	for k, p := range q.Filters {
		if p != "" {
			v.Set("f."+k, p)
		}
	}
	for _, s := range q.Sort {
		v.Add("sort", s)
	}
	if q.Dir != "" {
		v.Set("dir", string(q.Dir))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if len(q.Hide) != 0 {
		v.Set("hide", strings.Join(q.Hide, ","))
	}
	return v
}
