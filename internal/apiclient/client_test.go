package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/session"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.Open(filepath.Join(t.TempDir(), session.FileName))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient(t *testing.T) {
	uid := ksid.NewID()
	vid := ksid.NewID()
	var gotAuth, gotVendor string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "password123" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeUnauthorized, Message: "Invalid credentials"}})
			return
		}
		writeJSON(w, http.StatusOK, dto.AuthResponse{Token: "tok", User: &dto.UserResponse{ID: uid, Email: req.Email, Role: dto.UserRoleAdmin}})
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVendor = r.URL.Query().Get("vendor_id")
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": "1", "name": "Rice", "stock": 3}}})
	})
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeNotFound, Message: "product not found"}})
	})
	mux.HandleFunc("GET /api/products/table", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.TableResponse{Resource: "products", Search: r.URL.Query().Get("q")})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeUnauthorized, Message: "Unauthorized"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newStore(t)
	redirected := 0
	c := New(srv.URL+"/", store, WithHTTPClient(srv.Client()), OnUnauthorized(func() { redirected++ }))
	ctx := t.Context()

	// Bad credentials are a plain API error, not an expired session.
	_, err := c.Login(ctx, "asha@example.com", "wrong")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Code != "UNAUTHORIZED" {
		t.Fatalf("Login = %v", err)
	}
	if redirected != 0 {
		t.Fatal("hook called without a session")
	}

	u, err := c.Login(ctx, "asha@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != uid || store.Token() != "tok" || store.Get().User.Email != "asha@example.com" {
		t.Fatalf("login state = %+v", store.Get())
	}

	if err := store.Update(func(st *session.State) error {
		st.VendorID = vid
		st.Theme = session.ThemeLight
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	recs, err := c.Records(ctx, "products")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok" || gotVendor != vid.String() {
		t.Errorf("headers: auth %q vendor %q", gotAuth, gotVendor)
	}
	if len(recs) != 1 || recs[0]["name"] != "Rice" {
		t.Errorf("records = %v", recs)
	}

	page, err := c.Table(ctx, "products", &table.Query{Search: "rice"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Search != "rice" {
		t.Errorf("search = %q", page.Search)
	}

	err = c.Get(ctx, "/api/products/"+ksid.NewID().String(), nil, nil)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "product not found" {
		t.Errorf("Get = %v", err)
	}

	// An expired token clears the session and calls the hook.
	if _, err := c.Me(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Me = %v", err)
	}
	if redirected != 1 {
		t.Errorf("hook calls = %d", redirected)
	}
	st := store.Get()
	if st.LoggedIn() || st.User != nil || !st.VendorID.IsZero() || st.Theme != session.ThemeLight {
		t.Errorf("state after 401 = %+v", st)
	}
}

func TestCredentialsIgnoreStaleSession(t *testing.T) {
	var gotAuth []string
	deny := func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeUnauthorized, Message: "Invalid credentials"}})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", deny)
	mux.HandleFunc("POST /api/auth/register", deny)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newStore(t)
	if err := store.Update(func(st *session.State) error {
		st.Token = "stale"
		st.User = &session.User{Email: "asha@example.com"}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	redirected := 0
	c := New(srv.URL, store, WithHTTPClient(srv.Client()), OnUnauthorized(func() { redirected++ }))

	tests := []struct {
		name string
		call func() error
	}{
		{"login", func() error {
			_, err := c.Login(t.Context(), "asha@example.com", "wrong")
			return err
		}},
		{"register", func() error {
			return c.Post(t.Context(), "/api/auth/register", &dto.RegisterRequest{Email: "asha@example.com", Password: "password123", Name: "Asha"}, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAuth = nil
			var apiErr *Error
			if err := tt.call(); !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
				t.Fatalf("err = %v", err)
			}
			if len(gotAuth) != 1 || gotAuth[0] != "" {
				t.Errorf("Authorization = %q", gotAuth)
			}
			if redirected != 0 || store.Token() != "stale" {
				t.Errorf("session ended: hook %d, token %q", redirected, store.Token())
			}
		})
	}
}

func TestDecodeErrorPlainText(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("upstream down\n"))
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" || apiErr.Code != "" {
		t.Fatalf("err = %#v", err)
	}
}

func TestQueryValues(t *testing.T) {
	q := &table.Query{
		Search:   "rice",
		Filters:  map[string]string{"unit": "bag", "name": ""},
		Sort:     []string{"stock"},
		Dir:      table.Desc,
		Page:     2,
		PageSize: 25,
		Hide:     []string{"sku", "unit"},
	}
	got := QueryValues(q)
	want := map[string][]string{
		"q":         {"rice"},
		"f.unit":    {"bag"},
		"sort":      {"stock"},
		"dir":       {"desc"},
		"page":      {"2"},
		"page_size": {"25"},
		"hide":      {"sku,unit"},
	}
	if !reflect.DeepEqual(map[string][]string(got), want) {
		t.Errorf("QueryValues = %v", got)
	}
	if len(QueryValues(nil)) != 0 {
		t.Error("nil query must be empty")
	}
}
