package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/analytics"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/handlers"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ratelimit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/audit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
	"github.com/vyaparitrack/vyaparitrack/internal/viewcfg"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T, rl storage.RateLimits) *testServer {
	t.Helper()
	return newTestServerWithViews(t, rl, viewcfg.Default())
}

func newTestServerWithViews(t *testing.T, rl storage.RateLimits, views *viewcfg.Presets) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := inventory.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	users, err := identity.NewUserService(filepath.Join(dir, "users.jsonl"), 0)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := identity.NewSessionService(filepath.Join(dir, "sessions.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	subs, err := identity.NewPushSubscriptionService(filepath.Join(dir, "push_subscriptions.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	repo, err := audit.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{
		Store:            store,
		User:             users,
		Session:          sessions,
		PushSubscription: subs,
		Analytics:        analytics.New(store),
		Views:            views,
		Audit:            repo,
	}
	cfg := &handlers.Config{
		JWTSecret: []byte("test-secret-that-is-long-enough-32b"),
		Version:   "test",
		Quotas:    storage.DefaultServerQuotas(),
	}
	limiters := ratelimit.New(rl)
	srv := httptest.NewServer(NewRouter(svc, cfg, limiters))
	t.Cleanup(func() {
		srv.Close()
		limiters.Close()
	})
	return &testServer{t: t, srv: srv}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
// It returns the status code.
func (ts *testServer) do(method, path, token string, in, out any) int {
	ts.t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			ts.t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ts.t.Context(), method, ts.srv.URL+path, body)
	if err != nil {
		ts.t.Fatal(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			ts.t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (ts *testServer) register(email, name string) *dto.AuthResponse {
	ts.t.Helper()
	var resp dto.AuthResponse
	req := dto.RegisterRequest{Email: email, Password: "password123", Name: name}
	if code := ts.do("POST", "/api/auth/register", "", req, &resp); code != http.StatusOK {
		ts.t.Fatalf("register %s: status %d", email, code)
	}
	return &resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{})
	var resp dto.HealthResponse
	if code := ts.do("GET", "/api/health", "", nil, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
}

func TestAuthErrors(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{})
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   dto.ErrorCode
	}{
		{"no token", "GET", "/api/auth/me", "", nil, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"bad token", "GET", "/api/products", "garbage", nil, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"unknown endpoint", "GET", "/api/nope", "", nil, http.StatusNotFound, dto.ErrorCodeNotFound},
		{"missing field", "POST", "/api/auth/register", "", map[string]string{"password": "password123"}, http.StatusBadRequest, dto.ErrorCodeMissingField},
		{"unknown field", "POST", "/api/auth/login", "", map[string]string{"email": "a@b.c", "password": "x", "extra": "1"}, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"bad credentials", "POST", "/api/auth/login", "", map[string]string{"email": "a@b.c", "password": "nope"}, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp dto.ErrorResponse
			if code := ts.do(tt.method, tt.path, tt.token, tt.body, &resp); code != tt.status {
				t.Fatalf("status = %d, want %d", code, tt.status)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestInventoryFlow(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{})
	admin := ts.register("asha@example.com", "Asha")
	if admin.User.Role != dto.UserRoleAdmin {
		t.Fatalf("first user role = %q", admin.User.Role)
	}
	staff := ts.register("ravi@example.com", "Ravi")
	if staff.User.Role != dto.UserRoleStaff {
		t.Fatalf("second user role = %q", staff.User.Role)
	}

	var vendor dto.VendorResponse
	if code := ts.do("POST", "/api/vendors", admin.Token, dto.VendorRequest{Name: "Sharma Traders", GSTIN: "27aapfu0939f1zv"}, &vendor); code != http.StatusOK {
		t.Fatalf("create vendor: %d", code)
	}
	if vendor.GSTIN != "27AAPFU0939F1ZV" {
		t.Errorf("GSTIN = %q", vendor.GSTIN)
	}
	var other dto.VendorResponse
	if code := ts.do("POST", "/api/vendors", admin.Token, dto.VendorRequest{Name: "Other"}, &other); code != http.StatusOK {
		t.Fatalf("create vendor: %d", code)
	}

	// Staff cannot create vendors and is not bound yet.
	if code := ts.do("POST", "/api/vendors", staff.Token, dto.VendorRequest{Name: "X"}, nil); code != http.StatusForbidden {
		t.Errorf("staff create vendor = %d", code)
	}
	if code := ts.do("GET", "/api/products", staff.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("unbound staff list products = %d", code)
	}

	// An admin must name the vendor on creates.
	if code := ts.do("POST", "/api/products", admin.Token, dto.ProductRequest{Name: "Rice"}, nil); code != http.StatusBadRequest {
		t.Errorf("create product without vendor = %d", code)
	}
	q := "?vendor_id=" + vendor.ID.String()
	var rice, dal dto.ProductResponse
	if code := ts.do("POST", "/api/products"+q, admin.Token, dto.ProductRequest{Name: "Rice", SKU: "rice-5kg", Unit: "bag", Price: 450, Stock: 10, ReorderLevel: 4}, &rice); code != http.StatusOK {
		t.Fatalf("create rice: %d", code)
	}
	if code := ts.do("POST", "/api/products"+q, admin.Token, dto.ProductRequest{Name: "Dal", SKU: "dal-1kg", Unit: "pack", Price: 120, Stock: 50}, &dal); code != http.StatusOK {
		t.Fatalf("create dal: %d", code)
	}
	if code := ts.do("POST", "/api/products"+q, admin.Token, dto.ProductRequest{Name: "Rice again", SKU: "RICE-5KG"}, nil); code != http.StatusConflict {
		t.Errorf("duplicate SKU = %d", code)
	}

	// Bind the staff user to the vendor.
	var bound dto.UserResponse
	upd := dto.UpdateUserRequest{Role: dto.UserRoleStaff, VendorID: vendor.ID}
	if code := ts.do("PUT", "/api/users/"+staff.User.ID.String(), admin.Token, upd, &bound); code != http.StatusOK {
		t.Fatalf("bind staff: %d", code)
	}
	if bound.VendorID != vendor.ID {
		t.Fatalf("vendor = %v", bound.VendorID)
	}

	var products dto.ListResponse[dto.ProductResponse]
	if code := ts.do("GET", "/api/products", staff.Token, nil, &products); code != http.StatusOK {
		t.Fatalf("list products: %d", code)
	}
	if len(products.Items) != 2 {
		t.Fatalf("products = %d", len(products.Items))
	}
	if code := ts.do("GET", "/api/products?vendor_id="+other.ID.String(), staff.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("other vendor scope = %d", code)
	}
	if code := ts.do("POST", "/api/products", staff.Token, dto.ProductRequest{Name: "Salt"}, nil); code != http.StatusForbidden {
		t.Errorf("staff create product = %d", code)
	}

	// Selling 7 bags of rice drops it to 3, under its reorder level.
	order := dto.SalesOrderRequest{Customer: "Mehta Stores", Items: []dto.OrderItem{{ProductID: rice.ID, Quantity: 7, UnitPrice: 450}}}
	var so dto.SalesOrderResponse
	if code := ts.do("POST", "/api/sales-orders", staff.Token, order, &so); code != http.StatusOK {
		t.Fatalf("create sales order: %d", code)
	}
	if so.Total != 3150 || so.Status != dto.OrderStatus("pending") {
		t.Errorf("sales order = %+v", so)
	}
	var fulfilled dto.FulfilSalesOrderResponse
	if code := ts.do("POST", "/api/sales-orders/"+so.ID.String()+"/fulfil", staff.Token, nil, &fulfilled); code != http.StatusOK {
		t.Fatalf("fulfil: %d", code)
	}
	if len(fulfilled.LowStock) != 1 || fulfilled.LowStock[0].Stock != 3 {
		t.Errorf("low stock = %+v", fulfilled.LowStock)
	}
	var errResp dto.ErrorResponse
	if code := ts.do("POST", "/api/sales-orders/"+so.ID.String()+"/fulfil", staff.Token, nil, &errResp); code != http.StatusConflict {
		t.Errorf("fulfil twice = %d", code)
	}

	// Selling more than is left fails and leaves stock alone.
	big := dto.SalesOrderRequest{Customer: "Big", Items: []dto.OrderItem{{ProductID: rice.ID, Quantity: 100, UnitPrice: 450}}}
	var so2 dto.SalesOrderResponse
	if code := ts.do("POST", "/api/sales-orders", staff.Token, big, &so2); code != http.StatusOK {
		t.Fatalf("create big order: %d", code)
	}
	if code := ts.do("POST", "/api/sales-orders/"+so2.ID.String()+"/fulfil", staff.Token, nil, &errResp); code != http.StatusConflict {
		t.Errorf("oversell = %d", code)
	}
	if errResp.Error.Code != dto.ErrorCodeInsufficientStock {
		t.Errorf("oversell code = %q", errResp.Error.Code)
	}

	var low dto.ListResponse[dto.ProductResponse]
	if code := ts.do("GET", "/api/products/low-stock", staff.Token, nil, &low); code != http.StatusOK {
		t.Fatalf("low stock: %d", code)
	}
	if len(low.Items) != 1 || low.Items[0].ID != rice.ID {
		t.Errorf("low stock = %+v", low.Items)
	}

	var summary dto.SummaryResponse
	if code := ts.do("GET", "/api/analytics/summary", staff.Token, nil, &summary); code != http.StatusOK {
		t.Fatalf("summary: %d", code)
	}
	if summary.Products != 2 || summary.SalesCount != 1 || summary.SalesTotal != 3150 || summary.PendingSales != 1 {
		t.Errorf("summary = %+v", summary)
	}

	var history dto.AuditResponse
	if code := ts.do("GET", "/api/audit", admin.Token, nil, &history); code != http.StatusOK {
		t.Fatalf("audit: %d", code)
	}
	if len(history.Commits) == 0 || !strings.HasPrefix(history.Commits[0].Message, "POST /api/sales-orders") {
		t.Errorf("audit = %+v", history.Commits)
	}
	if code := ts.do("GET", "/api/audit", staff.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("staff audit = %d", code)
	}
}

func TestTableEndpoint(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{})
	admin := ts.register("asha@example.com", "Asha")
	var vendor dto.VendorResponse
	if code := ts.do("POST", "/api/vendors", admin.Token, dto.VendorRequest{Name: "Sharma Traders"}, &vendor); code != http.StatusOK {
		t.Fatalf("create vendor: %d", code)
	}
	q := "?vendor_id=" + vendor.ID.String()
	for _, p := range []dto.ProductRequest{
		{Name: "Rice", SKU: "r1", Unit: "bag", Price: 450, Stock: 3, ReorderLevel: 5},
		{Name: "Dal", SKU: "d1", Unit: "pack", Price: 120, Stock: 40},
		{Name: "Sugar", SKU: "s1", Unit: "bag", Price: 55.5, Stock: 12},
	} {
		if code := ts.do("POST", "/api/products"+q, admin.Token, p, nil); code != http.StatusOK {
			t.Fatalf("create %s: %d", p.Name, code)
		}
	}

	var page dto.TableResponse
	if code := ts.do("GET", "/api/products/table"+q, admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("table: %d", code)
	}
	if page.Title != "Products" || page.Pagination.TotalItems != 3 || page.Pagination.TotalPages != 1 {
		t.Fatalf("page = %+v", page.Pagination)
	}
	// The preset sorts by name ascending.
	var names []string
	for _, r := range page.Rows {
		names = append(names, r.Values["name"].(string))
	}
	if strings.Join(names, ",") != "Dal,Rice,Sugar" {
		t.Errorf("names = %v", names)
	}
	if _, ok := page.Rows[0].Values["cost_price"]; ok {
		t.Error("hidden column leaked into values")
	}

	if code := ts.do("GET", "/api/products/table"+q+"&f.unit=bag&sort=stock&dir=desc", admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("filtered table: %d", code)
	}
	if page.ActiveFilters != 1 || len(page.Rows) != 2 || page.Rows[0].Values["name"] != "Sugar" {
		t.Errorf("filtered = %+v", page.Rows)
	}
	if page.Sort.Key != "stock" || page.Sort.Dir != "desc" {
		t.Errorf("sort = %+v", page.Sort)
	}

	// Unknown and non-filterable keys leave the table unfiltered.
	if code := ts.do("GET", "/api/products/table"+q+"&f.bogus=x&f.price=1", admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("ignored filters: %d", code)
	}
	if page.ActiveFilters != 0 || len(page.Rows) != 3 || page.Empty != "" {
		t.Errorf("ignored filters = %d rows, %d active, %q", len(page.Rows), page.ActiveFilters, page.Empty)
	}

	if code := ts.do("GET", "/api/products/table"+q+"&q=zzz", admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("search: %d", code)
	}
	if len(page.Rows) != 0 || page.Pagination.TotalPages != 0 || page.Empty == "" {
		t.Errorf("no match = %+v %q", page.Pagination, page.Empty)
	}

	if code := ts.do("GET", "/api/products/table"+q+"&hide=sku&page_size=1&page=2", admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("paged: %d", code)
	}
	if page.Pagination.Page != 2 || page.Pagination.TotalPages != 3 || len(page.Rows) != 1 {
		t.Errorf("paged = %+v", page.Pagination)
	}
	for _, c := range page.Columns {
		if c.Key == "sku" && c.Visible {
			t.Error("sku still visible")
		}
	}

	var views dto.ListViewsResponse
	if code := ts.do("GET", "/api/views", admin.Token, nil, &views); code != http.StatusOK {
		t.Fatalf("views: %d", code)
	}
	if len(views.Views) != len(handlers.TableResources) {
		t.Errorf("views = %d", len(views.Views))
	}
}

func TestTableDerivedView(t *testing.T) {
	views, err := viewcfg.Parse([]byte(`
views:
  vendors:
    columns:
      - {key: name, sortable: true}
`))
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServerWithViews(t, storage.RateLimits{}, views)
	admin := ts.register("asha@example.com", "Asha")
	var vendor dto.VendorResponse
	if code := ts.do("POST", "/api/vendors", admin.Token, dto.VendorRequest{Name: "Sharma Traders"}, &vendor); code != http.StatusOK {
		t.Fatalf("create vendor: %d", code)
	}
	q := "?vendor_id=" + vendor.ID.String()
	for _, p := range []dto.ProductRequest{
		{Name: "Rice", SKU: "r1", Unit: "bag", Price: 450, Stock: 3},
		{Name: "Dal", SKU: "d1", Unit: "pack", Price: 120, Stock: 40},
	} {
		if code := ts.do("POST", "/api/products"+q, admin.Token, p, nil); code != http.StatusOK {
			t.Fatalf("create %s: %d", p.Name, code)
		}
	}

	var page dto.TableResponse
	if code := ts.do("GET", "/api/products/table"+q+"&f.sku=r", admin.Token, nil, &page); code != http.StatusOK {
		t.Fatalf("table: %d", code)
	}
	if page.Title != "Products" || page.ActiveFilters != 1 || len(page.Rows) != 1 || page.Rows[0].Values["name"] != "Rice" {
		t.Errorf("page = %q %d %+v", page.Title, page.ActiveFilters, page.Rows)
	}
	cols := map[string]dto.ViewColumn{}
	for _, c := range page.Columns {
		cols[c.Key] = c
	}
	for _, key := range []string{"name", "sku", "price", "stock", "low_stock"} {
		if !cols[key].Visible || !cols[key].Sortable {
			t.Errorf("column %q = %+v", key, cols[key])
		}
	}
	if !cols["sku"].Filterable || cols["price"].Filterable {
		t.Errorf("filterable: sku %v, price %v", cols["sku"].Filterable, cols["price"].Filterable)
	}

	var view dto.ViewResponse
	if code := ts.do("GET", "/api/views/purchase-orders", admin.Token, nil, &view); code != http.StatusOK {
		t.Fatalf("view: %d", code)
	}
	if view.Title != "Purchase orders" || len(view.Columns) == 0 {
		t.Errorf("view = %+v", view)
	}
	if code := ts.do("GET", "/api/views/widgets", admin.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown view = %d", code)
	}

	var list dto.ListViewsResponse
	if code := ts.do("GET", "/api/views", admin.Token, nil, &list); code != http.StatusOK {
		t.Fatalf("views: %d", code)
	}
	if len(list.Views) != len(handlers.TableResources) {
		t.Errorf("views = %+v", list.Views)
	}
}

func TestCheckViews(t *testing.T) {
	if err := handlers.CheckViews(viewcfg.Default()); err != nil {
		t.Fatalf("default views: %v", err)
	}
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "views:\n  products:\n    columns:\n      - {key: name}\n      - {key: prise}\n",
			want: `view "products": column "prise"`,
		},
		{
			name: "unknown resource",
			yaml: "views:\n  widgets:\n    columns:\n      - {key: name}\n",
			want: `view "widgets": unknown resource`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := viewcfg.Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			err = handlers.CheckViews(views)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSessions(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{})
	first := ts.register("asha@example.com", "Asha")
	var second dto.AuthResponse
	login := dto.LoginRequest{Email: "ASHA@example.com", Password: "password123"}
	if code := ts.do("POST", "/api/auth/login", "", login, &second); code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}

	var sessions dto.ListResponse[dto.SessionResponse]
	if code := ts.do("GET", "/api/auth/sessions", second.Token, nil, &sessions); code != http.StatusOK {
		t.Fatalf("sessions: %d", code)
	}
	if len(sessions.Items) != 2 {
		t.Fatalf("sessions = %d", len(sessions.Items))
	}
	current := 0
	for _, s := range sessions.Items {
		if s.IsCurrent {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current sessions = %d", current)
	}

	var revoked dto.RevokeAllSessionsResponse
	if code := ts.do("POST", "/api/auth/sessions/revoke-all", second.Token, nil, &revoked); code != http.StatusOK {
		t.Fatalf("revoke all: %d", code)
	}
	if revoked.RevokedCount != 1 {
		t.Errorf("revoked = %d", revoked.RevokedCount)
	}
	if code := ts.do("GET", "/api/auth/me", first.Token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("revoked token = %d", code)
	}

	if code := ts.do("POST", "/api/auth/logout", second.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code := ts.do("GET", "/api/auth/me", second.Token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("logged out token = %d", code)
	}
	if code := ts.do("DELETE", "/api/auth/sessions/"+ksid.NewID().String(), first.Token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("revoke with dead token = %d", code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, storage.RateLimits{AuthRatePerMin: 2})
	login := dto.LoginRequest{Email: "a@example.com", Password: "password123"}
	for range 2 {
		if code := ts.do("POST", "/api/auth/login", "", login, nil); code != http.StatusUnauthorized {
			t.Fatalf("login = %d", code)
		}
	}
	var resp dto.ErrorResponse
	if code := ts.do("POST", "/api/auth/login", "", login, &resp); code != http.StatusTooManyRequests {
		t.Fatalf("third login = %d", code)
	}
	if resp.Error.Code != dto.ErrorCodeRateLimitExceeded {
		t.Errorf("code = %q", resp.Error.Code)
	}
	// Health is never limited.
	for range 5 {
		if code := ts.do("GET", "/api/health", "", nil, nil); code != http.StatusOK {
			t.Fatalf("health = %d", code)
		}
	}
}

func TestRequestMiddlewareRecovers(t *testing.T) {
	h := RequestMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/x", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
}
