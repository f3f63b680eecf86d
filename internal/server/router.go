// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/handlers"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ratelimit"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/* and Prometheus metrics at /metrics.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Limiters) http.Handler {
	e := &env{svc: svc, limiters: limiters, maxBody: cfg.Quotas.MaxRequestBodyBytes}
	authh := handlers.NewAuthHandler(svc, cfg)
	e.auth = authh

	var notifier *handlers.Notifier
	if cfg.LowStockAlerts && cfg.VAPID.PublicKey != "" {
		notifier = handlers.NewNotifier(svc.User, svc.PushSubscription, cfg.VAPID)
	}
	vh := handlers.NewVendorHandler(svc)
	ch := handlers.NewCategoryHandler(svc)
	ph := handlers.NewProductHandler(svc)
	oh := handlers.NewOrderHandler(svc, notifier)
	uh := handlers.NewUserHandler(svc)
	th := handlers.NewTableHandler(svc, vh, ch, ph, oh, uh)
	viewh := handlers.NewViewHandler(svc)
	ah := handlers.NewAnalyticsHandler(svc)
	audith := handlers.NewAuditHandler(svc)
	pushh := handlers.NewPushHandler(svc, cfg)
	hh := handlers.NewHealthHandler(cfg.Version)

	const (
		staff   = identity.RoleStaff
		manager = identity.RoleManager
		admin   = identity.RoleAdmin
	)
	mux := &http.ServeMux{}

	// Health check
	mux.Handle("GET /api/health", Wrap(e, hh.Health))

	// Auth endpoints
	mux.Handle("POST /api/auth/login", Wrap(e, authh.Login))
	mux.Handle("POST /api/auth/register", Wrap(e, authh.Register))
	mux.Handle("POST /api/auth/logout", WrapAuth(e, staff, authh.Logout))
	mux.Handle("GET /api/auth/me", WrapAuth(e, staff, authh.Me))
	mux.Handle("GET /api/auth/sessions", WrapAuth(e, staff, authh.ListSessions))
	mux.Handle("DELETE /api/auth/sessions/{id}", WrapAuth(e, staff, authh.RevokeSession))
	mux.Handle("POST /api/auth/sessions/revoke-all", WrapAuth(e, staff, authh.RevokeAllSessions))

	// OAuth endpoints
	if len(cfg.OAuth) != 0 {
		oauthh := handlers.NewOAuthHandler(svc, authh)
		for _, p := range cfg.OAuth {
			if p.ClientID != "" && p.ClientSecret != "" {
				oauthh.AddProvider(p.Name, p.ClientID, p.ClientSecret, cfg.BaseURL+"/api/auth/oauth/"+p.Name+"/callback")
			}
		}
		mux.Handle("GET /api/auth/oauth/{provider}", e.limitUnauth(oauthh.LoginRedirect))
		mux.Handle("GET /api/auth/oauth/{provider}/callback", e.limitUnauth(oauthh.Callback))
	}

	// User management endpoints
	mux.Handle("GET /api/users", WrapAuth(e, admin, uh.ListUsers))
	mux.Handle("PUT /api/users/{id}", WrapAuth(e, admin, uh.UpdateUser))

	// Vendor endpoints
	mux.Handle("GET /api/vendors", WrapVendor(e, staff, vh.ListVendors))
	mux.Handle("GET /api/vendors/{id}", WrapVendor(e, staff, vh.GetVendor))
	mux.Handle("POST /api/vendors", WrapAuth(e, admin, vh.CreateVendor))
	mux.Handle("PUT /api/vendors/{id}", WrapVendor(e, admin, vh.UpdateVendor))
	mux.Handle("DELETE /api/vendors/{id}", WrapVendor(e, admin, vh.DeleteVendor))

	// Category endpoints
	mux.Handle("GET /api/categories", WrapVendor(e, staff, ch.ListCategories))
	mux.Handle("GET /api/categories/{id}", WrapVendor(e, staff, ch.GetCategory))
	mux.Handle("POST /api/categories", WrapVendor(e, manager, ch.CreateCategory))
	mux.Handle("PUT /api/categories/{id}", WrapVendor(e, manager, ch.UpdateCategory))
	mux.Handle("DELETE /api/categories/{id}", WrapVendor(e, manager, ch.DeleteCategory))

	// Product endpoints
	mux.Handle("GET /api/products", WrapVendor(e, staff, ph.ListProducts))
	mux.Handle("GET /api/products/low-stock", WrapVendor(e, staff, ph.LowStock))
	mux.Handle("GET /api/products/{id}", WrapVendor(e, staff, ph.GetProduct))
	mux.Handle("POST /api/products", WrapVendor(e, manager, ph.CreateProduct))
	mux.Handle("PUT /api/products/{id}", WrapVendor(e, manager, ph.UpdateProduct))
	mux.Handle("DELETE /api/products/{id}", WrapVendor(e, manager, ph.DeleteProduct))
	mux.Handle("POST /api/products/{id}/stock", WrapVendor(e, manager, ph.AdjustStock))

	// Purchase order endpoints
	mux.Handle("GET /api/purchase-orders", WrapVendor(e, staff, oh.ListPurchaseOrders))
	mux.Handle("GET /api/purchase-orders/{id}", WrapVendor(e, staff, oh.GetPurchaseOrder))
	mux.Handle("POST /api/purchase-orders", WrapVendor(e, staff, oh.CreatePurchaseOrder))
	mux.Handle("PUT /api/purchase-orders/{id}", WrapVendor(e, staff, oh.UpdatePurchaseOrder))
	mux.Handle("DELETE /api/purchase-orders/{id}", WrapVendor(e, staff, oh.DeletePurchaseOrder))
	mux.Handle("POST /api/purchase-orders/{id}/receive", WrapVendor(e, staff, oh.ReceivePurchaseOrder))
	mux.Handle("POST /api/purchase-orders/{id}/cancel", WrapVendor(e, staff, oh.CancelPurchaseOrder))

	// Sales order endpoints
	mux.Handle("GET /api/sales-orders", WrapVendor(e, staff, oh.ListSalesOrders))
	mux.Handle("GET /api/sales-orders/{id}", WrapVendor(e, staff, oh.GetSalesOrder))
	mux.Handle("POST /api/sales-orders", WrapVendor(e, staff, oh.CreateSalesOrder))
	mux.Handle("PUT /api/sales-orders/{id}", WrapVendor(e, staff, oh.UpdateSalesOrder))
	mux.Handle("DELETE /api/sales-orders/{id}", WrapVendor(e, staff, oh.DeleteSalesOrder))
	mux.Handle("POST /api/sales-orders/{id}/fulfil", WrapVendor(e, staff, oh.FulfilSalesOrder))
	mux.Handle("POST /api/sales-orders/{id}/cancel", WrapVendor(e, staff, oh.CancelSalesOrder))

	// Table views, one explicit route per resource so they win over {id}.
	for _, resource := range handlers.TableResources {
		mux.Handle("GET /api/"+resource+"/table", WrapVendor(e, staff, th.Table(resource)))
	}
	mux.Handle("GET /api/views", WrapAuth(e, staff, viewh.ListViews))
	mux.Handle("GET /api/views/{resource}", WrapAuth(e, staff, viewh.GetView))

	// Analytics endpoints
	mux.Handle("GET /api/analytics/summary", WrapVendor(e, staff, ah.Summary))
	mux.Handle("GET /api/analytics/sales", WrapVendor(e, staff, ah.SalesByMonth))
	mux.Handle("GET /api/analytics/top-products", WrapVendor(e, staff, ah.TopProducts))

	// Audit history
	mux.Handle("GET /api/audit", WrapAuth(e, admin, audith.History))

	// Web push endpoints
	mux.Handle("GET /api/push/vapid-key", WrapAuth(e, staff, pushh.VAPIDKey))
	mux.Handle("POST /api/push/subscriptions", WrapAuth(e, staff, pushh.Subscribe))
	mux.Handle("DELETE /api/push/subscriptions", WrapAuth(e, staff, pushh.Unsubscribe))

	mux.Handle("GET /metrics", promhttp.Handler())

	// Unknown API paths get a JSON error rather than the mux's text 404.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(r.Context(), w, dto.NotFound("endpoint"))
	})

	return RequestMiddleware(mux)
}
