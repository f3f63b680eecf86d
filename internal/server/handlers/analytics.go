package handlers

import (
	"context"
	"time"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// AnalyticsHandler serves the dashboards.
type AnalyticsHandler struct {
	svc *Services
	now func() time.Time
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc *Services) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, now: time.Now}
}

// Summary returns the headline figures of the scope.
func (h *AnalyticsHandler) Summary(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.SummaryResponse, error) {
	s := h.svc.Analytics.Summary(scope)
	return &dto.SummaryResponse{
		Products:         s.Products,
		Vendors:          s.Vendors,
		LowStock:         s.LowStock,
		InventoryValue:   s.InventoryValue,
		SalesTotal:       s.SalesTotal,
		SalesCount:       s.SalesCount,
		PurchaseTotal:    s.PurchaseTotal,
		PurchaseCount:    s.PurchaseCount,
		PendingPurchases: s.PendingPurchases,
		PendingSales:     s.PendingSales,
	}, nil
}

// SalesByMonth returns fulfilled sales per calendar month, oldest first.
func (h *AnalyticsHandler) SalesByMonth(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.SalesByMonthRequest) (*dto.SalesByMonthResponse, error) {
	months := req.Months
	if months == 0 {
		months = 12
	}
	totals := h.svc.Analytics.SalesByMonth(scope, months, h.now())
	out := &dto.SalesByMonthResponse{Months: make([]dto.MonthTotal, len(totals))}
	for i, m := range totals {
		out.Months[i] = dto.MonthTotal{Month: m.Month, Total: m.Total, Orders: m.Orders}
	}
	return out, nil
}

// TopProducts returns the best sellers by revenue.
func (h *AnalyticsHandler) TopProducts(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.TopProductsRequest) (*dto.TopProductsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 10
	}
	top := h.svc.Analytics.TopProducts(scope, limit)
	out := &dto.TopProductsResponse{Products: make([]dto.ProductSales, len(top))}
	for i, p := range top {
		out.Products[i] = dto.ProductSales{ProductID: p.ProductID, Name: p.Name, Quantity: p.Quantity, Revenue: p.Revenue}
	}
	return out, nil
}
