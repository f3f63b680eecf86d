package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// ProductHandler handles product and stock requests.
type ProductHandler struct {
	svc *Services
}

// NewProductHandler creates a new product handler.
func NewProductHandler(svc *Services) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func productVendor(p *inventory.Product) ksid.ID { return p.VendorID }

// ListProducts lists the products in scope.
func (h *ProductHandler) ListProducts(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.ProductResponse], error) {
	return &dto.ListResponse[dto.ProductResponse]{Items: h.toResponses(scope, h.svc.Store.Products.ListByVendor(scope))}, nil
}

// LowStock lists the products in scope at or below their reorder level.
func (h *ProductHandler) LowStock(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.ProductResponse], error) {
	return &dto.ListResponse[dto.ProductResponse]{Items: h.toResponses(scope, h.svc.Store.Products.LowStock(scope))}, nil
}

func (h *ProductHandler) toResponses(scope ksid.ID, products []*inventory.Product) []dto.ProductResponse {
	names := categoryNames(h.svc.Store, scope)
	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, *productToResponse(p, names[p.CategoryID]))
	}
	return out
}

// GetProduct returns one product.
func (h *ProductHandler) GetProduct(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.ProductResponse, error) {
	p, err := lookup(h.svc.Store.Products.Get, productVendor, scope, req.ID, "product")
	if err != nil {
		return nil, err
	}
	return h.toResponse(p), nil
}

func (h *ProductHandler) toResponse(p *inventory.Product) *dto.ProductResponse {
	name := ""
	if !p.CategoryID.IsZero() {
		if c, err := h.svc.Store.Categories.Get(p.CategoryID); err == nil {
			name = c.Name
		}
	}
	return productToResponse(p, name)
}

// CreateProduct creates a product under the scope vendor.
func (h *ProductHandler) CreateProduct(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.ProductRequest) (*dto.ProductResponse, error) {
	vendorID, err := requireVendor(scope)
	if err != nil {
		return nil, err
	}
	p := &inventory.Product{VendorID: vendorID, Stock: req.Stock}
	applyProduct(p, req)
	created, err := h.svc.Store.Products.Create(p)
	if err != nil {
		return nil, storeError(err, "product")
	}
	return h.toResponse(created), nil
}

// UpdateProduct replaces the catalogue fields of a product. Stock is kept.
func (h *ProductHandler) UpdateProduct(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.ProductRequest) (*dto.ProductResponse, error) {
	if _, err := lookup(h.svc.Store.Products.Get, productVendor, scope, req.ID, "product"); err != nil {
		return nil, err
	}
	p, err := h.svc.Store.Products.Update(req.ID, func(p *inventory.Product) error {
		applyProduct(p, req)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "product")
	}
	return h.toResponse(p), nil
}

// AdjustStock adds a signed delta to a product's stock.
func (h *ProductHandler) AdjustStock(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.AdjustStockRequest) (*dto.ProductResponse, error) {
	if _, err := lookup(h.svc.Store.Products.Get, productVendor, scope, req.ID, "product"); err != nil {
		return nil, err
	}
	p, err := h.svc.Store.Products.AdjustStock(req.ID, req.Delta)
	if err != nil {
		return nil, storeError(err, "product")
	}
	slog.InfoContext(ctx, "Stock adjusted", "product", p.ID, "delta", req.Delta, "stock", p.Stock, "reason", req.Reason, "user", user.ID)
	return h.toResponse(p), nil
}

// DeleteProduct deletes a product no pending order references.
func (h *ProductHandler) DeleteProduct(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if _, err := lookup(h.svc.Store.Products.Get, productVendor, scope, req.ID, "product"); err != nil {
		return nil, err
	}
	if err := h.svc.Store.Products.Delete(req.ID); err != nil {
		return nil, storeError(err, "product")
	}
	return &dto.OkResponse{Ok: true}, nil
}

func applyProduct(p *inventory.Product, req *dto.ProductRequest) {
	p.CategoryID = req.CategoryID
	p.Name = strings.TrimSpace(req.Name)
	p.SKU = strings.TrimSpace(req.SKU)
	p.Unit = req.Unit
	p.Price = req.Price
	p.CostPrice = req.CostPrice
	p.ReorderLevel = req.ReorderLevel
}
