package handlers

import (
	"context"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/metrics"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// OrderHandler handles purchase and sales orders.
type OrderHandler struct {
	svc      *Services
	notifier *Notifier // nil disables low stock alerts
}

// NewOrderHandler creates a new order handler. notifier may be nil.
func NewOrderHandler(svc *Services, notifier *Notifier) *OrderHandler {
	return &OrderHandler{svc: svc, notifier: notifier}
}

func purchaseVendor(o *inventory.PurchaseOrder) ksid.ID { return o.VendorID }

func salesVendor(o *inventory.SalesOrder) ksid.ID { return o.VendorID }

// --- Purchase orders ---

// ListPurchaseOrders lists the purchase orders in scope.
func (h *OrderHandler) ListPurchaseOrders(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.PurchaseOrderResponse], error) {
	orders := h.svc.Store.Purchases.ListByVendor(scope)
	out := &dto.ListResponse[dto.PurchaseOrderResponse]{Items: make([]dto.PurchaseOrderResponse, 0, len(orders))}
	for _, o := range orders {
		out.Items = append(out.Items, *purchaseOrderToResponse(o))
	}
	return out, nil
}

// GetPurchaseOrder returns one purchase order.
func (h *OrderHandler) GetPurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.PurchaseOrderResponse, error) {
	o, err := lookup(h.svc.Store.Purchases.Get, purchaseVendor, scope, req.ID, "purchase order")
	if err != nil {
		return nil, err
	}
	return purchaseOrderToResponse(o), nil
}

// CreatePurchaseOrder creates a pending purchase order.
func (h *OrderHandler) CreatePurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.PurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	vendorID, err := requireVendor(scope)
	if err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Purchases.Create(&inventory.PurchaseOrder{
		VendorID:     vendorID,
		Supplier:     strings.TrimSpace(req.Supplier),
		Items:        itemsFromDTO(req.Items),
		ExpectedDate: storage.Time(req.ExpectedDate),
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, storeError(err, "purchase order")
	}
	return purchaseOrderToResponse(o), nil
}

// UpdatePurchaseOrder replaces the lines of a pending purchase order.
func (h *OrderHandler) UpdatePurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.PurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Purchases.Get, purchaseVendor, scope, req.ID, "purchase order"); err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Purchases.Update(req.ID, func(o *inventory.PurchaseOrder) error {
		o.Supplier = strings.TrimSpace(req.Supplier)
		o.Items = itemsFromDTO(req.Items)
		o.ExpectedDate = storage.Time(req.ExpectedDate)
		o.Notes = req.Notes
		return nil
	})
	if err != nil {
		return nil, storeError(err, "purchase order")
	}
	return purchaseOrderToResponse(o), nil
}

// ReceivePurchaseOrder receives a pending purchase order into stock.
func (h *OrderHandler) ReceivePurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.PurchaseOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Purchases.Get, purchaseVendor, scope, req.ID, "purchase order"); err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Purchases.Receive(req.ID)
	if err != nil {
		return nil, storeError(err, "purchase order")
	}
	return purchaseOrderToResponse(o), nil
}

// CancelPurchaseOrder cancels a pending purchase order.
func (h *OrderHandler) CancelPurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.PurchaseOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Purchases.Get, purchaseVendor, scope, req.ID, "purchase order"); err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Purchases.Cancel(req.ID)
	if err != nil {
		return nil, storeError(err, "purchase order")
	}
	return purchaseOrderToResponse(o), nil
}

// DeletePurchaseOrder deletes a purchase order that was not received.
func (h *OrderHandler) DeletePurchaseOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if _, err := lookup(h.svc.Store.Purchases.Get, purchaseVendor, scope, req.ID, "purchase order"); err != nil {
		return nil, err
	}
	if err := h.svc.Store.Purchases.Delete(req.ID); err != nil {
		return nil, storeError(err, "purchase order")
	}
	return &dto.OkResponse{Ok: true}, nil
}

// --- Sales orders ---

// ListSalesOrders lists the sales orders in scope.
func (h *OrderHandler) ListSalesOrders(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.SalesOrderResponse], error) {
	orders := h.svc.Store.Sales.ListByVendor(scope)
	out := &dto.ListResponse[dto.SalesOrderResponse]{Items: make([]dto.SalesOrderResponse, 0, len(orders))}
	for _, o := range orders {
		out.Items = append(out.Items, *salesOrderToResponse(o))
	}
	return out, nil
}

// GetSalesOrder returns one sales order.
func (h *OrderHandler) GetSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.SalesOrderResponse, error) {
	o, err := lookup(h.svc.Store.Sales.Get, salesVendor, scope, req.ID, "sales order")
	if err != nil {
		return nil, err
	}
	return salesOrderToResponse(o), nil
}

// CreateSalesOrder creates a pending sales order.
func (h *OrderHandler) CreateSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.SalesOrderRequest) (*dto.SalesOrderResponse, error) {
	vendorID, err := requireVendor(scope)
	if err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Sales.Create(&inventory.SalesOrder{
		VendorID: vendorID,
		Customer: strings.TrimSpace(req.Customer),
		Items:    itemsFromDTO(req.Items),
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, storeError(err, "sales order")
	}
	return salesOrderToResponse(o), nil
}

// UpdateSalesOrder replaces the lines of a pending sales order.
func (h *OrderHandler) UpdateSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.SalesOrderRequest) (*dto.SalesOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Sales.Get, salesVendor, scope, req.ID, "sales order"); err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Sales.Update(req.ID, func(o *inventory.SalesOrder) error {
		o.Customer = strings.TrimSpace(req.Customer)
		o.Items = itemsFromDTO(req.Items)
		o.Notes = req.Notes
		return nil
	})
	if err != nil {
		return nil, storeError(err, "sales order")
	}
	return salesOrderToResponse(o), nil
}

// FulfilSalesOrder ships a pending sales order out of stock. Products that
// reach their reorder level are returned and, when enabled, pushed to
// subscribers.
func (h *OrderHandler) FulfilSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.FulfilSalesOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Sales.Get, salesVendor, scope, req.ID, "sales order"); err != nil {
		return nil, err
	}
	o, low, err := h.svc.Store.Sales.Fulfil(req.ID)
	if err != nil {
		return nil, storeError(err, "sales order")
	}
	resp := &dto.FulfilSalesOrderResponse{Order: salesOrderToResponse(o), LowStock: []dto.ProductResponse{}}
	names := categoryNames(h.svc.Store, o.VendorID)
	for _, p := range low {
		resp.LowStock = append(resp.LowStock, *productToResponse(p, names[p.CategoryID]))
	}
	metrics.LowStockAlerts.Add(float64(len(low)))
	if len(low) > 0 && h.notifier != nil {
		go h.notifier.NotifyLowStock(context.WithoutCancel(ctx), o.VendorID, low)
	}
	return resp, nil
}

// CancelSalesOrder cancels a pending sales order.
func (h *OrderHandler) CancelSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.SalesOrderResponse, error) {
	if _, err := lookup(h.svc.Store.Sales.Get, salesVendor, scope, req.ID, "sales order"); err != nil {
		return nil, err
	}
	o, err := h.svc.Store.Sales.Cancel(req.ID)
	if err != nil {
		return nil, storeError(err, "sales order")
	}
	return salesOrderToResponse(o), nil
}

// DeleteSalesOrder deletes a sales order that was not fulfilled.
func (h *OrderHandler) DeleteSalesOrder(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if _, err := lookup(h.svc.Store.Sales.Get, salesVendor, scope, req.ID, "sales order"); err != nil {
		return nil, err
	}
	if err := h.svc.Store.Sales.Delete(req.ID); err != nil {
		return nil, storeError(err, "sales order")
	}
	return &dto.OkResponse{Ok: true}, nil
}
