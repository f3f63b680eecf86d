// Package inventory stores vendors, catalogue and orders in JSONL tables.
//
// Every entity belongs to a vendor through vendor_id. List operations take a
// zero vendor ID to mean all vendors. Stock moves only through order
// transitions and explicit adjustments, serialised by the [Store] mutex.
package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

// Sentinel errors. Callers match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInUse             = errors.New("still referenced")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrInvalid           = errors.New("invalid")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Vendor is a business whose inventory is tracked.
type Vendor struct {
	ID          ksid.ID      `json:"id" jsonschema:"description=Vendor identifier"`
	Name        string       `json:"name" jsonschema:"description=Business name"`
	ContactName string       `json:"contact_name" jsonschema:"description=Primary contact"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Address     string       `json:"address"`
	GSTIN       string       `json:"gstin" jsonschema:"description=GST identification number"`
	Created     storage.Time `json:"created"`
	Modified    storage.Time `json:"modified"`
}

// Clone returns a copy.
func (v *Vendor) Clone() *Vendor {
	c := *v
	return &c
}

// GetID returns the vendor ID.
func (v *Vendor) GetID() ksid.ID {
	return v.ID
}

// Validate checks required fields.
func (v *Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return invalid("vendor name is required")
	}
	if v.GSTIN != "" && len(v.GSTIN) != 15 {
		return invalid("gstin must be 15 characters")
	}
	return nil
}

// Category groups products of one vendor.
type Category struct {
	ID          ksid.ID      `json:"id"`
	VendorID    ksid.ID      `json:"vendor_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Created     storage.Time `json:"created"`
	Modified    storage.Time `json:"modified"`
}

// Clone returns a copy.
func (c *Category) Clone() *Category {
	n := *c
	return &n
}

// GetID returns the category ID.
func (c *Category) GetID() ksid.ID {
	return c.ID
}

// Validate checks required fields.
func (c *Category) Validate() error {
	if c.VendorID.IsZero() {
		return invalid("vendor_id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("category name is required")
	}
	return nil
}

// Product is a stock keeping unit of one vendor.
type Product struct {
	ID           ksid.ID      `json:"id"`
	VendorID     ksid.ID      `json:"vendor_id"`
	CategoryID   ksid.ID      `json:"category_id,omitzero"`
	Name         string       `json:"name"`
	SKU          string       `json:"sku" jsonschema:"description=Stock keeping unit, unique per vendor"`
	Unit         string       `json:"unit"`
	Price        float64      `json:"price" jsonschema:"description=Selling price per unit"`
	CostPrice    float64      `json:"cost_price" jsonschema:"description=Purchase price per unit"`
	Stock        int          `json:"stock"`
	ReorderLevel int          `json:"reorder_level"`
	Created      storage.Time `json:"created"`
	Modified     storage.Time `json:"modified"`
}

// Clone returns a copy.
func (p *Product) Clone() *Product {
	c := *p
	return &c
}

// GetID returns the product ID.
func (p *Product) GetID() ksid.ID {
	return p.ID
}

// Validate checks required fields and numeric ranges.
func (p *Product) Validate() error {
	switch {
	case p.VendorID.IsZero():
		return invalid("vendor_id is required")
	case strings.TrimSpace(p.Name) == "":
		return invalid("product name is required")
	case strings.TrimSpace(p.SKU) == "":
		return invalid("sku is required")
	case p.Price < 0 || p.CostPrice < 0:
		return invalid("prices must be non-negative")
	case p.Stock < 0:
		return invalid("stock must be non-negative")
	case p.ReorderLevel < 0:
		return invalid("reorder_level must be non-negative")
	}
	return nil
}

// IsLowStock reports whether stock is at or below the reorder level.
func (p *Product) IsLowStock() bool {
	return p.ReorderLevel > 0 && p.Stock <= p.ReorderLevel
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID ksid.ID `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return invalid("at least one item is required")
	}
	for i, it := range items {
		if it.ProductID.IsZero() {
			return invalid("item %d: product_id is required", i)
		}
		if it.Quantity <= 0 {
			return invalid("item %d: quantity must be positive", i)
		}
		if it.UnitPrice < 0 {
			return invalid("item %d: unit_price must be non-negative", i)
		}
	}
	return nil
}

func itemsTotal(items []OrderItem) float64 {
	var t float64
	for _, it := range items {
		t += float64(it.Quantity) * it.UnitPrice
	}
	return t
}

// Status is the lifecycle state of an order.
type Status string

// Order states. Received and Fulfilled apply to purchase and sales orders
// respectively; every state but Pending is terminal.
const (
	StatusPending   Status = "pending"
	StatusReceived  Status = "received"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// PurchaseOrder brings stock in from a supplier.
type PurchaseOrder struct {
	ID           ksid.ID      `json:"id"`
	VendorID     ksid.ID      `json:"vendor_id"`
	Number       string       `json:"number"`
	Supplier     string       `json:"supplier"`
	Items        []OrderItem  `json:"items"`
	Total        float64      `json:"total"`
	Status       Status       `json:"status"`
	OrderDate    storage.Time `json:"order_date"`
	ExpectedDate storage.Time `json:"expected_date,omitzero"`
	ReceivedAt   storage.Time `json:"received_at,omitzero"`
	Notes        string       `json:"notes,omitempty"`
	Created      storage.Time `json:"created"`
	Modified     storage.Time `json:"modified"`
}

// Clone returns a deep copy.
func (o *PurchaseOrder) Clone() *PurchaseOrder {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// GetID returns the order ID.
func (o *PurchaseOrder) GetID() ksid.ID {
	return o.ID
}

// Validate checks required fields.
func (o *PurchaseOrder) Validate() error {
	if o.VendorID.IsZero() {
		return invalid("vendor_id is required")
	}
	if strings.TrimSpace(o.Supplier) == "" {
		return invalid("supplier is required")
	}
	switch o.Status {
	case StatusPending, StatusReceived, StatusCancelled:
	default:
		return invalid("unknown purchase order status %q", o.Status)
	}
	return validateItems(o.Items)
}

// SalesOrder ships stock out to a customer.
type SalesOrder struct {
	ID          ksid.ID      `json:"id"`
	VendorID    ksid.ID      `json:"vendor_id"`
	Number      string       `json:"number"`
	Customer    string       `json:"customer"`
	Items       []OrderItem  `json:"items"`
	Total       float64      `json:"total"`
	Status      Status       `json:"status"`
	OrderDate   storage.Time `json:"order_date"`
	FulfilledAt storage.Time `json:"fulfilled_at,omitzero"`
	Notes       string       `json:"notes,omitempty"`
	Created     storage.Time `json:"created"`
	Modified    storage.Time `json:"modified"`
}

// Clone returns a deep copy.
func (o *SalesOrder) Clone() *SalesOrder {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}

// GetID returns the order ID.
func (o *SalesOrder) GetID() ksid.ID {
	return o.ID
}

// Validate checks required fields.
func (o *SalesOrder) Validate() error {
	if o.VendorID.IsZero() {
		return invalid("vendor_id is required")
	}
	if strings.TrimSpace(o.Customer) == "" {
		return invalid("customer is required")
	}
	switch o.Status {
	case StatusPending, StatusFulfilled, StatusCancelled:
	default:
		return invalid("unknown sales order status %q", o.Status)
	}
	return validateItems(o.Items)
}
