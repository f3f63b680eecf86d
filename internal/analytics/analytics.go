// Package analytics computes the dashboard figures from the inventory.
//
// Every function takes a vendor ID; the zero ID aggregates all vendors.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// Summary is the headline dashboard.
type Summary struct {
	Products         int     `json:"products"`
	Vendors          int     `json:"vendors"`
	LowStock         int     `json:"low_stock"`
	InventoryValue   float64 `json:"inventory_value" jsonschema:"description=Stock valued at cost price"`
	SalesTotal       float64 `json:"sales_total"`
	SalesCount       int     `json:"sales_count"`
	PurchaseTotal    float64 `json:"purchase_total"`
	PurchaseCount    int     `json:"purchase_count"`
	PendingPurchases int     `json:"pending_purchases"`
	PendingSales     int     `json:"pending_sales"`
}

// MonthTotal is the fulfilled sales of one calendar month.
type MonthTotal struct {
	Month  string  `json:"month"`
	Total  float64 `json:"total"`
	Orders int     `json:"orders"`
}

// ProductSales is the fulfilled volume of one product.
type ProductSales struct {
	ProductID ksid.ID `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// Service reads from an inventory store.
type Service struct {
	store *inventory.Store
}

// New returns a Service over store.
func New(store *inventory.Store) *Service {
	return &Service{store: store}
}

// Summary returns the headline figures. Only received purchases and
// fulfilled sales count towards the totals.
func (s *Service) Summary(vendorID ksid.ID) *Summary {
	out := &Summary{Vendors: 1}
	if vendorID.IsZero() {
		out.Vendors = s.store.Vendors.Len()
	}
	for _, p := range s.store.Products.ListByVendor(vendorID) {
		out.Products++
		out.InventoryValue += float64(p.Stock) * p.CostPrice
		if p.IsLowStock() {
			out.LowStock++
		}
	}
	for _, o := range s.store.Purchases.ListByVendor(vendorID) {
		switch o.Status {
		case inventory.StatusReceived:
			out.PurchaseCount++
			out.PurchaseTotal += o.Total
		case inventory.StatusPending:
			out.PendingPurchases++
		}
	}
	for _, o := range s.store.Sales.ListByVendor(vendorID) {
		switch o.Status {
		case inventory.StatusFulfilled:
			out.SalesCount++
			out.SalesTotal += o.Total
		case inventory.StatusPending:
			out.PendingSales++
		}
	}
	return out
}

// SalesByMonth returns fulfilled sales for the last months calendar months
// ending with the month of now, oldest first. Months without sales are
// included with zero totals.
func (s *Service) SalesByMonth(vendorID ksid.ID, months int, now time.Time) []MonthTotal {
	if months <= 0 {
		months = 12
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthTotal, months)
	index := make(map[string]int, months)
	for i := range out {
		key := first.AddDate(0, i, 0).Format("2006-01")
		out[i].Month = key
		index[key] = i
	}
	for _, o := range s.store.Sales.ListByVendor(vendorID) {
		if o.Status != inventory.StatusFulfilled {
			continue
		}
		when := o.FulfilledAt
		if when.IsZero() {
			when = o.OrderDate
		}
		if i, ok := index[when.AsTime().Format("2006-01")]; ok {
			out[i].Total += o.Total
			out[i].Orders++
		}
	}
	return out
}

// TopProducts returns up to limit products by fulfilled quantity, ties
// broken by name.
func (s *Service) TopProducts(vendorID ksid.ID, limit int) []ProductSales {
	if limit <= 0 {
		limit = 10
	}
	byID := map[ksid.ID]*ProductSales{}
	for _, o := range s.store.Sales.ListByVendor(vendorID) {
		if o.Status != inventory.StatusFulfilled {
			continue
		}
		for _, it := range o.Items {
			ps := byID[it.ProductID]
			if ps == nil {
				ps = &ProductSales{ProductID: it.ProductID}
				byID[it.ProductID] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue += float64(it.Quantity) * it.UnitPrice
		}
	}
	out := make([]ProductSales, 0, len(byID))
	for id, ps := range byID {
		if p, err := s.store.Products.Get(id); err == nil {
			ps.Name = p.Name
		}
		out = append(out, *ps)
	}
	slices.SortFunc(out, func(a, b ProductSales) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
