package inventory

import (
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/jsonldb"
)

// vendorKey scopes a case-folded name to a vendor for uniqueness checks.
type vendorKey struct {
	VendorID ksid.ID
	Key      string
}

func foldKey(vendorID ksid.ID, s string) vendorKey {
	return vendorKey{VendorID: vendorID, Key: strings.ToLower(strings.TrimSpace(s))}
}

// Store owns the inventory tables.
//
// All writes take mu so that uniqueness checks and cross-table stock moves are
// atomic. Reads go straight to the tables.
type Store struct {
	mu sync.Mutex

	vendors    *jsonldb.Table[*Vendor]
	categories *jsonldb.Table[*Category]
	products   *jsonldb.Table[*Product]
	purchases  *jsonldb.Table[*PurchaseOrder]
	sales      *jsonldb.Table[*SalesOrder]

	categoriesByVendor *jsonldb.Index[ksid.ID, *Category]
	categoryByName     *jsonldb.UniqueIndex[vendorKey, *Category]
	productsByVendor   *jsonldb.Index[ksid.ID, *Product]
	productsByCategory *jsonldb.Index[ksid.ID, *Product]
	productBySKU       *jsonldb.UniqueIndex[vendorKey, *Product]
	purchasesByVendor  *jsonldb.Index[ksid.ID, *PurchaseOrder]
	salesByVendor      *jsonldb.Index[ksid.ID, *SalesOrder]

	Vendors    *VendorService
	Categories *CategoryService
	Products   *ProductService
	Purchases  *PurchaseService
	Sales      *SalesService
}

// Open loads the inventory tables from dbDir.
func Open(dbDir string) (*Store, error) {
	s := &Store{}
	var err error
	if s.vendors, err = jsonldb.NewTable[*Vendor](filepath.Join(dbDir, "vendors.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to open vendors: %w", err)
	}
	if s.categories, err = jsonldb.NewTable[*Category](filepath.Join(dbDir, "categories.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to open categories: %w", err)
	}
	if s.products, err = jsonldb.NewTable[*Product](filepath.Join(dbDir, "products.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to open products: %w", err)
	}
	if s.purchases, err = jsonldb.NewTable[*PurchaseOrder](filepath.Join(dbDir, "purchase_orders.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to open purchase orders: %w", err)
	}
	if s.sales, err = jsonldb.NewTable[*SalesOrder](filepath.Join(dbDir, "sales_orders.jsonl")); err != nil {
		return nil, fmt.Errorf("failed to open sales orders: %w", err)
	}

	s.categoriesByVendor = jsonldb.NewIndex(s.categories, func(c *Category) ksid.ID { return c.VendorID })
	s.categoryByName = jsonldb.NewUniqueIndex(s.categories, func(c *Category) vendorKey { return foldKey(c.VendorID, c.Name) })
	s.productsByVendor = jsonldb.NewIndex(s.products, func(p *Product) ksid.ID { return p.VendorID })
	s.productsByCategory = jsonldb.NewIndex(s.products, func(p *Product) ksid.ID { return p.CategoryID })
	s.productBySKU = jsonldb.NewUniqueIndex(s.products, func(p *Product) vendorKey { return foldKey(p.VendorID, p.SKU) })
	s.purchasesByVendor = jsonldb.NewIndex(s.purchases, func(o *PurchaseOrder) ksid.ID { return o.VendorID })
	s.salesByVendor = jsonldb.NewIndex(s.sales, func(o *SalesOrder) ksid.ID { return o.VendorID })

	s.Vendors = &VendorService{s: s}
	s.Categories = &CategoryService{s: s}
	s.Products = &ProductService{s: s}
	s.Purchases = &PurchaseService{s: s}
	s.Sales = &SalesService{s: s}
	return s, nil
}

// byVendor iterates over a whole table, or over an index bucket when
// vendorID is set.
func byVendor[T jsonldb.Row[T]](t *jsonldb.Table[T], idx *jsonldb.Index[ksid.ID, T], vendorID ksid.ID) iter.Seq[T] {
	if vendorID.IsZero() {
		return t.Iter(0)
	}
	return idx.Iter(vendorID)
}

// nextNumber returns prefix-NNNNN one past the highest number already used.
func nextNumber(prefix string, numbers iter.Seq[string]) string {
	highest := 0
	for n := range numbers {
		rest, ok := strings.CutPrefix(n, prefix+"-")
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(rest); err == nil && v > highest {
			highest = v
		}
	}
	return fmt.Sprintf("%s-%05d", prefix, highest+1)
}

// checkItems verifies every item references a product of vendorID.
func (s *Store) checkItems(vendorID ksid.ID, items []OrderItem) error {
	for i, it := range items {
		p := s.products.Get(it.ProductID)
		if p == nil {
			return fmt.Errorf("item %d: product %s: %w", i, it.ProductID, ErrNotFound)
		}
		if p.VendorID != vendorID {
			return invalid("item %d: product %s belongs to another vendor", i, it.ProductID)
		}
	}
	return nil
}

// applyStock adds delta[productID] to every product, or nothing if any
// product would go negative. It returns the products after the change.
// Caller must hold s.mu.
func (s *Store) applyStock(delta map[ksid.ID]int) ([]*Product, error) {
	ids := make([]ksid.ID, 0, len(delta))
	for id := range delta {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := s.products.Get(id)
		if p == nil {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		if p.Stock+delta[id] < 0 {
			return nil, fmt.Errorf("product %s (%s) has %d, needs %d: %w", p.SKU, id, p.Stock, -delta[id], ErrInsufficientStock)
		}
	}
	out := make([]*Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.products.Modify(id, func(p *Product) error {
			p.Stock += delta[id]
			p.Modified = now()
			return nil
		})
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}
