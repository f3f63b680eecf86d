// Vendor, category and product services.

package inventory

import (
	"fmt"
	"slices"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

var now = storage.Now

// VendorService manages vendors.
type VendorService struct {
	s *Store
}

// Create stores a new vendor. ID and timestamps are assigned.
func (vs *VendorService) Create(v *Vendor) (*Vendor, error) {
	v = v.Clone()
	v.ID = ksid.NewID()
	v.Created = now()
	v.Modified = v.Created
	if err := vs.s.vendors.Append(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns the vendor with the given ID.
func (vs *VendorService) Get(id ksid.ID) (*Vendor, error) {
	if v := vs.s.vendors.Get(id); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("vendor %s: %w", id, ErrNotFound)
}

// List returns every vendor in creation order.
func (vs *VendorService) List() []*Vendor {
	return slices.Collect(vs.s.vendors.Iter(0))
}

// Len returns the number of vendors.
func (vs *VendorService) Len() int {
	return vs.s.vendors.Len()
}

// Update applies fn to the vendor and persists it.
func (vs *VendorService) Update(id ksid.ID, fn func(v *Vendor) error) (*Vendor, error) {
	if vs.s.vendors.Get(id) == nil {
		return nil, fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	return vs.s.vendors.Modify(id, func(v *Vendor) error {
		if err := fn(v); err != nil {
			return err
		}
		v.Modified = now()
		return nil
	})
}

// Delete removes a vendor that no longer owns any record.
func (vs *VendorService) Delete(id ksid.ID) error {
	s := vs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vendors.Get(id) == nil {
		return fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	if n := s.productsByVendor.Count(id) + s.categoriesByVendor.Count(id) +
		s.purchasesByVendor.Count(id) + s.salesByVendor.Count(id); n > 0 {
		return fmt.Errorf("vendor %s has %d records: %w", id, n, ErrInUse)
	}
	_, err := s.vendors.Delete(id)
	return err
}

// CategoryService manages product categories.
type CategoryService struct {
	s *Store
}

func (cs *CategoryService) checkUnique(c *Category) error {
	if id, ok := cs.s.categoryByName.Lookup(foldKey(c.VendorID, c.Name)); ok && id != c.ID {
		return fmt.Errorf("category %q already exists: %w", c.Name, ErrConflict)
	}
	return nil
}

// Create stores a new category for an existing vendor.
func (cs *CategoryService) Create(c *Category) (*Category, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c = c.Clone()
	c.ID = ksid.NewID()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if s.vendors.Get(c.VendorID) == nil {
		return nil, fmt.Errorf("vendor %s: %w", c.VendorID, ErrNotFound)
	}
	if err := cs.checkUnique(c); err != nil {
		return nil, err
	}
	c.Created = now()
	c.Modified = c.Created
	if err := s.categories.Append(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the category with the given ID.
func (cs *CategoryService) Get(id ksid.ID) (*Category, error) {
	if c := cs.s.categories.Get(id); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
}

// ListByVendor returns the categories of a vendor, or all when vendorID is zero.
func (cs *CategoryService) ListByVendor(vendorID ksid.ID) []*Category {
	return slices.Collect(byVendor(cs.s.categories, cs.s.categoriesByVendor, vendorID))
}

// ProductCount returns the number of products in a category.
func (cs *CategoryService) ProductCount(id ksid.ID) int {
	return cs.s.productsByCategory.Count(id)
}

// Update applies fn and persists the category. The vendor cannot change.
func (cs *CategoryService) Update(id ksid.ID, fn func(c *Category) error) (*Category, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categories.Get(id) == nil {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return s.categories.Modify(id, func(c *Category) error {
		vendorID := c.VendorID
		if err := fn(c); err != nil {
			return err
		}
		c.VendorID = vendorID
		c.Modified = now()
		return cs.checkUnique(c)
	})
}

// Delete removes a category and clears it from its products.
func (cs *CategoryService) Delete(id ksid.ID) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categories.Get(id) == nil {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	for _, p := range slices.Collect(s.productsByCategory.Iter(id)) {
		if _, err := s.products.Modify(p.ID, func(p *Product) error {
			p.CategoryID = 0
			p.Modified = now()
			return nil
		}); err != nil {
			return err
		}
	}
	_, err := s.categories.Delete(id)
	return err
}

// ProductService manages products and their stock.
type ProductService struct {
	s *Store
}

// validateRefs checks the vendor, the category and SKU uniqueness.
// Caller holds s.mu.
func (ps *ProductService) validateRefs(p *Product) error {
	s := ps.s
	if s.vendors.Get(p.VendorID) == nil {
		return fmt.Errorf("vendor %s: %w", p.VendorID, ErrNotFound)
	}
	if !p.CategoryID.IsZero() {
		c := s.categories.Get(p.CategoryID)
		if c == nil {
			return fmt.Errorf("category %s: %w", p.CategoryID, ErrNotFound)
		}
		if c.VendorID != p.VendorID {
			return invalid("category %s belongs to another vendor", p.CategoryID)
		}
	}
	if id, ok := s.productBySKU.Lookup(foldKey(p.VendorID, p.SKU)); ok && id != p.ID {
		return fmt.Errorf("sku %q already exists: %w", p.SKU, ErrConflict)
	}
	return nil
}

// Create stores a new product.
func (ps *ProductService) Create(p *Product) (*Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Clone()
	p.ID = ksid.NewID()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ps.validateRefs(p); err != nil {
		return nil, err
	}
	p.Created = now()
	p.Modified = p.Created
	if err := s.products.Append(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the product with the given ID.
func (ps *ProductService) Get(id ksid.ID) (*Product, error) {
	if p := ps.s.products.Get(id); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
}

// ListByVendor returns the products of a vendor, or all when vendorID is zero.
func (ps *ProductService) ListByVendor(vendorID ksid.ID) []*Product {
	return slices.Collect(byVendor(ps.s.products, ps.s.productsByVendor, vendorID))
}

// LowStock returns the products at or below their reorder level.
func (ps *ProductService) LowStock(vendorID ksid.ID) []*Product {
	var out []*Product
	for p := range byVendor(ps.s.products, ps.s.productsByVendor, vendorID) {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}

// Update applies fn and persists the product. Vendor and stock are kept;
// stock changes go through AdjustStock and orders.
func (ps *ProductService) Update(id ksid.ID, fn func(p *Product) error) (*Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.products.Get(id) == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return s.products.Modify(id, func(p *Product) error {
		vendorID, stock := p.VendorID, p.Stock
		if err := fn(p); err != nil {
			return err
		}
		p.VendorID, p.Stock = vendorID, stock
		p.Modified = now()
		if err := p.Validate(); err != nil {
			return err
		}
		return ps.validateRefs(p)
	})
}

// AdjustStock adds delta to the product stock, refusing to go below zero.
func (ps *ProductService) AdjustStock(id ksid.ID, delta int) (*Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.applyStock(map[ksid.ID]int{id: delta})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Delete removes a product that no pending order references.
func (ps *ProductService) Delete(id ksid.ID) error {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products.Get(id)
	if p == nil {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	refs := func(items []OrderItem) bool {
		return slices.ContainsFunc(items, func(it OrderItem) bool { return it.ProductID == id })
	}
	for o := range s.purchasesByVendor.Iter(p.VendorID) {
		if o.Status == StatusPending && refs(o.Items) {
			return fmt.Errorf("product %s is on purchase order %s: %w", id, o.Number, ErrInUse)
		}
	}
	for o := range s.salesByVendor.Iter(p.VendorID) {
		if o.Status == StatusPending && refs(o.Items) {
			return fmt.Errorf("product %s is on sales order %s: %w", id, o.Number, ErrInUse)
		}
	}
	_, err := s.products.Delete(id)
	return err
}
