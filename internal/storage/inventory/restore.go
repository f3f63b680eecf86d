// Bulk loading of rows that already carry IDs, states and timestamps.

package inventory

import (
	"fmt"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/storage"
)

func fillTimes(created, modified *storage.Time) {
	if created.IsZero() {
		*created = now()
	}
	if *modified == 0 {
		*modified = *created
	}
}

// RestoreVendor appends v as is. A zero ID is replaced with a new one.
func (s *Store) RestoreVendor(v *Vendor) (*Vendor, error) {
	v = v.Clone()
	if v.ID.IsZero() {
		v.ID = ksid.NewID()
	}
	fillTimes(&v.Created, &v.Modified)
	if err := s.vendors.Append(v); err != nil {
		return nil, err
	}
	return v, nil
}

// RestoreCategory appends c after checking its vendor and name.
func (s *Store) RestoreCategory(c *Category) (*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c = c.Clone()
	if c.ID.IsZero() {
		c.ID = ksid.NewID()
	}
	if s.vendors.Get(c.VendorID) == nil {
		return nil, fmt.Errorf("vendor %s: %w", c.VendorID, ErrNotFound)
	}
	if err := s.Categories.checkUnique(c); err != nil {
		return nil, err
	}
	fillTimes(&c.Created, &c.Modified)
	if err := s.categories.Append(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RestoreProduct appends p, keeping its stock.
func (s *Store) RestoreProduct(p *Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Clone()
	if p.ID.IsZero() {
		p.ID = ksid.NewID()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.Products.validateRefs(p); err != nil {
		return nil, err
	}
	fillTimes(&p.Created, &p.Modified)
	if err := s.products.Append(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RestorePurchaseOrder appends o with its status. Stock is not touched. An
// empty number gets the next one in sequence; a zero total is recomputed.
func (s *Store) RestorePurchaseOrder(o *PurchaseOrder) (*PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	if o.ID.IsZero() {
		o.ID = ksid.NewID()
	}
	if err := s.checkItems(o.VendorID, o.Items); err != nil {
		return nil, err
	}
	if o.Number == "" {
		o.Number = nextNumber("PO", s.Purchases.numbers(o.VendorID))
	}
	if o.Total == 0 {
		o.Total = itemsTotal(o.Items)
	}
	fillTimes(&o.Created, &o.Modified)
	if o.OrderDate.IsZero() {
		o.OrderDate = o.Created
	}
	if err := s.purchases.Append(o); err != nil {
		return nil, err
	}
	return o, nil
}

// RestoreSalesOrder appends o with its status. Stock is not touched.
func (s *Store) RestoreSalesOrder(o *SalesOrder) (*SalesOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	if o.ID.IsZero() {
		o.ID = ksid.NewID()
	}
	if err := s.checkItems(o.VendorID, o.Items); err != nil {
		return nil, err
	}
	if o.Number == "" {
		o.Number = nextNumber("SO", s.Sales.numbers(o.VendorID))
	}
	if o.Total == 0 {
		o.Total = itemsTotal(o.Items)
	}
	fillTimes(&o.Created, &o.Modified)
	if o.OrderDate.IsZero() {
		o.OrderDate = o.Created
	}
	if err := s.sales.Append(o); err != nil {
		return nil, err
	}
	return o, nil
}
