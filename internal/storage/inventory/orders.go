// Purchase and sales order services.

package inventory

import (
	"fmt"
	"iter"
	"slices"

	"github.com/maruel/ksid"
)

// PurchaseService manages purchase orders.
type PurchaseService struct {
	s *Store
}

func (ps *PurchaseService) numbers(vendorID ksid.ID) iter.Seq[string] {
	return func(yield func(string) bool) {
		for o := range ps.s.purchasesByVendor.Iter(vendorID) {
			if !yield(o.Number) {
				return
			}
		}
	}
}

// Create stores a pending purchase order. Number and total are computed.
func (ps *PurchaseService) Create(o *PurchaseOrder) (*PurchaseOrder, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	o.ID = ksid.NewID()
	o.Status = StatusPending
	o.ReceivedAt = 0
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if s.vendors.Get(o.VendorID) == nil {
		return nil, fmt.Errorf("vendor %s: %w", o.VendorID, ErrNotFound)
	}
	if err := s.checkItems(o.VendorID, o.Items); err != nil {
		return nil, err
	}
	o.Number = nextNumber("PO", ps.numbers(o.VendorID))
	o.Total = itemsTotal(o.Items)
	o.Created = now()
	o.Modified = o.Created
	if o.OrderDate.IsZero() {
		o.OrderDate = o.Created
	}
	if err := s.purchases.Append(o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns the purchase order with the given ID.
func (ps *PurchaseService) Get(id ksid.ID) (*PurchaseOrder, error) {
	if o := ps.s.purchases.Get(id); o != nil {
		return o, nil
	}
	return nil, fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
}

// ListByVendor returns the purchase orders of a vendor, or all when vendorID is zero.
func (ps *PurchaseService) ListByVendor(vendorID ksid.ID) []*PurchaseOrder {
	return slices.Collect(byVendor(ps.s.purchases, ps.s.purchasesByVendor, vendorID))
}

// Update applies fn to a pending order. Vendor, number and status are kept
// and the total is recomputed.
func (ps *PurchaseService) Update(id ksid.ID, fn func(o *PurchaseOrder) error) (*PurchaseOrder, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return ps.transition(id, func(o *PurchaseOrder) error {
		vendorID, number := o.VendorID, o.Number
		if err := fn(o); err != nil {
			return err
		}
		o.VendorID, o.Number, o.Status = vendorID, number, StatusPending
		if err := validateItems(o.Items); err != nil {
			return err
		}
		if err := s.checkItems(o.VendorID, o.Items); err != nil {
			return err
		}
		o.Total = itemsTotal(o.Items)
		return nil
	})
}

// transition modifies a pending order. Caller holds s.mu.
func (ps *PurchaseService) transition(id ksid.ID, fn func(o *PurchaseOrder) error) (*PurchaseOrder, error) {
	cur := ps.s.purchases.Get(id)
	if cur == nil {
		return nil, fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
	}
	if cur.Status != StatusPending {
		return nil, fmt.Errorf("purchase order %s is %s: %w", cur.Number, cur.Status, ErrInvalidState)
	}
	return ps.s.purchases.Modify(id, func(o *PurchaseOrder) error {
		if err := fn(o); err != nil {
			return err
		}
		o.Modified = now()
		return nil
	})
}

// Receive marks a pending order received and adds its quantities to stock.
func (ps *PurchaseService) Receive(id ksid.ID) (*PurchaseOrder, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.purchases.Get(id)
	if cur == nil {
		return nil, fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
	}
	if cur.Status != StatusPending {
		return nil, fmt.Errorf("purchase order %s is %s: %w", cur.Number, cur.Status, ErrInvalidState)
	}
	delta := map[ksid.ID]int{}
	for _, it := range cur.Items {
		delta[it.ProductID] += it.Quantity
	}
	if _, err := s.applyStock(delta); err != nil {
		return nil, err
	}
	return ps.transition(id, func(o *PurchaseOrder) error {
		o.Status = StatusReceived
		o.ReceivedAt = now()
		return nil
	})
}

// Cancel marks a pending order cancelled.
func (ps *PurchaseService) Cancel(id ksid.ID) (*PurchaseOrder, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	return ps.transition(id, func(o *PurchaseOrder) error {
		o.Status = StatusCancelled
		return nil
	})
}

// Delete removes an order that has not been received.
func (ps *PurchaseService) Delete(id ksid.ID) error {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.purchases.Get(id)
	if o == nil {
		return fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
	}
	if o.Status == StatusReceived {
		return fmt.Errorf("purchase order %s was received: %w", o.Number, ErrInvalidState)
	}
	_, err := s.purchases.Delete(id)
	return err
}

// SalesService manages sales orders.
type SalesService struct {
	s *Store
}

func (ss *SalesService) numbers(vendorID ksid.ID) iter.Seq[string] {
	return func(yield func(string) bool) {
		for o := range ss.s.salesByVendor.Iter(vendorID) {
			if !yield(o.Number) {
				return
			}
		}
	}
}

// Create stores a pending sales order. Number and total are computed.
func (ss *SalesService) Create(o *SalesOrder) (*SalesOrder, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	o.ID = ksid.NewID()
	o.Status = StatusPending
	o.FulfilledAt = 0
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if s.vendors.Get(o.VendorID) == nil {
		return nil, fmt.Errorf("vendor %s: %w", o.VendorID, ErrNotFound)
	}
	if err := s.checkItems(o.VendorID, o.Items); err != nil {
		return nil, err
	}
	o.Number = nextNumber("SO", ss.numbers(o.VendorID))
	o.Total = itemsTotal(o.Items)
	o.Created = now()
	o.Modified = o.Created
	if o.OrderDate.IsZero() {
		o.OrderDate = o.Created
	}
	if err := s.sales.Append(o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns the sales order with the given ID.
func (ss *SalesService) Get(id ksid.ID) (*SalesOrder, error) {
	if o := ss.s.sales.Get(id); o != nil {
		return o, nil
	}
	return nil, fmt.Errorf("sales order %s: %w", id, ErrNotFound)
}

// ListByVendor returns the sales orders of a vendor, or all when vendorID is zero.
func (ss *SalesService) ListByVendor(vendorID ksid.ID) []*SalesOrder {
	return slices.Collect(byVendor(ss.s.sales, ss.s.salesByVendor, vendorID))
}

// Update applies fn to a pending order. Vendor, number and status are kept
// and the total is recomputed.
func (ss *SalesService) Update(id ksid.ID, fn func(o *SalesOrder) error) (*SalesOrder, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return ss.transition(id, func(o *SalesOrder) error {
		vendorID, number := o.VendorID, o.Number
		if err := fn(o); err != nil {
			return err
		}
		o.VendorID, o.Number, o.Status = vendorID, number, StatusPending
		if err := validateItems(o.Items); err != nil {
			return err
		}
		if err := s.checkItems(o.VendorID, o.Items); err != nil {
			return err
		}
		o.Total = itemsTotal(o.Items)
		return nil
	})
}

func (ss *SalesService) transition(id ksid.ID, fn func(o *SalesOrder) error) (*SalesOrder, error) {
	cur := ss.s.sales.Get(id)
	if cur == nil {
		return nil, fmt.Errorf("sales order %s: %w", id, ErrNotFound)
	}
	if cur.Status != StatusPending {
		return nil, fmt.Errorf("sales order %s is %s: %w", cur.Number, cur.Status, ErrInvalidState)
	}
	return ss.s.sales.Modify(id, func(o *SalesOrder) error {
		if err := fn(o); err != nil {
			return err
		}
		o.Modified = now()
		return nil
	})
}

// Fulfil marks a pending order fulfilled and removes its quantities from
// stock. Either every product has enough stock or nothing changes. It returns
// the products that reached their reorder level because of this order.
func (ss *SalesService) Fulfil(id ksid.ID) (*SalesOrder, []*Product, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.sales.Get(id)
	if cur == nil {
		return nil, nil, fmt.Errorf("sales order %s: %w", id, ErrNotFound)
	}
	if cur.Status != StatusPending {
		return nil, nil, fmt.Errorf("sales order %s is %s: %w", cur.Number, cur.Status, ErrInvalidState)
	}
	delta := map[ksid.ID]int{}
	for _, it := range cur.Items {
		delta[it.ProductID] -= it.Quantity
	}
	wasLow := map[ksid.ID]bool{}
	for pid := range delta {
		if p := s.products.Get(pid); p != nil {
			wasLow[pid] = p.IsLowStock()
		}
	}
	updated, err := s.applyStock(delta)
	if err != nil {
		return nil, nil, err
	}
	var crossed []*Product
	for _, p := range updated {
		if p.IsLowStock() && !wasLow[p.ID] {
			crossed = append(crossed, p)
		}
	}
	o, err := ss.transition(id, func(o *SalesOrder) error {
		o.Status = StatusFulfilled
		o.FulfilledAt = now()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return o, crossed, nil
}

// Cancel marks a pending order cancelled.
func (ss *SalesService) Cancel(id ksid.ID) (*SalesOrder, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	return ss.transition(id, func(o *SalesOrder) error {
		o.Status = StatusCancelled
		return nil
	})
}

// Delete removes an order that has not been fulfilled.
func (ss *SalesService) Delete(id ksid.ID) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.sales.Get(id)
	if o == nil {
		return fmt.Errorf("sales order %s: %w", id, ErrNotFound)
	}
	if o.Status == StatusFulfilled {
		return fmt.Errorf("sales order %s was fulfilled: %w", o.Number, ErrInvalidState)
	}
	_, err := s.sales.Delete(id)
	return err
}
