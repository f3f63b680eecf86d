// Conversion functions between storage entities and dto types.

package handlers

import (
	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

func userToResponse(u *identity.User) *dto.UserResponse {
	r := &dto.UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     dto.UserRole(u.Role),
		VendorID: u.VendorID,
		Created:  int64(u.Created),
		Modified: int64(u.Modified),
	}
	for _, o := range u.OAuthIdentities {
		r.OAuthProviders = append(r.OAuthProviders, o.Provider)
	}
	return r
}

func vendorToResponse(v *inventory.Vendor) *dto.VendorResponse {
	return &dto.VendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		ContactName: v.ContactName,
		Email:       v.Email,
		Phone:       v.Phone,
		Address:     v.Address,
		GSTIN:       v.GSTIN,
		Created:     int64(v.Created),
		Modified:    int64(v.Modified),
	}
}

func categoryToResponse(c *inventory.Category, productCount int) *dto.CategoryResponse {
	return &dto.CategoryResponse{
		ID:           c.ID,
		VendorID:     c.VendorID,
		Name:         c.Name,
		Description:  c.Description,
		ProductCount: productCount,
		Created:      int64(c.Created),
		Modified:     int64(c.Modified),
	}
}

func productToResponse(p *inventory.Product, categoryName string) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:           p.ID,
		VendorID:     p.VendorID,
		CategoryID:   p.CategoryID,
		CategoryName: categoryName,
		Name:         p.Name,
		SKU:          p.SKU,
		Unit:         p.Unit,
		Price:        p.Price,
		CostPrice:    p.CostPrice,
		Stock:        p.Stock,
		ReorderLevel: p.ReorderLevel,
		LowStock:     p.IsLowStock(),
		Created:      int64(p.Created),
		Modified:     int64(p.Modified),
	}
}

// categoryNames maps category IDs of a vendor (all vendors when zero) to names.
func categoryNames(store *inventory.Store, vendorID ksid.ID) map[ksid.ID]string {
	m := map[ksid.ID]string{}
	for _, c := range store.Categories.ListByVendor(vendorID) {
		m[c.ID] = c.Name
	}
	return m
}

func itemsToDTO(items []inventory.OrderItem) []dto.OrderItem {
	out := make([]dto.OrderItem, len(items))
	for i, it := range items {
		out[i] = dto.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func itemsFromDTO(items []dto.OrderItem) []inventory.OrderItem {
	out := make([]inventory.OrderItem, len(items))
	for i, it := range items {
		out[i] = inventory.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func purchaseOrderToResponse(o *inventory.PurchaseOrder) *dto.PurchaseOrderResponse {
	return &dto.PurchaseOrderResponse{
		ID:           o.ID,
		VendorID:     o.VendorID,
		Number:       o.Number,
		Supplier:     o.Supplier,
		Items:        itemsToDTO(o.Items),
		ItemCount:    len(o.Items),
		Total:        o.Total,
		Status:       dto.OrderStatus(o.Status),
		OrderDate:    int64(o.OrderDate),
		ExpectedDate: int64(o.ExpectedDate),
		ReceivedAt:   int64(o.ReceivedAt),
		Notes:        o.Notes,
		Created:      int64(o.Created),
		Modified:     int64(o.Modified),
	}
}

func salesOrderToResponse(o *inventory.SalesOrder) *dto.SalesOrderResponse {
	return &dto.SalesOrderResponse{
		ID:          o.ID,
		VendorID:    o.VendorID,
		Number:      o.Number,
		Customer:    o.Customer,
		Items:       itemsToDTO(o.Items),
		ItemCount:   len(o.Items),
		Total:       o.Total,
		Status:      dto.OrderStatus(o.Status),
		OrderDate:   int64(o.OrderDate),
		FulfilledAt: int64(o.FulfilledAt),
		Notes:       o.Notes,
		Created:     int64(o.Created),
		Modified:    int64(o.Modified),
	}
}

func sessionToResponse(s *identity.Session, current ksid.ID) dto.SessionResponse {
	return dto.SessionResponse{
		ID:          s.ID,
		DeviceInfo:  s.DeviceInfo,
		IPAddress:   s.IPAddress,
		CountryCode: s.CountryCode,
		Created:     int64(s.Created),
		LastUsed:    int64(s.LastUsed),
		ExpiresAt:   int64(s.ExpiresAt),
		IsCurrent:   s.ID == current,
	}
}
