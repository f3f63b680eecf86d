package handlers

import (
	"context"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// VendorHandler handles vendor requests.
type VendorHandler struct {
	svc *Services
}

// NewVendorHandler creates a new vendor handler.
func NewVendorHandler(svc *Services) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// ListVendors lists the vendors visible in scope.
func (h *VendorHandler) ListVendors(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.VendorResponse], error) {
	out := &dto.ListResponse[dto.VendorResponse]{Items: []dto.VendorResponse{}}
	for _, v := range h.svc.Store.Vendors.List() {
		if inScope(scope, v.ID) {
			out.Items = append(out.Items, *vendorToResponse(v))
		}
	}
	return out, nil
}

// GetVendor returns one vendor.
func (h *VendorHandler) GetVendor(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.VendorResponse, error) {
	v, err := lookup(h.svc.Store.Vendors.Get, vendorOfVendor, scope, req.ID, "vendor")
	if err != nil {
		return nil, err
	}
	return vendorToResponse(v), nil
}

// CreateVendor creates a vendor.
func (h *VendorHandler) CreateVendor(ctx context.Context, user *identity.User, req *dto.VendorRequest) (*dto.VendorResponse, error) {
	v := &inventory.Vendor{}
	applyVendor(v, req)
	if err := v.Validate(); err != nil {
		return nil, storeError(err, "vendor")
	}
	created, err := h.svc.Store.Vendors.Create(v)
	if err != nil {
		return nil, storeError(err, "vendor")
	}
	return vendorToResponse(created), nil
}

// UpdateVendor replaces the fields of a vendor.
func (h *VendorHandler) UpdateVendor(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.VendorRequest) (*dto.VendorResponse, error) {
	if _, err := lookup(h.svc.Store.Vendors.Get, vendorOfVendor, scope, req.ID, "vendor"); err != nil {
		return nil, err
	}
	v, err := h.svc.Store.Vendors.Update(req.ID, func(v *inventory.Vendor) error {
		applyVendor(v, req)
		return v.Validate()
	})
	if err != nil {
		return nil, storeError(err, "vendor")
	}
	return vendorToResponse(v), nil
}

// DeleteVendor deletes a vendor without records.
func (h *VendorHandler) DeleteVendor(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if _, err := lookup(h.svc.Store.Vendors.Get, vendorOfVendor, scope, req.ID, "vendor"); err != nil {
		return nil, err
	}
	if err := h.svc.Store.Vendors.Delete(req.ID); err != nil {
		return nil, storeError(err, "vendor")
	}
	return &dto.OkResponse{Ok: true}, nil
}

func applyVendor(v *inventory.Vendor, req *dto.VendorRequest) {
	v.Name = strings.TrimSpace(req.Name)
	v.ContactName = req.ContactName
	v.Email = req.Email
	v.Phone = req.Phone
	v.Address = req.Address
	v.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
}

func vendorOfVendor(v *inventory.Vendor) ksid.ID { return v.ID }

// lookup fetches an entity and hides it when it belongs to a vendor outside
// scope.
func lookup[T any](get func(ksid.ID) (T, error), vendorOf func(T) ksid.ID, scope, id ksid.ID, resource string) (T, error) {
	var zero T
	v, err := get(id)
	if err != nil {
		return zero, storeError(err, resource)
	}
	if !inScope(scope, vendorOf(v)) {
		return zero, dto.NotFound(resource)
	}
	return v, nil
}
