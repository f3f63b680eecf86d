package handlers

import (
	"context"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// CategoryHandler handles category requests.
type CategoryHandler struct {
	svc *Services
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(svc *Services) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func categoryVendor(c *inventory.Category) ksid.ID { return c.VendorID }

// ListCategories lists the categories in scope with their product counts.
func (h *CategoryHandler) ListCategories(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.CategoryResponse], error) {
	return &dto.ListResponse[dto.CategoryResponse]{Items: h.list(scope)}, nil
}

func (h *CategoryHandler) list(scope ksid.ID) []dto.CategoryResponse {
	cats := h.svc.Store.Categories.ListByVendor(scope)
	out := make([]dto.CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, *categoryToResponse(c, h.svc.Store.Categories.ProductCount(c.ID)))
	}
	return out
}

// GetCategory returns one category.
func (h *CategoryHandler) GetCategory(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.CategoryResponse, error) {
	c, err := lookup(h.svc.Store.Categories.Get, categoryVendor, scope, req.ID, "category")
	if err != nil {
		return nil, err
	}
	return categoryToResponse(c, h.svc.Store.Categories.ProductCount(c.ID)), nil
}

// CreateCategory creates a category under the scope vendor.
func (h *CategoryHandler) CreateCategory(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.CategoryRequest) (*dto.CategoryResponse, error) {
	vendorID, err := requireVendor(scope)
	if err != nil {
		return nil, err
	}
	c, err := h.svc.Store.Categories.Create(&inventory.Category{
		VendorID:    vendorID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		return nil, storeError(err, "vendor")
	}
	return categoryToResponse(c, 0), nil
}

// UpdateCategory renames a category.
func (h *CategoryHandler) UpdateCategory(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if _, err := lookup(h.svc.Store.Categories.Get, categoryVendor, scope, req.ID, "category"); err != nil {
		return nil, err
	}
	c, err := h.svc.Store.Categories.Update(req.ID, func(c *inventory.Category) error {
		c.Name = strings.TrimSpace(req.Name)
		c.Description = req.Description
		return c.Validate()
	})
	if err != nil {
		return nil, storeError(err, "category")
	}
	return categoryToResponse(c, h.svc.Store.Categories.ProductCount(c.ID)), nil
}

// DeleteCategory deletes a category. Its products become uncategorised.
func (h *CategoryHandler) DeleteCategory(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.IDRequest) (*dto.OkResponse, error) {
	if _, err := lookup(h.svc.Store.Categories.Get, categoryVendor, scope, req.ID, "category"); err != nil {
		return nil, err
	}
	if err := h.svc.Store.Categories.Delete(req.ID); err != nil {
		return nil, storeError(err, "category")
	}
	return &dto.OkResponse{Ok: true}, nil
}
