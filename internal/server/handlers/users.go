package handlers

import (
	"context"
	"strings"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// UserHandler handles user administration.
type UserHandler struct {
	svc *Services
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *Services) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers lists every user.
func (h *UserHandler) ListUsers(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.ListResponse[dto.UserResponse], error) {
	users := h.svc.User.List()
	out := &dto.ListResponse[dto.UserResponse]{Items: make([]dto.UserResponse, 0, len(users))}
	for _, u := range users {
		out.Items = append(out.Items, *userToResponse(u))
	}
	return out, nil
}

// UpdateUser changes the name, role and vendor binding of a user.
func (h *UserHandler) UpdateUser(ctx context.Context, user *identity.User, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if req.ID == user.ID && req.Role != dto.UserRoleAdmin {
		return nil, dto.BadRequest("admins cannot demote themselves")
	}
	if !req.VendorID.IsZero() {
		if _, err := h.svc.Store.Vendors.Get(req.VendorID); err != nil {
			return nil, dto.InvalidField("vendor_id", "unknown vendor")
		}
	}
	updated, err := h.svc.User.Modify(req.ID, func(u *identity.User) error {
		if name := strings.TrimSpace(req.Name); name != "" {
			u.Name = name
		}
		u.Role = identity.Role(req.Role)
		u.VendorID = req.VendorID
		return nil
	})
	if err != nil {
		return nil, storeError(err, "user")
	}
	return userToResponse(updated), nil
}
