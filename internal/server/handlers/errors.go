// Maps storage errors to API errors.

package handlers

import (
	"errors"
	"net/http"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// storeError converts an error returned by a storage service. resource names
// the entity in 404 messages.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrSessionNotFound), errors.Is(err, identity.ErrPushSubNotFound):
		return dto.NotFound(resource).Wrap(err)
	case errors.Is(err, inventory.ErrInvalid):
		return dto.BadRequest(err.Error())
	case errors.Is(err, inventory.ErrConflict), errors.Is(err, identity.ErrUserExists):
		return dto.Conflict(err.Error())
	case errors.Is(err, inventory.ErrInUse):
		return dto.Conflict(err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		return dto.NewAPIError(http.StatusConflict, dto.ErrorCodeInsufficientStock, err.Error())
	case errors.Is(err, inventory.ErrInvalidState):
		return dto.NewAPIError(http.StatusConflict, dto.ErrorCodeInvalidState, err.Error())
	case errors.Is(err, identity.ErrUserQuotaExceeded), errors.Is(err, identity.ErrSessionQuotaExceeded):
		return dto.QuotaExceeded(err.Error())
	}
	return dto.InternalWithError("Failed to access "+resource, err)
}

// inScope reports whether an entity of vendorID is visible under scope. A
// zero scope sees every vendor.
func inScope(scope, vendorID ksid.ID) bool {
	return scope.IsZero() || scope == vendorID
}

// requireVendor returns the vendor new entities are created under.
func requireVendor(scope ksid.ID) (ksid.ID, error) {
	if scope.IsZero() {
		return 0, dto.MissingField("vendor_id").WithDetail("hint", "pass ?vendor_id= to choose the vendor")
	}
	return scope, nil
}
