// Defines the validation interface for requests.

package dto

import (
	"net/mail"
	"strings"
)

// Validatable is implemented by request types that can validate their fields.
// The Wrap functions in handler_wrapper.go use this interface as a type
// constraint to ensure all request types provide validation.
type Validatable interface {
	Validate() error
}

// validEmail reports whether s is a bare address ("a@b.c", no display name).
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@'):], ".")
}

func validRole(r UserRole) bool {
	switch r {
	case UserRoleStaff, UserRoleManager, UserRoleAdmin:
		return true
	}
	return false
}
