package dto

import (
	"strings"

	"github.com/maruel/ksid"
)

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

// Validate is a no-op.
func (r *EmptyRequest) Validate() error {
	return nil
}

// IDRequest addresses one entity by its path ID.
type IDRequest struct {
	ID ksid.ID `path:"id" json:"-"`
}

// Validate checks the ID was parsed from the path.
func (r *IDRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid identifier")
	}
	return nil
}

// --- Auth ---

// LoginRequest is a request to log in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// RegisterRequest is a request to register a new user.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate validates the register request fields.
func (r *RegisterRequest) Validate() error {
	if r.Email == "" {
		return MissingField("email")
	}
	if !validEmail(r.Email) {
		return InvalidField("email", "not an email address")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	if len(r.Password) < 8 {
		return InvalidField("password", "must be at least 8 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return nil
}

// UpdateUserRequest changes the role, vendor binding and name of a user.
// A zero VendorID unbinds the user.
type UpdateUserRequest struct {
	ID       ksid.ID  `path:"id" json:"-"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	VendorID ksid.ID  `json:"vendor_id,omitzero"`
}

// Validate validates the update user request fields.
func (r *UpdateUserRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid identifier")
	}
	if !validRole(r.Role) {
		return InvalidField("role", "must be staff, manager or admin")
	}
	return nil
}

// --- Vendors ---

// VendorRequest creates or replaces a vendor. ID is set only on updates.
type VendorRequest struct {
	ID          ksid.ID `path:"id" json:"-"`
	Name        string  `json:"name"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	GSTIN       string  `json:"gstin"`
}

// Validate validates the vendor request fields.
func (r *VendorRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if r.Email != "" && !validEmail(r.Email) {
		return InvalidField("email", "not an email address")
	}
	return nil
}

// --- Categories ---

// CategoryRequest creates or replaces a category.
type CategoryRequest struct {
	ID          ksid.ID `path:"id" json:"-"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// Validate validates the category request fields.
func (r *CategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return nil
}

// --- Products ---

// ProductRequest creates or replaces a product. Stock is only honoured on
// creation; later changes go through AdjustStockRequest or orders.
type ProductRequest struct {
	ID           ksid.ID `path:"id" json:"-"`
	CategoryID   ksid.ID `json:"category_id,omitzero"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Unit         string  `json:"unit"`
	Price        float64 `json:"price"`
	CostPrice    float64 `json:"cost_price"`
	Stock        int     `json:"stock"`
	ReorderLevel int     `json:"reorder_level"`
}

// Validate validates the product request fields.
func (r *ProductRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if r.Price < 0 {
		return InvalidField("price", "must not be negative")
	}
	if r.CostPrice < 0 {
		return InvalidField("cost_price", "must not be negative")
	}
	if r.Stock < 0 {
		return InvalidField("stock", "must not be negative")
	}
	if r.ReorderLevel < 0 {
		return InvalidField("reorder_level", "must not be negative")
	}
	return nil
}

// AdjustStockRequest adds Delta (possibly negative) to a product's stock.
type AdjustStockRequest struct {
	ID     ksid.ID `path:"id" json:"-"`
	Delta  int     `json:"delta"`
	Reason string  `json:"reason,omitempty"`
}

// Validate validates the adjust stock request fields.
func (r *AdjustStockRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "not a valid identifier")
	}
	if r.Delta == 0 {
		return MissingField("delta")
	}
	return nil
}

// --- Orders ---

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return MissingField("items")
	}
	for i, it := range items {
		if it.ProductID.IsZero() {
			return MissingField("items.product_id").WithDetail("index", i)
		}
		if it.Quantity <= 0 {
			return InvalidField("items.quantity", "must be positive").WithDetail("index", i)
		}
		if it.UnitPrice < 0 {
			return InvalidField("items.unit_price", "must not be negative").WithDetail("index", i)
		}
	}
	return nil
}

// PurchaseOrderRequest creates or replaces a pending purchase order.
type PurchaseOrderRequest struct {
	ID           ksid.ID     `path:"id" json:"-"`
	Supplier     string      `json:"supplier"`
	Items        []OrderItem `json:"items"`
	ExpectedDate int64       `json:"expected_date,omitzero"`
	Notes        string      `json:"notes,omitempty"`
}

// Validate validates the purchase order request fields.
func (r *PurchaseOrderRequest) Validate() error {
	if strings.TrimSpace(r.Supplier) == "" {
		return MissingField("supplier")
	}
	return validateItems(r.Items)
}

// SalesOrderRequest creates or replaces a pending sales order.
type SalesOrderRequest struct {
	ID       ksid.ID     `path:"id" json:"-"`
	Customer string      `json:"customer"`
	Items    []OrderItem `json:"items"`
	Notes    string      `json:"notes,omitempty"`
}

// Validate validates the sales order request fields.
func (r *SalesOrderRequest) Validate() error {
	if strings.TrimSpace(r.Customer) == "" {
		return MissingField("customer")
	}
	return validateItems(r.Items)
}

// --- Table views ---

// TableRequest queries one page of a resource.
//
// Each sort value is applied like a click on that column header unless Dir
// is set, in which case the last sort key is applied with Dir. Hide toggles
// the visibility of the listed columns relative to the preset.
type TableRequest struct {
	Search   string            `query:"q"`
	Filters  map[string]string `query:"f.*"`
	Sort     []string          `query:"sort"`
	Dir      string            `query:"dir"`
	Page     int               `query:"page"`
	PageSize int               `query:"page_size"`
	Hide     []string          `query:"hide"`
}

// Validate validates the table request fields.
func (r *TableRequest) Validate() error {
	if r.Dir != "" && r.Dir != "asc" && r.Dir != "desc" {
		return InvalidField("dir", "must be asc or desc")
	}
	if r.PageSize < 0 || r.PageSize > 500 {
		return InvalidField("page_size", "must be between 0 and 500")
	}
	return nil
}

// GetViewRequest names a view preset.
type GetViewRequest struct {
	Name string `path:"resource" json:"-"`
}

// Validate validates the get view request fields.
func (r *GetViewRequest) Validate() error {
	if r.Name == "" {
		return MissingField("resource")
	}
	return nil
}

// --- Analytics ---

// SalesByMonthRequest asks for the last Months months, 12 by default.
type SalesByMonthRequest struct {
	Months int `query:"months"`
}

// Validate validates the sales by month request fields.
func (r *SalesByMonthRequest) Validate() error {
	if r.Months < 0 || r.Months > 120 {
		return InvalidField("months", "must be between 1 and 120")
	}
	return nil
}

// TopProductsRequest asks for the Limit best sellers, 10 by default.
type TopProductsRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the top products request fields.
func (r *TopProductsRequest) Validate() error {
	if r.Limit < 0 || r.Limit > 100 {
		return InvalidField("limit", "must be between 1 and 100")
	}
	return nil
}

// AuditRequest asks for the Limit most recent changes, 50 by default.
type AuditRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the audit request fields.
func (r *AuditRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidField("limit", "must not be negative")
	}
	return nil
}

// --- Web push ---

// PushKeys are the browser-generated subscription keys.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscribePushRequest registers a browser push subscription.
type SubscribePushRequest struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

// Validate validates the subscribe request fields.
func (r *SubscribePushRequest) Validate() error {
	if !strings.HasPrefix(r.Endpoint, "https://") {
		return InvalidField("endpoint", "must be an https URL")
	}
	if r.Keys.P256dh == "" {
		return MissingField("keys.p256dh")
	}
	if r.Keys.Auth == "" {
		return MissingField("keys.auth")
	}
	return nil
}

// UnsubscribePushRequest removes a push subscription.
type UnsubscribePushRequest struct {
	Endpoint string `json:"endpoint"`
}

// Validate validates the unsubscribe request fields.
func (r *UnsubscribePushRequest) Validate() error {
	if r.Endpoint == "" {
		return MissingField("endpoint")
	}
	return nil
}

// --- Sessions ---

// RevokeSessionRequest revokes one session of the current user.
type RevokeSessionRequest struct {
	SessionID ksid.ID `path:"id" json:"-"`
}

// Validate validates the revoke session request fields.
func (r *RevokeSessionRequest) Validate() error {
	if r.SessionID.IsZero() {
		return InvalidField("id", "not a valid identifier")
	}
	return nil
}
