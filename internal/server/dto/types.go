package dto

import "github.com/maruel/ksid"

// UserRole is the role of a user in API payloads.
type UserRole string

// User roles, weakest first.
const (
	UserRoleStaff   UserRole = "staff"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// OrderStatus is the lifecycle state of a purchase or sales order.
type OrderStatus string

// Order states.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID ksid.ID `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ViewColumn is a column of a table view preset.
type ViewColumn struct {
	Key        string `json:"key"`
	Header     string `json:"header"`
	Sortable   bool   `json:"sortable,omitempty"`
	Filterable bool   `json:"filterable,omitempty"`
	Class      string `json:"class,omitempty"`
	Render     string `json:"render,omitempty"`
	Visible    bool   `json:"visible"`
}

// SortState is the active sort of a table.
type SortState struct {
	Key string `json:"key,omitempty"`
	Dir string `json:"dir,omitempty"`
}

// PaginationState is the pager of a table page.
//
// TotalPages is 0 when the filtered collection is empty. Page is still 1 in
// that case.
type PaginationState struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// TableCell is a rendered cell of a visible column.
type TableCell struct {
	Key   string `json:"key"`
	Text  string `json:"text"`
	Class string `json:"class,omitempty"`
}

// TableRow is a rendered record. Values holds the raw values of the visible
// columns.
type TableRow struct {
	ID     string         `json:"id"`
	Values map[string]any `json:"values"`
	Cells  []TableCell    `json:"cells"`
}
