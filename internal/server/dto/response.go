package dto

import "github.com/maruel/ksid"

// HealthResponse is the response to a health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// OkResponse acknowledges a request without a payload.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// --- Auth ---

// AuthResponse is returned on login, registration and OAuth callback.
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID             ksid.ID  `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Role           UserRole `json:"role"`
	VendorID       ksid.ID  `json:"vendor_id,omitzero"`
	OAuthProviders []string `json:"oauth_providers,omitempty"`
	Created        int64    `json:"created"`
	Modified       int64    `json:"modified"`
}

// SessionResponse is one login session of the current user.
type SessionResponse struct {
	ID          ksid.ID `json:"id"`
	DeviceInfo  string  `json:"device_info"`
	IPAddress   string  `json:"ip_address"`
	CountryCode string  `json:"country_code,omitempty"`
	Created     int64   `json:"created"`
	LastUsed    int64   `json:"last_used"`
	ExpiresAt   int64   `json:"expires_at"`
	IsCurrent   bool    `json:"is_current"`
}

// RevokeAllSessionsResponse reports how many sessions were revoked.
type RevokeAllSessionsResponse struct {
	RevokedCount int `json:"revoked_count"`
}

// --- Inventory ---

// VendorResponse is a vendor.
type VendorResponse struct {
	ID          ksid.ID `json:"id"`
	Name        string  `json:"name"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	GSTIN       string  `json:"gstin"`
	Created     int64   `json:"created"`
	Modified    int64   `json:"modified"`
}

// CategoryResponse is a category with its product count.
type CategoryResponse struct {
	ID           ksid.ID `json:"id"`
	VendorID     ksid.ID `json:"vendor_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ProductCount int     `json:"product_count"`
	Created      int64   `json:"created"`
	Modified     int64   `json:"modified"`
}

// ProductResponse is a product with its category name and low stock flag.
type ProductResponse struct {
	ID           ksid.ID `json:"id"`
	VendorID     ksid.ID `json:"vendor_id"`
	CategoryID   ksid.ID `json:"category_id,omitzero"`
	CategoryName string  `json:"category_name"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Unit         string  `json:"unit"`
	Price        float64 `json:"price"`
	CostPrice    float64 `json:"cost_price"`
	Stock        int     `json:"stock"`
	ReorderLevel int     `json:"reorder_level"`
	LowStock     bool    `json:"low_stock"`
	Created      int64   `json:"created"`
	Modified     int64   `json:"modified"`
}

// PurchaseOrderResponse is a purchase order.
type PurchaseOrderResponse struct {
	ID           ksid.ID     `json:"id"`
	VendorID     ksid.ID     `json:"vendor_id"`
	Number       string      `json:"number"`
	Supplier     string      `json:"supplier"`
	Items        []OrderItem `json:"items"`
	ItemCount    int         `json:"item_count"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status"`
	OrderDate    int64       `json:"order_date"`
	ExpectedDate int64       `json:"expected_date,omitzero"`
	ReceivedAt   int64       `json:"received_at,omitzero"`
	Notes        string      `json:"notes"`
	Created      int64       `json:"created"`
	Modified     int64       `json:"modified"`
}

// SalesOrderResponse is a sales order.
type SalesOrderResponse struct {
	ID          ksid.ID     `json:"id"`
	VendorID    ksid.ID     `json:"vendor_id"`
	Number      string      `json:"number"`
	Customer    string      `json:"customer"`
	Items       []OrderItem `json:"items"`
	ItemCount   int         `json:"item_count"`
	Total       float64     `json:"total"`
	Status      OrderStatus `json:"status"`
	OrderDate   int64       `json:"order_date"`
	FulfilledAt int64       `json:"fulfilled_at,omitzero"`
	Notes       string      `json:"notes"`
	Created     int64       `json:"created"`
	Modified    int64       `json:"modified"`
}

// FulfilSalesOrderResponse is the fulfilled order plus the products it
// pushed to their reorder level.
type FulfilSalesOrderResponse struct {
	Order    *SalesOrderResponse `json:"order"`
	LowStock []ProductResponse   `json:"low_stock"`
}

// --- Table views ---

// TableResponse is one rendered page of a resource.
type TableResponse struct {
	Resource      string          `json:"resource"`
	Title         string          `json:"title"`
	Columns       []ViewColumn    `json:"columns"`
	Rows          []TableRow      `json:"rows"`
	Pagination    PaginationState `json:"pagination"`
	Sort          SortState       `json:"sort"`
	Search        string          `json:"search,omitempty"`
	ActiveFilters int             `json:"active_filters"`
	Empty         string          `json:"empty,omitempty"`
}

// ViewSummary names a view.
type ViewSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ListViewsResponse lists the configured views.
type ListViewsResponse struct {
	Views []ViewSummary `json:"views"`
}

// ViewResponse is a view preset.
type ViewResponse struct {
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	PageSize     int          `json:"page_size"`
	Sort         *SortState   `json:"sort,omitempty"`
	EmptyMessage string       `json:"empty_message,omitempty"`
	Columns      []ViewColumn `json:"columns"`
}

// --- Analytics ---

// SummaryResponse is the dashboard summary.
type SummaryResponse struct {
	Products         int     `json:"products"`
	Vendors          int     `json:"vendors"`
	LowStock         int     `json:"low_stock"`
	InventoryValue   float64 `json:"inventory_value"`
	SalesTotal       float64 `json:"sales_total"`
	SalesCount       int     `json:"sales_count"`
	PurchaseTotal    float64 `json:"purchase_total"`
	PurchaseCount    int     `json:"purchase_count"`
	PendingPurchases int     `json:"pending_purchases"`
	PendingSales     int     `json:"pending_sales"`
}

// MonthTotal is the fulfilled sales of one month.
type MonthTotal struct {
	Month  string  `json:"month"`
	Total  float64 `json:"total"`
	Orders int     `json:"orders"`
}

// SalesByMonthResponse lists months oldest first.
type SalesByMonthResponse struct {
	Months []MonthTotal `json:"months"`
}

// ProductSales is the fulfilled volume of one product.
type ProductSales struct {
	ProductID ksid.ID `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// TopProductsResponse lists best sellers.
type TopProductsResponse struct {
	Products []ProductSales `json:"products"`
}

// --- Audit ---

// CommitResponse is one change of the data directory.
type CommitResponse struct {
	Hash        string `json:"hash"`
	Message     string `json:"message"`
	Author      string `json:"author"`
	AuthorEmail string `json:"author_email"`
	When        int64  `json:"when"`
	Files       int    `json:"files"`
}

// AuditResponse lists changes, newest first.
type AuditResponse struct {
	Commits []CommitResponse `json:"commits"`
}

// --- Web push ---

// VAPIDKeyResponse is the application server key browsers subscribe with.
type VAPIDKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// PushSubscriptionResponse is a stored subscription.
type PushSubscriptionResponse struct {
	ID       ksid.ID `json:"id"`
	Endpoint string  `json:"endpoint"`
	Created  int64   `json:"created"`
}
