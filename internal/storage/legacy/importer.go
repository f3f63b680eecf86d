// Mapping of legacy rows onto the inventory and identity services.

package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/inventory"
)

// Table names tried in order; Sequelize pluralised model names in either case.
var tableNames = map[string][]string{
	"vendors":         {"vendors", "Vendors"},
	"categories":      {"categories", "Categories"},
	"products":        {"products", "Products"},
	"purchase_orders": {"purchase_orders", "PurchaseOrders"},
	"purchase_items":  {"purchase_order_items", "PurchaseOrderItems"},
	"sales_orders":    {"sales_orders", "SalesOrders"},
	"sales_items":     {"sales_order_items", "SalesOrderItems"},
	"users":           {"users", "Users"},
}

// TableReport counts the outcome for one table.
type TableReport struct {
	Table    string `json:"table"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// Report summarises an import.
type Report struct {
	Tables []TableReport `json:"tables"`
}

// Skipped returns the total number of skipped rows.
func (r *Report) Skipped() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Skipped
	}
	return n
}

// Importer copies a legacy database into the stores. Legacy integer IDs are
// mapped to new IDs as rows are written.
type Importer struct {
	src   Source
	store *inventory.Store
	users *identity.UserService

	vendors    map[int64]ksid.ID
	categories map[int64]ksid.ID
	products   map[int64]ksid.ID
}

// NewImporter returns an importer. users may be nil to skip accounts.
func NewImporter(src Source, store *inventory.Store, users *identity.UserService) *Importer {
	return &Importer{
		src:        src,
		store:      store,
		users:      users,
		vendors:    map[int64]ksid.ID{},
		categories: map[int64]ksid.ID{},
		products:   map[int64]ksid.ID{},
	}
}

// Run imports every table. Rows that cannot be mapped are skipped, logged and
// counted; only source errors abort.
func (im *Importer) Run(ctx context.Context) (*Report, error) {
	steps := []struct {
		name     string
		required bool
		fn       func(context.Context, []Row, *TableReport) error
	}{
		{"vendors", true, im.importVendors},
		{"categories", false, im.importCategories},
		{"products", true, im.importProducts},
		{"purchase_orders", false, im.importPurchases},
		{"sales_orders", false, im.importSales},
		{"users", false, im.importUsers},
	}
	report := &Report{}
	for _, step := range steps {
		if step.name == "users" && im.users == nil {
			continue
		}
		rows, err := im.rows(ctx, step.name)
		if errors.Is(err, ErrNoTable) && !step.required {
			slog.WarnContext(ctx, "legacy table missing", "table", step.name)
			continue
		}
		if err != nil {
			return report, err
		}
		tr := TableReport{Table: step.name}
		if err := step.fn(ctx, rows, &tr); err != nil {
			return report, err
		}
		slog.InfoContext(ctx, "imported", "table", step.name, "imported", tr.Imported, "skipped", tr.Skipped)
		report.Tables = append(report.Tables, tr)
	}
	return report, nil
}

func (im *Importer) rows(ctx context.Context, name string) ([]Row, error) {
	var err error
	for _, table := range tableNames[name] {
		var rows []Row
		rows, err = im.src.Rows(ctx, table)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, ErrNoTable) {
			return nil, err
		}
	}
	return nil, err
}

func skip(ctx context.Context, tr *TableReport, r Row, reason string, err error) {
	tr.Skipped++
	id, _ := r.int("id")
	slog.WarnContext(ctx, "skipped legacy row", "table", tr.Table, "id", id, "reason", reason, "err", err)
}

func (im *Importer) importVendors(ctx context.Context, rows []Row, tr *TableReport) error {
	for _, r := range rows {
		legacyID, ok := r.int("id")
		if !ok {
			skip(ctx, tr, r, "no id", nil)
			continue
		}
		v, err := im.store.RestoreVendor(&inventory.Vendor{
			Name:        r.str("name", "business_name", "vendor_name"),
			ContactName: r.str("contact_name", "contact_person", "owner_name"),
			Email:       r.str("email"),
			Phone:       r.str("phone", "phone_number", "mobile"),
			Address:     r.str("address"),
			GSTIN:       strings.ToUpper(r.str("gstin", "gst_number", "gst_no")),
			Created:     r.time("created_at"),
			Modified:    r.time("updated_at"),
		})
		if err != nil {
			skip(ctx, tr, r, "invalid vendor", err)
			continue
		}
		im.vendors[legacyID] = v.ID
		tr.Imported++
	}
	return nil
}

// vendorOf resolves the vendor column, which every scoped table carries.
func (im *Importer) vendorOf(r Row) (ksid.ID, bool) {
	legacyID, ok := r.int("vendor_id")
	if !ok {
		return 0, false
	}
	id, ok := im.vendors[legacyID]
	return id, ok
}

func (im *Importer) importCategories(ctx context.Context, rows []Row, tr *TableReport) error {
	for _, r := range rows {
		vendorID, ok := im.vendorOf(r)
		if !ok {
			skip(ctx, tr, r, "unresolved vendor", nil)
			continue
		}
		legacyID, _ := r.int("id")
		c, err := im.store.RestoreCategory(&inventory.Category{
			VendorID:    vendorID,
			Name:        r.str("name"),
			Description: r.str("description"),
			Created:     r.time("created_at"),
			Modified:    r.time("updated_at"),
		})
		if err != nil {
			skip(ctx, tr, r, "invalid category", err)
			continue
		}
		im.categories[legacyID] = c.ID
		tr.Imported++
	}
	return nil
}

func (im *Importer) importProducts(ctx context.Context, rows []Row, tr *TableReport) error {
	for _, r := range rows {
		vendorID, ok := im.vendorOf(r)
		if !ok {
			skip(ctx, tr, r, "unresolved vendor", nil)
			continue
		}
		legacyID, _ := r.int("id")
		p := &inventory.Product{
			VendorID:  vendorID,
			Name:      r.str("name", "product_name"),
			SKU:       r.str("sku", "code"),
			Unit:      r.str("unit"),
			Price:     r.float("price", "selling_price"),
			CostPrice: r.float("cost_price", "purchase_price"),
			Created:   r.time("created_at"),
			Modified:  r.time("updated_at"),
		}
		if p.SKU == "" {
			p.SKU = "LEGACY-" + strconv.FormatInt(legacyID, 10)
		}
		if stock, ok := r.int("stock", "quantity", "stock_quantity"); ok {
			p.Stock = int(stock)
		}
		if level, ok := r.int("reorder_level", "min_stock", "low_stock_threshold"); ok {
			p.ReorderLevel = int(level)
		}
		if cat, ok := r.int("category_id"); ok {
			p.CategoryID = im.categories[cat]
		}
		out, err := im.store.RestoreProduct(p)
		if err != nil {
			skip(ctx, tr, r, "invalid product", err)
			continue
		}
		im.products[legacyID] = out.ID
		tr.Imported++
	}
	return nil
}

// items returns the order lines, from the JSON items column when present or
// else from the join table rows keyed by order.
func (im *Importer) items(r Row, joined map[int64][]Row) ([]inventory.OrderItem, error) {
	var lines []Row
	if raw := r.str("items", "order_items"); raw != "" {
		var objs []map[string]any
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&objs); err != nil {
			return nil, fmt.Errorf("bad items column: %w", err)
		}
		for _, o := range objs {
			lines = append(lines, NormalizeRow(o))
		}
	} else if id, ok := r.int("id"); ok {
		lines = joined[id]
	}
	items := make([]inventory.OrderItem, 0, len(lines))
	for _, l := range lines {
		legacyProduct, _ := l.int("product_id")
		productID, ok := im.products[legacyProduct]
		if !ok {
			return nil, fmt.Errorf("product %d not imported", legacyProduct)
		}
		qty, _ := l.int("quantity", "qty")
		items = append(items, inventory.OrderItem{
			ProductID: productID,
			Quantity:  int(qty),
			UnitPrice: l.float("unit_price", "price", "cost_price"),
		})
	}
	return items, nil
}

func (im *Importer) joined(ctx context.Context, name string, keys ...string) (map[int64][]Row, error) {
	rows, err := im.rows(ctx, name)
	if errors.Is(err, ErrNoTable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[int64][]Row{}
	for _, r := range rows {
		if id, ok := r.int(keys...); ok {
			out[id] = append(out[id], r)
		}
	}
	return out, nil
}

func purchaseStatus(s string) inventory.Status {
	switch strings.ToLower(s) {
	case "received", "completed", "delivered":
		return inventory.StatusReceived
	case "cancelled", "canceled":
		return inventory.StatusCancelled
	}
	return inventory.StatusPending
}

func salesStatus(s string) inventory.Status {
	switch strings.ToLower(s) {
	case "fulfilled", "completed", "shipped", "delivered":
		return inventory.StatusFulfilled
	case "cancelled", "canceled":
		return inventory.StatusCancelled
	}
	return inventory.StatusPending
}

func (im *Importer) importPurchases(ctx context.Context, rows []Row, tr *TableReport) error {
	joined, err := im.joined(ctx, "purchase_items", "purchase_order_id", "order_id")
	if err != nil {
		return err
	}
	for _, r := range rows {
		vendorID, ok := im.vendorOf(r)
		if !ok {
			skip(ctx, tr, r, "unresolved vendor", nil)
			continue
		}
		items, err := im.items(r, joined)
		if err != nil {
			skip(ctx, tr, r, "unresolved items", err)
			continue
		}
		o := &inventory.PurchaseOrder{
			VendorID:     vendorID,
			Number:       r.str("order_number", "po_number", "number"),
			Supplier:     r.str("supplier", "supplier_name"),
			Items:        items,
			Total:        r.float("total", "total_amount"),
			Status:       purchaseStatus(r.str("status")),
			OrderDate:    r.time("order_date", "created_at"),
			ExpectedDate: r.time("expected_date", "expected_delivery"),
			ReceivedAt:   r.time("received_date", "received_at"),
			Notes:        r.str("notes"),
			Created:      r.time("created_at"),
			Modified:     r.time("updated_at"),
		}
		if _, err := im.store.RestorePurchaseOrder(o); err != nil {
			skip(ctx, tr, r, "invalid purchase order", err)
			continue
		}
		tr.Imported++
	}
	return nil
}

func (im *Importer) importSales(ctx context.Context, rows []Row, tr *TableReport) error {
	joined, err := im.joined(ctx, "sales_items", "sales_order_id", "order_id")
	if err != nil {
		return err
	}
	for _, r := range rows {
		vendorID, ok := im.vendorOf(r)
		if !ok {
			skip(ctx, tr, r, "unresolved vendor", nil)
			continue
		}
		items, err := im.items(r, joined)
		if err != nil {
			skip(ctx, tr, r, "unresolved items", err)
			continue
		}
		o := &inventory.SalesOrder{
			VendorID:    vendorID,
			Number:      r.str("order_number", "so_number", "number", "invoice_number"),
			Customer:    r.str("customer", "customer_name"),
			Items:       items,
			Total:       r.float("total", "total_amount"),
			Status:      salesStatus(r.str("status")),
			OrderDate:   r.time("order_date", "created_at"),
			FulfilledAt: r.time("fulfilled_at", "delivery_date"),
			Notes:       r.str("notes"),
			Created:     r.time("created_at"),
			Modified:    r.time("updated_at"),
		}
		if _, err := im.store.RestoreSalesOrder(o); err != nil {
			skip(ctx, tr, r, "invalid sales order", err)
			continue
		}
		tr.Imported++
	}
	return nil
}

func (im *Importer) importUsers(ctx context.Context, rows []Row, tr *TableReport) error {
	for _, r := range rows {
		u := &identity.User{
			Email:    r.str("email"),
			Name:     r.str("name", "full_name", "username"),
			Role:     identity.Role(strings.ToLower(r.str("role"))),
			Created:  r.time("created_at"),
			Modified: r.time("updated_at"),
		}
		if _, ok := r.int("vendor_id"); ok {
			vendorID, ok := im.vendorOf(r)
			if !ok {
				skip(ctx, tr, r, "unresolved vendor", nil)
				continue
			}
			u.VendorID = vendorID
		}
		// Only bcrypt hashes carry over; others must reset their password.
		hash := r.str("password", "password_hash")
		if !strings.HasPrefix(hash, "$2") {
			hash = ""
		}
		if _, err := im.users.Restore(u, hash); err != nil {
			skip(ctx, tr, r, "invalid user", err)
			continue
		}
		tr.Imported++
	}
	return nil
}
