package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/metrics"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
	"github.com/vyaparitrack/vyaparitrack/internal/table"
	"github.com/vyaparitrack/vyaparitrack/internal/viewcfg"
)

// TableHandler renders resources through the table engine using the view
// presets.
type TableHandler struct {
	svc        *Services
	vendors    *VendorHandler
	categories *CategoryHandler
	products   *ProductHandler
	orders     *OrderHandler
	users      *UserHandler
}

// NewTableHandler creates a table handler reading collections through the
// resource handlers.
func NewTableHandler(svc *Services, vendors *VendorHandler, categories *CategoryHandler, products *ProductHandler, orders *OrderHandler, users *UserHandler) *TableHandler {
	return &TableHandler{svc: svc, vendors: vendors, categories: categories, products: products, orders: orders, users: users}
}

// TableResources lists the resources served by the table endpoint.
var TableResources = []string{"vendors", "categories", "products", "purchase-orders", "sales-orders", "users"}

// resourceSchema derives the columns and field names of a resource from the
// list item type the table rows are built from.
type resourceSchema struct {
	columns func() ([]table.Column, error)
	keys    func() ([]string, error)
}

func schemaOf[T any]() resourceSchema {
	return resourceSchema{columns: sync.OnceValues(viewcfg.ColumnsFor[T]), keys: viewcfg.KeysFor[T]}
}

var resourceSchemas = map[string]resourceSchema{
	"vendors":         schemaOf[dto.VendorResponse](),
	"categories":      schemaOf[dto.CategoryResponse](),
	"products":        schemaOf[dto.ProductResponse](),
	"purchase-orders": schemaOf[dto.PurchaseOrderResponse](),
	"sales-orders":    schemaOf[dto.SalesOrderResponse](),
	"users":           schemaOf[dto.UserResponse](),
}

// CheckViews fails when a preset names an unknown resource or a column that
// is not a field of the resource's records.
func CheckViews(views *viewcfg.Presets) error {
	known := make(map[string][]string, len(resourceSchemas))
	for name, s := range resourceSchemas {
		keys, err := s.keys()
		if err != nil {
			return fmt.Errorf("resource %q: %w", name, err)
		}
		known[name] = keys
	}
	return views.CheckResources(known)
}

// view returns the preset of resource. A resource without one gets a preset
// derived from its record type.
func (s *Services) view(resource string) (*viewcfg.Preset, error) {
	if p, ok := s.Views.Get(resource); ok {
		return p, nil
	}
	rs, ok := resourceSchemas[resource]
	if !ok {
		return nil, dto.NotFound("view")
	}
	cols, err := rs.columns()
	if err != nil {
		return nil, dto.InternalWithError("Failed to derive view", err)
	}
	return viewcfg.Derived(resource, cols), nil
}

// Table returns the handler rendering one page of resource.
func (h *TableHandler) Table(resource string) func(context.Context, ksid.ID, *identity.User, *dto.TableRequest) (*dto.TableResponse, error) {
	return func(ctx context.Context, scope ksid.ID, user *identity.User, req *dto.TableRequest) (*dto.TableResponse, error) {
		preset, err := h.svc.view(resource)
		if err != nil {
			return nil, err
		}
		records, err := h.records(ctx, scope, user, resource)
		if err != nil {
			return nil, err
		}
		metrics.TableSourceRows.WithLabelValues(resource).Observe(float64(len(records)))
		e := preset.NewEngine()
		e.SetRecords(records)
		q := table.Query{
			Search:   req.Search,
			Filters:  req.Filters,
			Sort:     req.Sort,
			PageSize: req.PageSize,
			Page:     req.Page,
			Hide:     req.Hide,
		}
		if req.Dir != "" {
			q.Dir = table.ParseDirection(req.Dir)
		}
		q.Apply(e)
		page := e.VisiblePage()
		outcome := "rows"
		if len(page.Rows) == 0 {
			outcome = "empty"
			if e.SearchTerm() != "" || page.ActiveFilters > 0 {
				outcome = "no_match"
			}
		}
		metrics.TableQueries.WithLabelValues(resource, outcome).Inc()
		return tableResponse(resource, preset, e, page), nil
	}
}

// records loads the collection of resource as generic records, with the
// same fields the list endpoints return.
func (h *TableHandler) records(ctx context.Context, scope ksid.ID, user *identity.User, resource string) ([]table.Record, error) {
	empty := &dto.EmptyRequest{}
	var items any
	switch resource {
	case "vendors":
		r, err := h.vendors.ListVendors(ctx, scope, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	case "categories":
		r, err := h.categories.ListCategories(ctx, scope, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	case "products":
		r, err := h.products.ListProducts(ctx, scope, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	case "purchase-orders":
		r, err := h.orders.ListPurchaseOrders(ctx, scope, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	case "sales-orders":
		r, err := h.orders.ListSalesOrders(ctx, scope, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	case "users":
		if !user.Role.AtLeast(identity.RoleAdmin) {
			return nil, dto.Forbidden("admin role required")
		}
		r, err := h.users.ListUsers(ctx, user, empty)
		if err != nil {
			return nil, err
		}
		items = r.Items
	default:
		return nil, dto.NotFound("resource")
	}
	return ToRecords(items)
}

// ToRecords converts a slice of JSON-serializable values to records keyed
// by their JSON field names.
func ToRecords(items any) ([]table.Record, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, dto.InternalWithError("Failed to encode records", err)
	}
	var out []table.Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, dto.InternalWithError("Failed to decode records", err)
	}
	if out == nil {
		out = []table.Record{}
	}
	return out, nil
}

func tableResponse(resource string, preset *viewcfg.Preset, e *table.Engine, page table.Page) *dto.TableResponse {
	resp := &dto.TableResponse{
		Resource: resource,
		Title:    preset.Title,
		Columns:  viewColumns(preset, e.IsVisible),
		Rows:     make([]dto.TableRow, 0, len(page.Rows)),
		Pagination: dto.PaginationState{
			Page:       page.Pagination.Page,
			PageSize:   page.Pagination.PageSize,
			TotalItems: page.Pagination.TotalItems,
			TotalPages: page.Pagination.TotalPages,
			HasPrev:    page.Pagination.HasPrev(),
			HasNext:    page.Pagination.HasNext(),
		},
		Sort:          dto.SortState{Key: page.Sort.Key, Dir: string(page.Sort.Dir)},
		Search:        e.SearchTerm(),
		ActiveFilters: page.ActiveFilters,
		Empty:         page.Empty,
	}
	for _, r := range page.Rows {
		row := dto.TableRow{ID: r.Key, Values: make(map[string]any, len(r.Cells)), Cells: make([]dto.TableCell, len(r.Cells))}
		for i, c := range r.Cells {
			row.Values[c.Key] = c.Value
			row.Cells[i] = dto.TableCell{Key: c.Key, Text: c.Text, Class: c.Class}
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

// viewColumns describes the preset columns. visible overrides the preset
// visibility when not nil.
func viewColumns(preset *viewcfg.Preset, visible func(string) bool) []dto.ViewColumn {
	cols := preset.TableColumns()
	out := make([]dto.ViewColumn, len(cols))
	for i, c := range cols {
		cfg := &preset.Columns[i]
		v := cfg.IsVisible()
		if visible != nil {
			v = visible(c.Key)
		}
		out[i] = dto.ViewColumn{
			Key:        c.Key,
			Header:     c.Header,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Class:      c.Class,
			Render:     cfg.Render,
			Visible:    v,
		}
	}
	return out
}
