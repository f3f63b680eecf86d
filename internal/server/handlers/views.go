package handlers

import (
	"context"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// ViewHandler serves the column presets.
type ViewHandler struct {
	svc *Services
}

// NewViewHandler creates a new view handler.
func NewViewHandler(svc *Services) *ViewHandler {
	return &ViewHandler{svc: svc}
}

// ListViews lists the view of every table resource.
func (h *ViewHandler) ListViews(ctx context.Context, user *identity.User, req *dto.EmptyRequest) (*dto.ListViewsResponse, error) {
	out := &dto.ListViewsResponse{Views: make([]dto.ViewSummary, 0, len(TableResources))}
	for _, name := range TableResources {
		p, err := h.svc.view(name)
		if err != nil {
			return nil, err
		}
		out.Views = append(out.Views, dto.ViewSummary{Name: name, Title: p.Title})
	}
	return out, nil
}

// GetView returns one preset.
func (h *ViewHandler) GetView(ctx context.Context, user *identity.User, req *dto.GetViewRequest) (*dto.ViewResponse, error) {
	p, err := h.svc.view(req.Name)
	if err != nil {
		return nil, err
	}
	resp := &dto.ViewResponse{
		Name:         req.Name,
		Title:        p.Title,
		PageSize:     p.PageSize,
		EmptyMessage: p.EmptyMessage,
		Columns:      viewColumns(p, nil),
	}
	if p.Sort != nil {
		resp.Sort = &dto.SortState{Key: p.Sort.Key, Dir: p.Sort.Dir}
	}
	return resp, nil
}
