package handlers

import (
	"context"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// AuditHandler serves the change history of the data directory.
type AuditHandler struct {
	svc *Services
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(svc *Services) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// History lists the most recent changes, newest first.
func (h *AuditHandler) History(ctx context.Context, user *identity.User, req *dto.AuditRequest) (*dto.AuditResponse, error) {
	if h.svc.Audit == nil {
		return &dto.AuditResponse{Commits: []dto.CommitResponse{}}, nil
	}
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}
	commits, err := h.svc.Audit.History(ctx, limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to read history", err)
	}
	out := &dto.AuditResponse{Commits: make([]dto.CommitResponse, len(commits))}
	for i, c := range commits {
		out.Commits[i] = dto.CommitResponse{
			Hash:        c.Hash,
			Message:     c.Message,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			When:        c.When.Unix(),
			Files:       c.Files,
		}
	}
	return out, nil
}
