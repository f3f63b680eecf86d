package handlers

import (
	"context"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a health handler reporting version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req *dto.EmptyRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Version: h.version}, nil
}
