package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
)

// WriteJSON writes v as a JSON response.
func WriteJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// WriteError writes err in the standard error shape. Errors not carrying a
// status are reported as internal errors.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	resp := dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeInternal, Message: err.Error()}}
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		resp.Error.Code = ews.Code()
		if d := ews.Details(); len(d) > 0 {
			resp.Details = d
		}
	}
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", resp.Error.Code)
	} else {
		slog.DebugContext(ctx, "Request rejected", "err", err, "statusCode", statusCode, "code", resp.Error.Code)
	}
	WriteJSON(ctx, w, statusCode, resp)
}
