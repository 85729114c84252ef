package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/akolanti/GoIngest/internal/adapter"
)

func (h *Handlers) writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// status is already written
		h.logger.Error("Error encoding response", "error", err)
	}
}

func (h *Handlers) validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		h.logger.Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func (h *Handlers) WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	h.writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// WriteErrorResponse is used where no handler is in scope, such as middleware.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	_ = json.NewEncoder(w).Encode(adapter.BadRequest(id, error, httpCode))
}
