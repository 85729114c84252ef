package handlers

import (
	"context"
	"net/http"

	"github.com/akolanti/GoIngest/internal/adapter"
	"github.com/akolanti/GoIngest/internal/adapter/utils"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
)

// RunLookup finds the latest ingestion run of a document. *job.Service satisfies it.
type RunLookup interface {
	LatestForDocument(ctx context.Context, documentId string) (jobModel.Job, bool)
}

// GetIngestionRunHandler godoc
// @Summary      Latest ingestion run of a document
// @Tags         Ingestion
// @Produce      json
// @Param        documentId  path  string  true  "Document ID"
// @Success      200  {object}  api.IngestionRunResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{documentId}/ingestion [get]
func (h *Handlers) GetIngestionRunHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	documentId := utils.GetChiURLParam(r, "documentId")
	if documentId == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "", "documentId is required")
		return
	}

	result, isFound := h.runs.LatestForDocument(r.Context(), documentId)
	if !isFound {
		h.WriteErrorResponse(w, http.StatusNotFound, documentId, "No ingestion run for document")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToIngestionRunResponse(result))
}
