package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/GoIngest/internal/adapter"
	"github.com/akolanti/GoIngest/internal/adapter/utils"
	"github.com/akolanti/GoIngest/internal/api"
	"github.com/akolanti/GoIngest/internal/rag"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

const maxSearchBodySize = 1 << 20

// Handlers serves the read side: retrieval and ingestion run status.
type Handlers struct {
	search rag.Service
	runs   RunLookup
	logger *logger_i.Logger
}

func New(search rag.Service, runs RunLookup) *Handlers {
	return &Handlers{
		search: search,
		runs:   runs,
		logger: logger_i.NewLogger("RequestHandler"),
	}
}

func (h *Handlers) GetHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// SearchHandler godoc
// @Summary      Search a knowledge base
// @Description  Embeds the query and returns the nearest chunks of the knowledge base.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        knowledgeId  path  string             true  "Knowledge base ID"
// @Param        request      body  api.SearchRequest  true  "Query text, optional section and top_k"
// @Success      200  {object}  api.SearchResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /knowledge/{knowledgeId}/search [post]
func (h *Handlers) SearchHandler(w http.ResponseWriter, request *http.Request) {
	if !h.validateContext(request.Context()) {
		h.logger.Warn("Invalid Context by request ", "remote", request.RemoteAddr)
		return
	}
	knowledgeId := utils.GetChiURLParam(request, "knowledgeId")

	var requestData api.SearchRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			h.logger.Error("Couldn't close the search handler reader", "error", err)
		}
	}(request.Body)
	if err := json.NewDecoder(io.LimitReader(request.Body, maxSearchBodySize)).Decode(&requestData); err != nil {
		h.logger.Warn("Bad search request", "error", err)
		h.WriteErrorResponse(w, http.StatusBadRequest, knowledgeId, "Bad Request")
		return
	}

	hits, err := h.search.Search(request.Context(), adapter.ToSearchQuery(knowledgeId, requestData))
	if err != nil {
		if errors.Is(err, rag.ErrInvalidQuery) {
			h.WriteErrorResponse(w, http.StatusBadRequest, knowledgeId, err.Error())
			return
		}
		h.logger.Error("Search failed", "knowledgeId", knowledgeId, "error", err)
		h.WriteErrorResponse(w, http.StatusInternalServerError, knowledgeId, "Search failed")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(hits))
}
