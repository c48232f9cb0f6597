package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/corpora/internal/api"
	"github.com/veldt-labs/corpora/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, input service.QueryInput) ([]service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type QueryResponse struct {
	Results []service.QueryResult `json:"results"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MaxResults == 0 {
		req.MaxResults = 10
	}

	results, err := h.svc.Query(r.Context(), service.QueryInput{
		GroupID:    groupID,
		Query:      req.Query,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{Results: results})
}
