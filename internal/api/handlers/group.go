package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/corpora/internal/api"
	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/service"
)

type GroupService interface {
	CreateGroup(ctx context.Context, input service.CreateGroupInput) (*domain.KnowledgeGroup, error)
	GetGroup(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error)
	ListGroups(ctx context.Context, input service.ListGroupsInput) (*service.ListGroupsOutput, error)
	AddSource(ctx context.Context, groupID string, input service.SourceInput) (domain.KnowledgeSource, error)
}

type GroupHandler struct {
	svc GroupService
}

func NewGroupHandler(svc GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type SourceRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

type CreateGroupRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Sources     []SourceRequest `json:"sources"`
}

type SourceResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

type GroupResponse struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Owner          string           `json:"owner"`
	ActiveSnapshot string           `json:"active_snapshot,omitempty"`
	Sources        []SourceResponse `json:"sources"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type ListGroupsResponse struct {
	Items   []*GroupResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func groupToResponse(g *domain.KnowledgeGroup) *GroupResponse {
	sources := make([]SourceResponse, 0, len(g.Sources))
	for _, src := range g.Sources {
		sources = append(sources, SourceResponse{
			ID:       src.SourceID,
			Name:     src.Name,
			Type:     string(src.SourceType),
			Location: src.Location,
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	return &GroupResponse{
		ID:             g.GroupID,
		Name:           g.Name,
		Description:    g.Description,
		Owner:          g.Owner,
		ActiveSnapshot: g.ActiveSnapshot,
		Sources:        sources,
		CreatedAt:      g.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      g.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
	}
	for _, s := range req.Sources {
		input.Sources = append(input.Sources, service.SourceInput{
			Name:     s.Name,
			Type:     s.Type,
			Location: s.Location,
		})
	}

	group, err := h.svc.CreateGroup(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, groupToResponse(group))
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	group, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, groupToResponse(group))
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	out, err := h.svc.ListGroups(r.Context(), service.ListGroupsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ListGroupsResponse{
		Items:   make([]*GroupResponse, 0, len(out.Items)),
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	}
	for _, g := range out.Items {
		resp.Items = append(resp.Items, groupToResponse(g))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *GroupHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	src, err := h.svc.AddSource(r.Context(), groupID, service.SourceInput{
		Name:     req.Name,
		Type:     req.Type,
		Location: req.Location,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, SourceResponse{
		ID:       src.SourceID,
		Name:     src.Name,
		Type:     string(src.SourceType),
		Location: src.Location,
	})
}
