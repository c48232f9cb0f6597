package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/corpora/internal/api"
	"github.com/veldt-labs/corpora/internal/domain"
)

type SnapshotService interface {
	TriggerIngest(ctx context.Context, groupID string) (*domain.KnowledgeSnapshot, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*domain.KnowledgeSnapshot, error)
	ListSnapshots(ctx context.Context, groupID string) ([]*domain.KnowledgeSnapshot, error)
	ActivateSnapshot(ctx context.Context, snapshotID string) (*domain.KnowledgeGroup, error)
}

type SnapshotHandler struct {
	svc SnapshotService
}

func NewSnapshotHandler(svc SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{svc: svc}
}

type SnapshotSourceResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Location      string `json:"location"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type SnapshotResponse struct {
	ID        string                   `json:"id"`
	GroupID   string                   `json:"group_id"`
	Version   int64                    `json:"version"`
	Sources   []SnapshotSourceResponse `json:"sources"`
	CreatedAt string                   `json:"created_at"`
}

func snapshotToResponse(s *domain.KnowledgeSnapshot) *SnapshotResponse {
	sources := make([]SnapshotSourceResponse, 0, len(s.Sources))
	for id, src := range s.Sources {
		status := s.Status[id]
		sources = append(sources, SnapshotSourceResponse{
			ID:            src.SourceID,
			Name:          src.Name,
			Type:          string(src.SourceType),
			Location:      src.Location,
			State:         string(status.State),
			FailureReason: status.Reason,
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	return &SnapshotResponse{
		ID:        s.SnapshotID(),
		GroupID:   s.GroupID,
		Version:   s.Version,
		Sources:   sources,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// TriggerIngest creates a new snapshot and starts background ingestion.
// Responds 202 immediately; clients poll the snapshot for per-source state.
func (h *SnapshotHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	snapshot, err := h.svc.TriggerIngest(r.Context(), groupID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, snapshotToResponse(snapshot))
}

func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")

	snapshot, err := h.svc.GetSnapshot(r.Context(), snapshotID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, snapshotToResponse(snapshot))
}

func (h *SnapshotHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	snapshots, err := h.svc.ListSnapshots(r.Context(), groupID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*SnapshotResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp = append(resp, snapshotToResponse(s))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *SnapshotHandler) Activate(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")

	group, err := h.svc.ActivateSnapshot(r.Context(), snapshotID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, groupToResponse(group))
}
