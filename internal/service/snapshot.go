package service

import (
	"context"
	"log"
	"time"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/telemetry"
)

// SnapshotRepository defines the metadata-store interface for snapshots.
type SnapshotRepository interface {
	// CreateFromGroup persists a snapshot at the next version for the group.
	// The version assignment is atomic: two concurrent calls for the same
	// group yield distinct, consecutive versions.
	CreateFromGroup(ctx context.Context, group *domain.KnowledgeGroup, now time.Time) (*domain.KnowledgeSnapshot, error)
	GetByID(ctx context.Context, snapshotID string) (*domain.KnowledgeSnapshot, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.KnowledgeSnapshot, error)
	// UpdateSourceStatus applies a pending-to-terminal transition for one
	// source. Repeating the same terminal state is a no-op; a conflicting
	// terminal state returns domain.ErrStatusTransition.
	UpdateSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error
}

// PipelineStarter launches background ingestion for a freshly created
// snapshot.
type PipelineStarter interface {
	Start(snapshot *domain.KnowledgeSnapshot)
}

// SnapshotManager creates snapshots, tracks per-source ingestion status and
// controls which snapshot serves queries.
type SnapshotManager struct {
	groups    GroupRepository
	snapshots SnapshotRepository
	pipeline  PipelineStarter
}

// NewSnapshotManager creates a new SnapshotManager instance
func NewSnapshotManager(groups GroupRepository, snapshots SnapshotRepository, pipeline PipelineStarter) *SnapshotManager {
	return &SnapshotManager{
		groups:    groups,
		snapshots: snapshots,
		pipeline:  pipeline,
	}
}

// TriggerIngest freezes the group's current sources into a new snapshot and
// starts the ingestion pipeline for it. Returns immediately after the
// snapshot record exists; ingestion proceeds in the background.
func (s *SnapshotManager) TriggerIngest(ctx context.Context, groupID string) (*domain.KnowledgeSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "SnapshotManager.TriggerIngest", telemetry.SpanAttributes{
		GroupID:   groupID,
		Operation: "trigger_ingest",
	})
	defer span.End()

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if len(group.Sources) == 0 {
		return nil, domain.ErrEmptyGroup
	}

	snapshot, err := s.snapshots.CreateFromGroup(ctx, group, time.Now().UTC())
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	log.Printf("ingest: snapshot %s created for group %s (%d sources)",
		snapshot.SnapshotID(), groupID, len(snapshot.Sources))

	s.pipeline.Start(snapshot)

	return snapshot, nil
}

// GetSnapshot retrieves a snapshot with its per-source statuses
func (s *SnapshotManager) GetSnapshot(ctx context.Context, snapshotID string) (*domain.KnowledgeSnapshot, error) {
	if _, _, err := domain.ParseSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	return s.snapshots.GetByID(ctx, snapshotID)
}

// ListSnapshots retrieves all snapshots of a group, newest version first
func (s *SnapshotManager) ListSnapshots(ctx context.Context, groupID string) ([]*domain.KnowledgeSnapshot, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.snapshots.ListByGroup(ctx, groupID)
}

// ActivateSnapshot points the owning group's active snapshot at the given
// snapshot. The snapshot may be activated regardless of per-source outcome;
// callers decide whether a partially failed snapshot is acceptable.
func (s *SnapshotManager) ActivateSnapshot(ctx context.Context, snapshotID string) (*domain.KnowledgeGroup, error) {
	ctx, span := telemetry.StartSpan(ctx, "SnapshotManager.ActivateSnapshot", telemetry.SpanAttributes{
		SnapshotID: snapshotID,
		Operation:  "activate_snapshot",
	})
	defer span.End()

	snapshot, err := s.snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	if err := s.groups.SetActiveSnapshot(ctx, snapshot.GroupID, snapshot.SnapshotID(), time.Now().UTC()); err != nil {
		span.SetError(err)
		return nil, err
	}

	return s.groups.GetByID(ctx, snapshot.GroupID)
}

// RecordSourceStatus marks a source's ingestion outcome on a snapshot. Used
// by the ingestion pipeline once a source reaches a terminal state.
func (s *SnapshotManager) RecordSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error {
	return s.snapshots.UpdateSourceStatus(ctx, snapshotID, sourceID, status)
}
