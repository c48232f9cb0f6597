package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceState is the ingestion state of one source within a snapshot
type SourceState string

const (
	SourceStatePending   SourceState = "pending"
	SourceStateSucceeded SourceState = "succeeded"
	SourceStateFailed    SourceState = "failed"
)

// SourceStatus is the ingestion outcome for one source. Reason is set only
// for failed sources.
type SourceStatus struct {
	State  SourceState
	Reason string
}

// Terminal reports whether the status can no longer change.
func (s SourceStatus) Terminal() bool {
	return s.State == SourceStateSucceeded || s.State == SourceStateFailed
}

// StatusPending returns the initial ingestion status.
func StatusPending() SourceStatus {
	return SourceStatus{State: SourceStatePending}
}

// StatusSucceeded returns the success terminal status.
func StatusSucceeded() SourceStatus {
	return SourceStatus{State: SourceStateSucceeded}
}

// StatusFailed returns the failure terminal status carrying the reason.
func StatusFailed(reason string) SourceStatus {
	return SourceStatus{State: SourceStateFailed, Reason: reason}
}

// TransitionStatus enforces the one-way pending-to-terminal lifecycle.
// Pending may move to any terminal state. A repeat of the same terminal
// state is an idempotent no-op; an attempt to replace one terminal state
// with a different one returns ErrStatusTransition.
func TransitionStatus(current, next SourceStatus) (SourceStatus, error) {
	if !next.Terminal() {
		return current, ErrStatusTransition
	}
	if current.State == SourceStatePending {
		return next, nil
	}
	if current.State == next.State {
		return current, nil
	}
	return current, ErrStatusTransition
}

// KnowledgeSnapshot is an immutable, versioned capture of a group's sources
// plus the ingestion outcome. Versions for a group form a gapless increasing
// sequence starting at 1. Only the Status map mutates after creation, one
// entry at a time, from pending to a terminal state.
type KnowledgeSnapshot struct {
	GroupID   string
	Version   int64
	Sources   map[string]KnowledgeSource
	Status    map[string]SourceStatus
	CreatedAt time.Time
}

// SnapshotID derives the snapshot identifier "{group_id}_v{version}".
func (s *KnowledgeSnapshot) SnapshotID() string {
	return SnapshotID(s.GroupID, s.Version)
}

// SnapshotID builds the derived identifier for a group version.
func SnapshotID(groupID string, version int64) string {
	return fmt.Sprintf("%s_v%d", groupID, version)
}

// ParseSnapshotID splits a snapshot identifier into group ID and version.
func ParseSnapshotID(snapshotID string) (string, int64, error) {
	idx := strings.LastIndex(snapshotID, "_v")
	if idx <= 0 {
		return "", 0, NewValidationError("malformed snapshot ID")
	}
	version, err := strconv.ParseInt(snapshotID[idx+2:], 10, 64)
	if err != nil || version < 1 {
		return "", 0, NewValidationError("malformed snapshot ID")
	}
	return snapshotID[:idx], version, nil
}

// NewSnapshotFromGroup freezes the group's current sources into a snapshot
// at the given version, with every source pending. The source mapping is a
// value copy; later group edits never reach the snapshot.
func NewSnapshotFromGroup(g *KnowledgeGroup, version int64, now time.Time) *KnowledgeSnapshot {
	sources := g.CopySources()
	status := make(map[string]SourceStatus, len(sources))
	for id := range sources {
		status[id] = StatusPending()
	}
	return &KnowledgeSnapshot{
		GroupID:   g.GroupID,
		Version:   version,
		Sources:   sources,
		Status:    status,
		CreatedAt: now,
	}
}

// ValidateSnapshot validates a KnowledgeSnapshot instance
func ValidateSnapshot(s *KnowledgeSnapshot) error {
	if s == nil {
		return NewValidationError("snapshot cannot be nil")
	}
	if s.GroupID == "" {
		return NewValidationError("snapshot group ID is required")
	}
	if s.Version < 1 {
		return NewValidationError("snapshot version must be at least 1")
	}
	for id := range s.Status {
		if _, ok := s.Sources[id]; !ok {
			return NewValidationError("status entry without matching source")
		}
	}
	return nil
}
