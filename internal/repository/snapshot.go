package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-labs/corpora/internal/domain"
)

// SnapshotRepository persists snapshots and their frozen source copies.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// createAttempts bounds the retry loop for concurrent version assignment.
const createAttempts = 3

// CreateFromGroup assigns the next version for the group and persists the
// snapshot with frozen source copies, all pending. The unique index on
// (group_id, version) makes the increment race-free: a concurrent writer
// taking the same version fails the insert and this call retries with a
// fresh read, so versions stay gapless and consecutive.
func (r *SnapshotRepository) CreateFromGroup(ctx context.Context, group *domain.KnowledgeGroup, now time.Time) (*domain.KnowledgeSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		snapshot, err := r.tryCreate(ctx, group, now)
		if err == nil {
			return snapshot, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrVersionConflict, lastErr)
}

func (r *SnapshotRepository) tryCreate(ctx context.Context, group *domain.KnowledgeGroup, now time.Time) (*domain.KnowledgeSnapshot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM knowledge_snapshots WHERE group_id = $1`,
		group.GroupID,
	).Scan(&version)
	if err != nil {
		return nil, err
	}

	snapshot := domain.NewSnapshotFromGroup(group, version, now)

	_, err = tx.Exec(ctx,
		`INSERT INTO knowledge_snapshots (id, group_id, version, created_at)
		 VALUES ($1, $2, $3, $4)`,
		snapshot.SnapshotID(), snapshot.GroupID, snapshot.Version, snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for id, src := range snapshot.Sources {
		_, err = tx.Exec(ctx,
			`INSERT INTO snapshot_sources (snapshot_id, source_id, name, source_type, location, state, failure_reason)
			 VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
			snapshot.SnapshotID(), id, src.Name, src.SourceType, src.Location, domain.SourceStatePending,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, snapshotID string) (*domain.KnowledgeSnapshot, error) {
	var s domain.KnowledgeSnapshot
	err := r.pool.QueryRow(ctx,
		`SELECT group_id, version, created_at
		 FROM knowledge_snapshots WHERE id = $1`,
		snapshotID,
	).Scan(&s.GroupID, &s.Version, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	s.Sources, s.Status, err = r.loadSnapshotSources(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SnapshotRepository) loadSnapshotSources(ctx context.Context, snapshotID string) (map[string]domain.KnowledgeSource, map[string]domain.SourceStatus, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source_id, name, source_type, location, state, failure_reason
		 FROM snapshot_sources WHERE snapshot_id = $1`,
		snapshotID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	sources := make(map[string]domain.KnowledgeSource)
	statuses := make(map[string]domain.SourceStatus)
	for rows.Next() {
		var src domain.KnowledgeSource
		var status domain.SourceStatus
		var reason *string
		if err := rows.Scan(&src.SourceID, &src.Name, &src.SourceType, &src.Location, &status.State, &reason); err != nil {
			return nil, nil, err
		}
		if reason != nil {
			status.Reason = *reason
		}
		sources[src.SourceID] = src
		statuses[src.SourceID] = status
	}
	return sources, statuses, rows.Err()
}

func (r *SnapshotRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.KnowledgeSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_id, version, created_at
		 FROM knowledge_snapshots WHERE group_id = $1 ORDER BY version DESC`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.KnowledgeSnapshot
	var ids []string
	for rows.Next() {
		var s domain.KnowledgeSnapshot
		var id string
		if err := rows.Scan(&id, &s.GroupID, &s.Version, &s.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &s)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, s := range snapshots {
		if s.Sources, s.Status, err = r.loadSnapshotSources(ctx, ids[i]); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

// UpdateSourceStatus applies a pending-to-terminal transition. Only pending
// rows are updated; when no row changes, the current state decides between
// an idempotent no-op and a transition conflict.
func (r *SnapshotRepository) UpdateSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error {
	if !status.Terminal() {
		return domain.ErrStatusTransition
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE snapshot_sources SET state = $1, failure_reason = $2
		 WHERE snapshot_id = $3 AND source_id = $4 AND state = $5`,
		status.State, nullableString(status.Reason), snapshotID, sourceID, domain.SourceStatePending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var current domain.SourceState
	err = r.pool.QueryRow(ctx,
		`SELECT state FROM snapshot_sources WHERE snapshot_id = $1 AND source_id = $2`,
		snapshotID, sourceID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSnapshotNotFound
		}
		return err
	}
	_, err = domain.TransitionStatus(domain.SourceStatus{State: current}, status)
	return err
}
