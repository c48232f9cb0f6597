package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/pagination"
	"github.com/veldt-labs/corpora/internal/service"
)

// GroupRepository persists knowledge groups and their source definitions.
type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) Create(ctx context.Context, g *domain.KnowledgeGroup) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO knowledge_groups (id, name, description, owner, active_snapshot, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.GroupID, g.Name, g.Description, g.Owner, nullableString(g.ActiveSnapshot), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, src := range g.Sources {
		if err := insertSource(ctx, tx, g.GroupID, src); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertSource(ctx context.Context, db dbtx, groupID string, src domain.KnowledgeSource) error {
	_, err := db.Exec(ctx,
		`INSERT INTO knowledge_sources (id, group_id, name, source_type, location)
		 VALUES ($1, $2, $3, $4, $5)`,
		src.SourceID, groupID, src.Name, src.SourceType, src.Location,
	)
	if isUniqueViolation(err) {
		return domain.ErrSourceAlreadyExists
	}
	return err
}

func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error) {
	var g domain.KnowledgeGroup
	var activeSnapshot *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, owner, active_snapshot, created_at, updated_at
		 FROM knowledge_groups WHERE id = $1`,
		groupID,
	).Scan(&g.GroupID, &g.Name, &g.Description, &g.Owner, &activeSnapshot, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	if activeSnapshot != nil {
		g.ActiveSnapshot = *activeSnapshot
	}

	g.Sources, err = r.loadSources(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) loadSources(ctx context.Context, groupID string) (map[string]domain.KnowledgeSource, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, source_type, location
		 FROM knowledge_sources WHERE group_id = $1`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make(map[string]domain.KnowledgeSource)
	for rows.Next() {
		var src domain.KnowledgeSource
		if err := rows.Scan(&src.SourceID, &src.Name, &src.SourceType, &src.Location); err != nil {
			return nil, err
		}
		sources[src.SourceID] = src
	}
	return sources, rows.Err()
}

func (r *GroupRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.GroupPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT id, name, description, owner, active_snapshot, created_at, updated_at
			 FROM knowledge_groups
			 WHERE (updated_at, id) < ($1, $2)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, name, description, owner, active_snapshot, created_at, updated_at
			 FROM knowledge_groups
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.KnowledgeGroup
	for rows.Next() {
		var g domain.KnowledgeGroup
		var activeSnapshot *string
		if err := rows.Scan(&g.GroupID, &g.Name, &g.Description, &g.Owner, &activeSnapshot, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if activeSnapshot != nil {
			g.ActiveSnapshot = *activeSnapshot
		}
		items = append(items, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	for _, g := range items {
		if g.Sources, err = r.loadSources(ctx, g.GroupID); err != nil {
			return nil, err
		}
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.GroupID, lastItem.UpdatedAt)
	}

	return &service.GroupPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// AddSource appends one source to an existing group. The unique index on
// (group_id, name) rejects a concurrent add with the same name.
func (r *GroupRepository) AddSource(ctx context.Context, groupID string, src domain.KnowledgeSource, updatedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE knowledge_groups SET updated_at = $1 WHERE id = $2`,
		updatedAt, groupID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}

	if err := insertSource(ctx, tx, groupID, src); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *GroupRepository) SetActiveSnapshot(ctx context.Context, groupID, snapshotID string, updatedAt time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE knowledge_groups SET active_snapshot = $1, updated_at = $2 WHERE id = $3`,
		snapshotID, updatedAt, groupID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}
