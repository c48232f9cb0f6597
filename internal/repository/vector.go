package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/service"
)

// VectorRepository persists chunk embeddings and serves similarity search.
type VectorRepository struct {
	pool *pgxpool.Pool
}

func NewVectorRepository(pool *pgxpool.Pool) *VectorRepository {
	return &VectorRepository{pool: pool}
}

func (r *VectorRepository) InsertBatch(ctx context.Context, vectors []*domain.KnowledgeVector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := r.insertAll(ctx, vectors); err != nil {
		if isRetryableConn(err) {
			return domain.Transient(err)
		}
		return err
	}
	return nil
}

func (r *VectorRepository) insertAll(ctx context.Context, vectors []*domain.KnowledgeVector) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, v := range vectors {
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_vectors
				(id, snapshot_id, source_id, content, embedding, chunk_file, chunk_index, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			v.ID, v.SnapshotID, v.SourceID, v.Content, pgvector.NewVector(v.Embedding), v.ChunkFile, v.ChunkIndex, v.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteBySource removes all vectors a source contributed to a snapshot.
// Used before re-ingesting a source so a retried run never duplicates rows.
func (r *VectorRepository) DeleteBySource(ctx context.Context, snapshotID, sourceID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_vectors WHERE snapshot_id = $1 AND source_id = $2`,
		snapshotID, sourceID,
	)
	if err != nil && isRetryableConn(err) {
		return domain.Transient(err)
	}
	return err
}

// DeleteSnapshot removes every vector of a snapshot. The core never calls
// this on its own; retention tooling does when pruning superseded snapshots.
func (r *VectorRepository) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM knowledge_vectors WHERE snapshot_id = $1`,
		snapshotID,
	)
	return err
}

func (r *VectorRepository) SimilaritySearch(ctx context.Context, snapshotID string, embedding []float32, limit int) ([]*service.VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT source_id, content, chunk_file, chunk_index, embedding <=> $1 AS distance
		 FROM knowledge_vectors
		 WHERE snapshot_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, snapshotID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.VectorMatch, 0)
	for rows.Next() {
		var m service.VectorMatch
		var distance float64
		if err := rows.Scan(&m.SourceID, &m.Content, &m.ChunkFile, &m.ChunkIndex, &distance); err != nil {
			return nil, err
		}
		m.Distance = float32(distance)
		results = append(results, &m)
	}

	return results, rows.Err()
}
