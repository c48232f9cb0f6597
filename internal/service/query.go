package service

import (
	"context"
	"fmt"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/telemetry"
)

// EmbeddingClient produces embedding vectors for text inputs.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorMatch is one nearest-neighbor hit from the vector store.
type VectorMatch struct {
	SourceID   string
	Content    string
	ChunkFile  string
	ChunkIndex int
	Distance   float32
}

// VectorSearcher retrieves vectors nearest to an embedding, scoped to a
// single snapshot.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, snapshotID string, embedding []float32, limit int) ([]*VectorMatch, error)
}

// QueryInput represents a similarity query against a group's active snapshot
type QueryInput struct {
	GroupID    string
	Query      string
	MaxResults int
}

// QueryResult is one enriched hit returned to the caller
type QueryResult struct {
	Content        string  `json:"content"`
	Score          float32 `json:"score"`
	SourceID       string  `json:"source_id"`
	SourceName     string  `json:"source_name"`
	SourceLocation string  `json:"source_location"`
	ChunkFile      string  `json:"chunk_file"`
	ChunkIndex     int     `json:"chunk_index"`
}

// QueryEngine answers similarity queries over a group's active snapshot,
// enriching hits from the snapshot's frozen source copies.
type QueryEngine struct {
	groups    GroupRepository
	snapshots SnapshotRepository
	embedder  EmbeddingClient
	vectors   VectorSearcher
}

// NewQueryEngine creates a new QueryEngine instance
func NewQueryEngine(groups GroupRepository, snapshots SnapshotRepository, embedder EmbeddingClient, vectors VectorSearcher) *QueryEngine {
	return &QueryEngine{
		groups:    groups,
		snapshots: snapshots,
		embedder:  embedder,
		vectors:   vectors,
	}
}

// Query embeds the query text, searches the group's active snapshot and
// returns hits enriched with the snapshot's frozen source metadata. Hits
// whose source no longer appears in the snapshot are dropped.
func (s *QueryEngine) Query(ctx context.Context, input QueryInput) ([]QueryResult, error) {
	if input.Query == "" {
		return nil, domain.NewValidationError("query text is required")
	}
	if input.MaxResults < 1 {
		return nil, domain.NewValidationError("max_results must be at least 1")
	}

	ctx, span := telemetry.StartSpan(ctx, "QueryEngine.Query", telemetry.SpanAttributes{
		GroupID:   input.GroupID,
		Operation: "query",
	})
	defer span.End()

	group, err := s.groups.GetByID(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}

	if group.ActiveSnapshot == "" {
		return nil, domain.ErrNoActiveSnapshot
	}

	snapshot, err := s.snapshots.GetByID(ctx, group.ActiveSnapshot)
	if err != nil {
		return nil, err
	}

	embeddings, err := s.embedder.Embed(ctx, []string{input.Query})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.vectors.SimilaritySearch(ctx, snapshot.SnapshotID(), embeddings[0], input.MaxResults)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	results := make([]QueryResult, 0, len(matches))
	for _, m := range matches {
		src, ok := snapshot.Sources[m.SourceID]
		if !ok {
			continue
		}
		results = append(results, QueryResult{
			Content:        m.Content,
			Score:          1 / (1 + m.Distance),
			SourceID:       m.SourceID,
			SourceName:     src.Name,
			SourceLocation: src.Location,
			ChunkFile:      m.ChunkFile,
			ChunkIndex:     m.ChunkIndex,
		})
	}

	return results, nil
}
