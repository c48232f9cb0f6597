package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/corpora/internal/domain"
)

func TestQueryEngine_Query(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*MockGroupRepository, *MockSnapshotRepository, *MockEmbeddingClient, *MockVectorSearcher, *QueryEngine, *domain.KnowledgeGroup, *domain.KnowledgeSnapshot) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		mockEmbedder := new(MockEmbeddingClient)
		mockVectors := new(MockVectorSearcher)
		engine := NewQueryEngine(mockGroups, mockSnapshots, mockEmbedder, mockVectors)

		group := groupWithSources(t, "faq")
		snapshot := domain.NewSnapshotFromGroup(group, 1, time.Now().UTC())
		group.ActiveSnapshot = snapshot.SnapshotID()
		return mockGroups, mockSnapshots, mockEmbedder, mockVectors, engine, group, snapshot
	}

	t.Run("returns hits enriched from the snapshot's frozen sources", func(t *testing.T) {
		mockGroups, mockSnapshots, mockEmbedder, mockVectors, engine, group, snapshot := setup(t)

		var faqID string
		for id := range snapshot.Sources {
			faqID = id
		}

		embedding := []float32{0.1, 0.2, 0.3}
		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)
		mockSnapshots.On("GetByID", mock.Anything, snapshot.SnapshotID()).Return(snapshot, nil)
		mockEmbedder.On("Embed", mock.Anything, []string{"reset password"}).Return([][]float32{embedding}, nil)
		mockVectors.On("SimilaritySearch", mock.Anything, snapshot.SnapshotID(), embedding, 5).Return([]*VectorMatch{
			{SourceID: faqID, Content: "To reset your password...", ChunkFile: "faq/auth.jsonl", ChunkIndex: 2, Distance: 0.25},
		}, nil)

		results, err := engine.Query(ctx, QueryInput{
			GroupID:    group.GroupID,
			Query:      "reset password",
			MaxResults: 5,
		})

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "To reset your password...", results[0].Content)
		assert.Equal(t, "faq", results[0].SourceName)
		assert.Equal(t, "s3://corpora/faq", results[0].SourceLocation)
		assert.Equal(t, "faq/auth.jsonl", results[0].ChunkFile)
		assert.Equal(t, 2, results[0].ChunkIndex)
		assert.InDelta(t, 0.8, results[0].Score, 1e-6)
	})

	t.Run("drops hits whose source is absent from the snapshot", func(t *testing.T) {
		mockGroups, mockSnapshots, mockEmbedder, mockVectors, engine, group, snapshot := setup(t)

		var faqID string
		for id := range snapshot.Sources {
			faqID = id
		}

		embedding := []float32{0.5}
		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)
		mockSnapshots.On("GetByID", mock.Anything, snapshot.SnapshotID()).Return(snapshot, nil)
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{embedding}, nil)
		mockVectors.On("SimilaritySearch", mock.Anything, snapshot.SnapshotID(), embedding, 3).Return([]*VectorMatch{
			{SourceID: "ks_notinsnapsho", Content: "stale", Distance: 0.1},
			{SourceID: faqID, Content: "kept", Distance: 0.4},
		}, nil)

		results, err := engine.Query(ctx, QueryInput{
			GroupID:    group.GroupID,
			Query:      "anything",
			MaxResults: 3,
		})

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "kept", results[0].Content)
	})

	t.Run("rejects blank query text", func(t *testing.T) {
		_, _, _, _, engine, group, _ := setup(t)

		_, err := engine.Query(ctx, QueryInput{GroupID: group.GroupID, Query: "", MaxResults: 5})

		require.Error(t, err)
		var derr *domain.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.ErrCodeValidation, derr.Code)
	})

	t.Run("rejects non-positive max results", func(t *testing.T) {
		_, _, _, _, engine, group, _ := setup(t)

		_, err := engine.Query(ctx, QueryInput{GroupID: group.GroupID, Query: "q", MaxResults: 0})

		require.Error(t, err)
	})

	t.Run("fails when the group has no active snapshot", func(t *testing.T) {
		mockGroups, _, mockEmbedder, _, engine, group, _ := setup(t)
		group.ActiveSnapshot = ""

		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)

		_, err := engine.Query(ctx, QueryInput{GroupID: group.GroupID, Query: "q", MaxResults: 5})

		require.ErrorIs(t, err, domain.ErrNoActiveSnapshot)
		mockEmbedder.AssertNotCalled(t, "Embed")
	})

	t.Run("wraps embedding failures", func(t *testing.T) {
		mockGroups, mockSnapshots, mockEmbedder, mockVectors, engine, group, snapshot := setup(t)

		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)
		mockSnapshots.On("GetByID", mock.Anything, snapshot.SnapshotID()).Return(snapshot, nil)
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

		_, err := engine.Query(ctx, QueryInput{GroupID: group.GroupID, Query: "q", MaxResults: 5})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding query")
		mockVectors.AssertNotCalled(t, "SimilaritySearch")
	})
}
