package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/pagination"
)

// MockGroupRepository is a mock implementation of GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, g *domain.KnowledgeGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeGroup), args.Error(1)
}

func (m *MockGroupRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*GroupPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GroupPageResult), args.Error(1)
}

func (m *MockGroupRepository) AddSource(ctx context.Context, groupID string, src domain.KnowledgeSource, updatedAt time.Time) error {
	args := m.Called(ctx, groupID, src, updatedAt)
	return args.Error(0)
}

func (m *MockGroupRepository) SetActiveSnapshot(ctx context.Context, groupID, snapshotID string, updatedAt time.Time) error {
	args := m.Called(ctx, groupID, snapshotID, updatedAt)
	return args.Error(0)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) CreateFromGroup(ctx context.Context, group *domain.KnowledgeGroup, now time.Time) (*domain.KnowledgeSnapshot, error) {
	args := m.Called(ctx, group, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, snapshotID string) (*domain.KnowledgeSnapshot, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.KnowledgeSnapshot, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) UpdateSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error {
	args := m.Called(ctx, snapshotID, sourceID, status)
	return args.Error(0)
}

// MockPipelineStarter is a mock implementation of PipelineStarter
type MockPipelineStarter struct {
	mock.Mock
}

func (m *MockPipelineStarter) Start(snapshot *domain.KnowledgeSnapshot) {
	m.Called(snapshot)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVectorSearcher is a mock implementation of VectorSearcher
type MockVectorSearcher struct {
	mock.Mock
}

func (m *MockVectorSearcher) SimilaritySearch(ctx context.Context, snapshotID string, embedding []float32, limit int) ([]*VectorMatch, error) {
	args := m.Called(ctx, snapshotID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*VectorMatch), args.Error(1)
}
