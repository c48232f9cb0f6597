package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/corpora/internal/domain"
)

func groupWithSources(t *testing.T, names ...string) *domain.KnowledgeGroup {
	t.Helper()
	g := domain.NewKnowledgeGroup("support-docs", "desc", "platform-team", time.Now().UTC())
	for _, name := range names {
		require.NoError(t, g.AddSource(domain.NewKnowledgeSource(name, domain.SourceTypePrechunkedBlob, "s3://corpora/"+name)))
	}
	return g
}

func TestSnapshotManager_TriggerIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes sources into a snapshot and starts the pipeline", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		mockPipeline := new(MockPipelineStarter)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, mockPipeline)

		group := groupWithSources(t, "faq", "manuals")
		snapshot := domain.NewSnapshotFromGroup(group, 1, time.Now().UTC())

		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)
		mockSnapshots.On("CreateFromGroup", mock.Anything, group, mock.Anything).Return(snapshot, nil)
		mockPipeline.On("Start", snapshot).Return()

		result, err := manager.TriggerIngest(ctx, group.GroupID)

		require.NoError(t, err)
		assert.Equal(t, group.GroupID+"_v1", result.SnapshotID())
		assert.Len(t, result.Sources, 2)
		for id, status := range result.Status {
			assert.Contains(t, result.Sources, id)
			assert.Equal(t, domain.SourceStatePending, status.State)
		}
		mockGroups.AssertExpectations(t)
		mockSnapshots.AssertExpectations(t)
		mockPipeline.AssertExpectations(t)
	})

	t.Run("rejects groups without sources", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		mockPipeline := new(MockPipelineStarter)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, mockPipeline)

		group := groupWithSources(t)
		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)

		_, err := manager.TriggerIngest(ctx, group.GroupID)

		require.ErrorIs(t, err, domain.ErrEmptyGroup)
		mockSnapshots.AssertNotCalled(t, "CreateFromGroup")
		mockPipeline.AssertNotCalled(t, "Start")
	})

	t.Run("propagates missing group", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		mockPipeline := new(MockPipelineStarter)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, mockPipeline)

		mockGroups.On("GetByID", mock.Anything, "kg_missing00000").Return(nil, domain.ErrGroupNotFound)

		_, err := manager.TriggerIngest(ctx, "kg_missing00000")

		require.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("does not start the pipeline when snapshot creation fails", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		mockPipeline := new(MockPipelineStarter)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, mockPipeline)

		group := groupWithSources(t, "faq")
		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(group, nil)
		mockSnapshots.On("CreateFromGroup", mock.Anything, group, mock.Anything).Return(nil, domain.ErrVersionConflict)

		_, err := manager.TriggerIngest(ctx, group.GroupID)

		require.ErrorIs(t, err, domain.ErrVersionConflict)
		mockPipeline.AssertNotCalled(t, "Start")
	})
}

func TestSnapshotManager_GetSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects malformed snapshot IDs before hitting the store", func(t *testing.T) {
		mockSnapshots := new(MockSnapshotRepository)
		manager := NewSnapshotManager(new(MockGroupRepository), mockSnapshots, new(MockPipelineStarter))

		_, err := manager.GetSnapshot(ctx, "not-a-snapshot-id")

		require.Error(t, err)
		mockSnapshots.AssertNotCalled(t, "GetByID")
	})

	t.Run("returns the snapshot with statuses", func(t *testing.T) {
		mockSnapshots := new(MockSnapshotRepository)
		manager := NewSnapshotManager(new(MockGroupRepository), mockSnapshots, new(MockPipelineStarter))

		group := groupWithSources(t, "faq")
		snapshot := domain.NewSnapshotFromGroup(group, 3, time.Now().UTC())
		mockSnapshots.On("GetByID", mock.Anything, snapshot.SnapshotID()).Return(snapshot, nil)

		result, err := manager.GetSnapshot(ctx, snapshot.SnapshotID())

		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Version)
	})
}

func TestSnapshotManager_ActivateSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("points the group at the snapshot", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, new(MockPipelineStarter))

		group := groupWithSources(t, "faq")
		snapshot := domain.NewSnapshotFromGroup(group, 2, time.Now().UTC())
		activated := *group
		activated.ActiveSnapshot = snapshot.SnapshotID()

		mockSnapshots.On("GetByID", mock.Anything, snapshot.SnapshotID()).Return(snapshot, nil)
		mockGroups.On("SetActiveSnapshot", mock.Anything, group.GroupID, snapshot.SnapshotID(), mock.Anything).Return(nil)
		mockGroups.On("GetByID", mock.Anything, group.GroupID).Return(&activated, nil)

		result, err := manager.ActivateSnapshot(ctx, snapshot.SnapshotID())

		require.NoError(t, err)
		assert.Equal(t, snapshot.SnapshotID(), result.ActiveSnapshot)
		mockGroups.AssertExpectations(t)
	})

	t.Run("propagates missing snapshot", func(t *testing.T) {
		mockGroups := new(MockGroupRepository)
		mockSnapshots := new(MockSnapshotRepository)
		manager := NewSnapshotManager(mockGroups, mockSnapshots, new(MockPipelineStarter))

		mockSnapshots.On("GetByID", mock.Anything, "kg_abcdefghijkl_v9").Return(nil, domain.ErrSnapshotNotFound)

		_, err := manager.ActivateSnapshot(ctx, "kg_abcdefghijkl_v9")

		require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
		mockGroups.AssertNotCalled(t, "SetActiveSnapshot")
	})
}

func TestSnapshotManager_RecordSourceStatus(t *testing.T) {
	ctx := context.Background()

	mockSnapshots := new(MockSnapshotRepository)
	manager := NewSnapshotManager(new(MockGroupRepository), mockSnapshots, new(MockPipelineStarter))

	status := domain.StatusFailed("bucket unreachable")
	mockSnapshots.On("UpdateSourceStatus", mock.Anything, "kg_abcdefghijkl_v1", "ks_abcdefghijkl", status).Return(nil)

	err := manager.RecordSourceStatus(ctx, "kg_abcdefghijkl_v1", "ks_abcdefghijkl", status)

	require.NoError(t, err)
	mockSnapshots.AssertExpectations(t)
}
