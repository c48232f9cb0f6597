package service

import (
	"context"
	"fmt"
	"time"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/pagination"
	"github.com/veldt-labs/corpora/internal/telemetry"
)

// GroupRepository defines the metadata-store interface for knowledge groups
type GroupRepository interface {
	Create(ctx context.Context, g *domain.KnowledgeGroup) error
	GetByID(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) (*GroupPageResult, error)
	// AddSource persists a single new source as one atomic field update;
	// implementations must reject duplicate names at the store level so
	// concurrent additions cannot lose updates.
	AddSource(ctx context.Context, groupID string, src domain.KnowledgeSource, updatedAt time.Time) error
	SetActiveSnapshot(ctx context.Context, groupID, snapshotID string, updatedAt time.Time) error
}

type GroupPageResult struct {
	Items      []*domain.KnowledgeGroup
	NextCursor string
	HasMore    bool
}

// SourceInput describes one source in a create/add request
type SourceInput struct {
	Name     string
	Type     string
	Location string
}

// CreateGroupInput represents the input for creating a knowledge group
type CreateGroupInput struct {
	Name        string
	Description string
	Owner       string
	Sources     []SourceInput
}

type ListGroupsInput struct {
	Cursor string
	Limit  int
}

type ListGroupsOutput struct {
	Items   []*domain.KnowledgeGroup
	Cursor  string
	HasMore bool
}

// GroupRegistry handles CRUD and invariant enforcement over knowledge
// groups and their sources.
type GroupRegistry struct {
	groups GroupRepository
}

// NewGroupRegistry creates a new GroupRegistry instance
func NewGroupRegistry(groups GroupRepository) *GroupRegistry {
	return &GroupRegistry{groups: groups}
}

// CreateGroup validates the request, assigns IDs and persists a new group
// with no active snapshot. Duplicate source names within the request fail
// validation.
func (s *GroupRegistry) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.KnowledgeGroup, error) {
	ctx, span := telemetry.StartSpan(ctx, "GroupRegistry.CreateGroup", telemetry.SpanAttributes{
		Operation: "create_group",
	})
	defer span.End()

	now := time.Now().UTC()
	group := domain.NewKnowledgeGroup(input.Name, input.Description, input.Owner, now)

	for _, si := range input.Sources {
		src, err := buildSource(si)
		if err != nil {
			return nil, err
		}
		if err := group.AddSource(src); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSourceName, si.Name)
		}
	}

	if err := domain.ValidateGroup(group); err != nil {
		return nil, err
	}

	if err := s.groups.Create(ctx, group); err != nil {
		span.SetError(err)
		return nil, err
	}

	return group, nil
}

// AddSource assigns a fresh source ID and appends the source to the group.
// Fails with a conflict if a source with the same name already exists.
func (s *GroupRegistry) AddSource(ctx context.Context, groupID string, input SourceInput) (domain.KnowledgeSource, error) {
	ctx, span := telemetry.StartSpan(ctx, "GroupRegistry.AddSource", telemetry.SpanAttributes{
		GroupID:   groupID,
		Operation: "add_source",
	})
	defer span.End()

	var zero domain.KnowledgeSource

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return zero, err
	}

	if group.HasSourceName(input.Name) {
		return zero, domain.ErrSourceAlreadyExists
	}

	src, err := buildSource(input)
	if err != nil {
		return zero, err
	}

	// The store enforces name uniqueness again; a concurrent add with the
	// same name surfaces as ErrSourceAlreadyExists here.
	if err := s.groups.AddSource(ctx, groupID, src, time.Now().UTC()); err != nil {
		span.SetError(err)
		return zero, err
	}

	return src, nil
}

// GetGroup retrieves a knowledge group by ID
func (s *GroupRegistry) GetGroup(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error) {
	return s.groups.GetByID(ctx, groupID)
}

// ListGroups retrieves groups ordered by most recently updated
func (s *GroupRegistry) ListGroups(ctx context.Context, input ListGroupsInput) (*ListGroupsOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewValidationError("invalid pagination cursor")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.groups.List(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListGroupsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func buildSource(input SourceInput) (domain.KnowledgeSource, error) {
	src := domain.NewKnowledgeSource(input.Name, domain.SourceType(input.Type), input.Location)
	if err := domain.ValidateSource(src); err != nil {
		return domain.KnowledgeSource{}, err
	}
	return src, nil
}
