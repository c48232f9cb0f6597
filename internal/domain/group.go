package domain

import (
	"fmt"
	"strings"
	"time"
)

// KnowledgeGroup is a named, mutable collection of knowledge sources
// intended to be ingested together. ActiveSnapshot, when set, points at the
// snapshot version the query engine considers authoritative; it may lag
// behind the latest version.
type KnowledgeGroup struct {
	GroupID        string
	Name           string
	Description    string
	Owner          string
	ActiveSnapshot string
	Sources        map[string]KnowledgeSource
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewKnowledgeGroup creates a KnowledgeGroup with a fresh group ID and no
// sources or active snapshot.
func NewKnowledgeGroup(name, description, owner string, now time.Time) *KnowledgeGroup {
	return &KnowledgeGroup{
		GroupID:     NewGroupID(),
		Name:        name,
		Description: description,
		Owner:       owner,
		Sources:     make(map[string]KnowledgeSource),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddSource adds a source to the group. The source name must be unique
// within the group.
func (g *KnowledgeGroup) AddSource(src KnowledgeSource) error {
	if g.HasSourceName(src.Name) {
		return ErrSourceAlreadyExists
	}
	if g.Sources == nil {
		g.Sources = make(map[string]KnowledgeSource)
	}
	g.Sources[src.SourceID] = src
	return nil
}

// HasSourceName reports whether a source with the given name exists in the
// group.
func (g *KnowledgeGroup) HasSourceName(name string) bool {
	for _, src := range g.Sources {
		if src.Name == name {
			return true
		}
	}
	return false
}

// CopySources returns a value copy of the group's source mapping, suitable
// for freezing into a snapshot.
func (g *KnowledgeGroup) CopySources() map[string]KnowledgeSource {
	copied := make(map[string]KnowledgeSource, len(g.Sources))
	for id, src := range g.Sources {
		copied[id] = src
	}
	return copied
}

// ValidateGroup validates a KnowledgeGroup instance
func ValidateGroup(g *KnowledgeGroup) error {
	if g == nil {
		return NewValidationError("group cannot be nil")
	}
	if g.GroupID == "" {
		return NewValidationError("group ID is required")
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: group name", ErrMissingRequiredField)
	}
	if strings.TrimSpace(g.Description) == "" {
		return fmt.Errorf("%w: group description", ErrMissingRequiredField)
	}
	if strings.TrimSpace(g.Owner) == "" {
		return fmt.Errorf("%w: group owner", ErrMissingRequiredField)
	}
	for _, src := range g.Sources {
		if err := ValidateSource(src); err != nil {
			return err
		}
	}
	return nil
}
