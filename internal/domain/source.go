package domain

import (
	"fmt"
	"strings"
)

// SourceType represents the kind of data a knowledge source points at
type SourceType string

const (
	SourceTypeBlob           SourceType = "BLOB"
	SourceTypePrechunkedBlob SourceType = "PRECHUNKED_BLOB"
)

// KnowledgeSource is one data input within a knowledge group. Sources are
// immutable once created and identified by SourceID. A source is owned by
// exactly one group or, once captured, by exactly one snapshot; snapshots
// hold value copies, never references into the live group.
type KnowledgeSource struct {
	SourceID   string
	Name       string
	SourceType SourceType
	Location   string
}

// NewKnowledgeSource creates a KnowledgeSource with a fresh source ID.
func NewKnowledgeSource(name string, sourceType SourceType, location string) KnowledgeSource {
	return KnowledgeSource{
		SourceID:   NewSourceID(),
		Name:       name,
		SourceType: sourceType,
		Location:   location,
	}
}

// ValidateSource validates a KnowledgeSource instance
func ValidateSource(s KnowledgeSource) error {
	if s.SourceID == "" {
		return NewValidationError("source ID is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: source name", ErrMissingRequiredField)
	}
	if strings.TrimSpace(s.Location) == "" {
		return fmt.Errorf("%w: source location", ErrMissingRequiredField)
	}
	if !isValidSourceType(s.SourceType) {
		return ErrInvalidSourceType
	}
	return nil
}

func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeBlob, SourceTypePrechunkedBlob:
		return true
	}
	return false
}
