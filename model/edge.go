package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationType represents the type of relationship between entities
type RelationType string

const (
	RelationRequires    RelationType = "requires"
	RelationReferences  RelationType = "references"
	RelationDefines     RelationType = "defines"
	RelationContradicts RelationType = "contradicts"
	RelationRelatedTo   RelationType = "related_to"
	RelationCustom      RelationType = "custom"
)

// Edge represents a typed relation between two entities. ChunkID is the
// provenance chunk the relation was extracted from, when one exists.
type Edge struct {
	ID             uuid.UUID    `json:"id"`
	TenantID       string       `json:"tenant_id"`
	SourceEntityID uuid.UUID    `json:"source_entity_id"`
	TargetEntityID uuid.UUID    `json:"target_entity_id"`
	Relation       RelationType `json:"relation"`
	Weight         float64      `json:"weight"`
	Bidirectional  bool         `json:"bidirectional"`
	ChunkID        *uuid.UUID   `json:"chunk_id,omitempty"`
	Description    string       `json:"description,omitempty"`
	Metadata       Metadata     `json:"metadata,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
