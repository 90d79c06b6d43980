package model

import (
	"time"

	"github.com/google/uuid"
)

// Summary is one node of the precomputed hierarchical-summary tree. The
// tree itself is built by an external collaborator; the engine only reads
// it. Path is an ltree path encoding the node's position.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenant_id"`
	CollectionID string    `json:"collection_id,omitempty"`
	Path         string    `json:"path"`
	Level        int       `json:"level"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}
