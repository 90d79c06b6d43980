package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents a tenant-tagged text chunk in the corpus. Chunks are
// produced by the external ingestion subsystem and are read-only from the
// engine's perspective.
type Chunk struct {
	ID           uuid.UUID `json:"id"`
	DocumentRID  uuid.UUID `json:"document_rid"`
	TenantID     string    `json:"tenant_id"`
	CollectionID string    `json:"collection_id,omitempty"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding,omitempty"`
	ChunkIndex   *int      `json:"chunk_index,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
	FTSRank    float64 `json:"fts_rank,omitempty"`
}
