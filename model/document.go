package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a source document in the corpus catalog. Tenant,
// collection and standard are fixed at ingestion time.
type Document struct {
	ID           int64     `json:"id"`
	RID          uuid.UUID `json:"rid"`
	TenantID     string    `json:"tenant_id"`
	CollectionID string    `json:"collection_id,omitempty"`
	Standard     string    `json:"standard,omitempty"`
	Title        string    `json:"title"`
	Source       string    `json:"source,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
