package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a named entity in the tenant's knowledge graph
type Entity struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Type      string    `json:"entity_type"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
