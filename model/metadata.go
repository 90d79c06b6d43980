package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/auditcore/evidencer/helper"
)

// Metadata represents JSONB metadata stored in PostgreSQL
type Metadata map[string]interface{}

// Well-known metadata keys. Tenant and source identity are stamped at
// ingestion time and must never be rewritten at query time.
const (
	MetaTenantID   = "tenant_id"
	MetaSourceID   = "source_id"
	MetaStandard   = "standard"
	MetaCollection = "collection_id"
	MetaClause     = "clause"
)

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}

// String returns the string value stored under key, or "" if absent.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// TenantID returns the owning tenant recorded at ingestion time.
func (m Metadata) TenantID() string {
	return m.String(MetaTenantID)
}

// SourceID returns the originating record id, if any.
func (m Metadata) SourceID() string {
	return m.String(MetaSourceID)
}

// Standard returns the normative standard this record belongs to, if any.
func (m Metadata) Standard() string {
	return m.String(MetaStandard)
}

// Clone returns a shallow copy, so fused candidates never alias the
// metadata of the adapter-produced originals.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
