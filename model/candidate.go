package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceLayer identifies which retrieval backend produced a candidate
type SourceLayer string

const (
	SourceLayerVector  SourceLayer = "vector"
	SourceLayerFTS     SourceLayer = "fts"
	SourceLayerGraph   SourceLayer = "graph"
	SourceLayerSummary SourceLayer = "summary"
)

// AllSourceLayers is the fixed fusion consumption order. Fusion must never
// depend on map iteration order, so every cross-layer walk uses this.
var AllSourceLayers = []SourceLayer{
	SourceLayerVector,
	SourceLayerFTS,
	SourceLayerGraph,
	SourceLayerSummary,
}

// CandidateItem is one piece of retrieved evidence. Adapters produce them
// read-only; fusion allocates new items rather than mutating in place.
type CandidateItem struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
	TenantID string   `json:"tenant_id"`

	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank,omitempty"`

	SourceLayer  SourceLayer   `json:"source_layer"`
	SourceLayers []SourceLayer `json:"source_layers,omitempty"`
	SourceType   string        `json:"source_type"`

	// SyntheticID marks derived evidence (e.g. a graph relation) that has
	// no native corpus record id; dedupe falls back to the content key.
	SyntheticID bool `json:"-"`
}

// Key returns the identity fusion dedupes on: the stable record id, or a
// normalized content hash for synthetic ids.
func (c *CandidateItem) Key() string {
	if !c.SyntheticID && c.ID != "" {
		return c.ID
	}
	return ContentKey(c.Content)
}

// ContentKey hashes whitespace-normalized, lowercased content. Used to
// match derived evidence against the chunk it was generated from.
func ContentKey(content string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Clone returns a copy safe to rescore without touching the original.
func (c *CandidateItem) Clone() *CandidateItem {
	out := *c
	out.Metadata = c.Metadata.Clone()
	if len(c.SourceLayers) > 0 {
		out.SourceLayers = append([]SourceLayer(nil), c.SourceLayers...)
	}
	return &out
}

// Standard returns the normative standard of the underlying record.
func (c *CandidateItem) Standard() string {
	return c.Metadata.Standard()
}
