package model

import "time"

// Intent classifies what kind of retrieval a query needs
type Intent string

const (
	IntentSpecific       Intent = "SPECIFIC"        // literal clause/code lookups
	IntentGeneral        Intent = "GENERAL"         // exploratory, multi-document questions
	IntentHybrid         Intent = "HYBRID"          // mixed or unclassifiable queries
	IntentAmbiguousScope Intent = "AMBIGUOUS_SCOPE" // scope must be clarified before retrieval
)

// RetrievalQuery is the caller-owned input to the engine. It is immutable
// once passed in; History is used only for query rewriting.
type RetrievalQuery struct {
	Text         string   `json:"query"`
	TenantID     string   `json:"tenant_id"`
	CollectionID string   `json:"collection_id,omitempty"`
	History      []string `json:"history,omitempty"`
}

// ScopeFilter bounds a retrieval to a tenant and optionally narrower
// document sets. TenantID is never optional.
type ScopeFilter struct {
	TenantID     string     `json:"tenant_id"`
	CollectionID string     `json:"collection_id,omitempty"`
	Standards    []string   `json:"standards,omitempty"`
	Sources      []string   `json:"sources,omitempty"`
	TimeFrom     *time.Time `json:"time_from,omitempty"`
	TimeTo       *time.Time `json:"time_to,omitempty"`
	Predicates   Metadata   `json:"predicates,omitempty"`
}

// RetrievalPlan is produced once per query by the planner and immutable
// afterward. Budgets are per-adapter result counts.
type RetrievalPlan struct {
	Intent   Intent      `json:"intent"`
	VectorK  int         `json:"vector_k"`
	FTSK     int         `json:"fts_k"`
	GraphK   int         `json:"graph_k"`
	SummaryK int         `json:"summary_k"`
	MultiHop bool        `json:"multihop"`
	MaxHops  int         `json:"max_hops"`
	Rerank   bool        `json:"rerank"`
	Scope    ScopeFilter `json:"scope"`

	// RelationTypes/NodeTypes narrow graph expansion.
	RelationTypes []RelationType `json:"relation_types,omitempty"`
	NodeTypes     []string       `json:"node_types,omitempty"`

	// AssumedStandard is set when the query names a standard explicitly;
	// the scope gate checks retrieved evidence against it.
	AssumedStandard string `json:"assumed_standard,omitempty"`
	// ClauseRef is the literal clause reference found in the query, if any.
	ClauseRef string `json:"clause_ref,omitempty"`

	// ScopeCandidates is populated for AMBIGUOUS_SCOPE plans with the
	// scope values the caller must choose between.
	ScopeCandidates []string `json:"scope_candidates,omitempty"`
	ScopeMessage    string   `json:"scope_message,omitempty"`
}

// Layers returns the source layers this plan fans out to, in the fixed
// order fusion consumes them.
func (p *RetrievalPlan) Layers() []SourceLayer {
	layers := make([]SourceLayer, 0, 4)
	if p.VectorK > 0 {
		layers = append(layers, SourceLayerVector)
	}
	if p.FTSK > 0 {
		layers = append(layers, SourceLayerFTS)
	}
	if p.GraphK > 0 {
		layers = append(layers, SourceLayerGraph)
	}
	if p.SummaryK > 0 {
		layers = append(layers, SourceLayerSummary)
	}
	return layers
}

// BudgetFor returns the result budget for a layer.
func (p *RetrievalPlan) BudgetFor(layer SourceLayer) int {
	switch layer {
	case SourceLayerVector:
		return p.VectorK
	case SourceLayerFTS:
		return p.FTSK
	case SourceLayerGraph:
		return p.GraphK
	case SourceLayerSummary:
		return p.SummaryK
	}
	return 0
}

// Mandatory reports whether a layer failure must fail the whole request.
// Vector search is the only mandatory layer, and only for SPECIFIC intent.
func (p *RetrievalPlan) Mandatory(layer SourceLayer) bool {
	return layer == SourceLayerVector && p.Intent == IntentSpecific
}

// SubQuery is one entry of a multi-query request with its own budgets.
type SubQuery struct {
	Text   string `json:"query"`
	K      int    `json:"k,omitempty"`
	Rerank bool   `json:"rerank,omitempty"`
}
