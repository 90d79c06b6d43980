package model

// Outcome is the terminal state of a retrieval request
type Outcome string

const (
	OutcomeGrounded              Outcome = "GROUNDED"
	OutcomeClarificationRequired Outcome = "CLARIFICATION_REQUIRED"
	OutcomeBlocked               Outcome = "BLOCKED"
)

// RetrievalTrace records what happened during one request. Purely
// diagnostic, append-only, never consulted for ranking or gating.
type RetrievalTrace struct {
	FiltersApplied ScopeFilter           `json:"filters_applied"`
	EngineMode     Intent                `json:"engine_mode"`
	FallbackUsed   bool                  `json:"fallback_used"`
	TimingsMs      map[SourceLayer]int64 `json:"timings_ms,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// AddWarning appends a diagnostic warning.
func (t *RetrievalTrace) AddWarning(msg string) {
	t.Warnings = append(t.Warnings, msg)
}

// RecordTiming records an adapter's wall time.
func (t *RetrievalTrace) RecordTiming(layer SourceLayer, ms int64) {
	if t.TimingsMs == nil {
		t.TimingsMs = make(map[SourceLayer]int64, 4)
	}
	t.TimingsMs[layer] = ms
}

// EvidenceSet is the engine's sole output artifact. Ownership transfers
// to the caller on return.
type EvidenceSet struct {
	Items   []*CandidateItem `json:"items"`
	Trace   RetrievalTrace   `json:"trace"`
	Outcome Outcome          `json:"outcome"`

	// Set only for CLARIFICATION_REQUIRED / BLOCKED outcomes.
	RequiresScopeClarification bool     `json:"requires_scope_clarification,omitempty"`
	ScopeCandidates            []string `json:"scope_candidates,omitempty"`
	ScopeMessage               string   `json:"scope_message,omitempty"`
}

// ScoreComponents decomposes one item's final score for the explain
// variant. Annotating must never alter ranking.
type ScoreComponents struct {
	BaseSimilarity float64  `json:"base_similarity"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
	FusedScore     float64  `json:"fused_score"`
	ScopePenalized bool     `json:"scope_penalized"`
}

// ExplainedItem pairs a candidate with its score decomposition.
type ExplainedItem struct {
	Item            *CandidateItem  `json:"item"`
	ScoreComponents ScoreComponents `json:"score_components"`
	MatchedFilters  []string        `json:"matched_filters,omitempty"`
}

// ExplainedEvidenceSet is the explain-variant response.
type ExplainedEvidenceSet struct {
	EvidenceSet
	Explained []*ExplainedItem `json:"explained"`
}

// SubQueryStatus reports one sub-query's execution result.
type SubQueryStatus struct {
	Query  string `json:"query"`
	Status string `json:"status"` // ok|error
	Error  string `json:"error,omitempty"`
}

// MultiEvidenceSet is the multi-query response: sub-query evidence merged
// with the same RRF mechanism used within one query.
type MultiEvidenceSet struct {
	Items    []*CandidateItem `json:"items"`
	Statuses []SubQueryStatus `json:"statuses"`
	Partial  bool             `json:"partial"`
}

// ScopeReport is the validate-scope pre-flight response.
type ScopeReport struct {
	Valid      bool        `json:"valid"`
	Violations []string    `json:"violations,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Normalized ScopeFilter `json:"normalized_scope"`
}
