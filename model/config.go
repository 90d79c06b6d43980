package model

import "time"

// EngineConfig represents configuration for the retrieval engine
type EngineConfig struct {
	// RRF damping constant; larger values flatten the influence of rank
	// position across layers.
	RRFK int `json:"rrf_k"`

	// Fusion / reranking bounds
	TopK                int     `json:"top_k"`
	MaxRerankCandidates int     `json:"max_rerank_candidates"`
	RerankThreshold     float64 `json:"rerank_threshold"`
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// Concurrency bounds
	AdapterTimeout time.Duration `json:"adapter_timeout"`
	RequestTimeout time.Duration `json:"request_timeout"`
	PoolSize       int           `json:"pool_size"`

	// Graph expansion defaults, overridable per plan
	MaxHops int `json:"max_hops"`
}

// DefaultEngineConfig returns a sensible default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RRFK:                60,
		TopK:                10,
		MaxRerankCandidates: 30,
		RerankThreshold:     0.1,
		SimilarityThreshold: 0.0,
		AdapterTimeout:      3 * time.Second,
		RequestTimeout:      10 * time.Second,
		PoolSize:            16,
		MaxHops:             2,
	}
}
