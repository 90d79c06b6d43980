package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/auditcore/evidencer/core/graph"
	"github.com/auditcore/evidencer/database"
	"github.com/auditcore/evidencer/model"
)

// ScopedQuery is the tenant-scoped query handed to adapters. Tenant
// scoping is part of the query itself; adapters pre-filter in their
// backing store, never post-filter.
type ScopedQuery struct {
	Text      string
	Embedding []float32
	Scope     model.ScopeFilter

	// Graph expansion parameters from the plan.
	MaxHops       int
	RelationTypes []model.RelationType
	NodeTypes     []string
}

// SourceAdapter is the uniform contract over the heterogeneous candidate
// sources. Search is idempotent and side-effect-free from the caller's
// perspective.
type SourceAdapter interface {
	Layer() model.SourceLayer
	Search(ctx context.Context, q ScopedQuery, k int) ([]*model.CandidateItem, error)
}

// VectorAdapter performs nearest-neighbor search over dense embeddings.
type VectorAdapter struct {
	chunks    *database.ChunksDBHandler
	threshold float64
}

// NewVectorAdapter creates the dense-similarity adapter.
func NewVectorAdapter(chunks *database.ChunksDBHandler, threshold float64) *VectorAdapter {
	return &VectorAdapter{chunks: chunks, threshold: threshold}
}

func (a *VectorAdapter) Layer() model.SourceLayer { return model.SourceLayerVector }

func (a *VectorAdapter) Search(ctx context.Context, q ScopedQuery, k int) ([]*model.CandidateItem, error) {
	if len(q.Embedding) == 0 {
		return nil, ErrEmbedderRequired
	}

	chunks, err := a.chunks.SelectChunksBySimilarity(ctx, q.Scope.TenantID, q.Embedding, k, a.threshold, q.Scope.CollectionID, q.Scope.Standards)
	if err != nil {
		return nil, err
	}

	items := make([]*model.CandidateItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = chunkCandidate(chunk, model.SourceLayerVector, chunk.Similarity, i+1)
	}

	return items, nil
}

// FTSAdapter performs keyword ranking; essential for exact codes, clause
// numbers and proper nouns that dense embeddings under-weight.
type FTSAdapter struct {
	chunks *database.ChunksDBHandler
}

// NewFTSAdapter creates the full-text adapter.
func NewFTSAdapter(chunks *database.ChunksDBHandler) *FTSAdapter {
	return &FTSAdapter{chunks: chunks}
}

func (a *FTSAdapter) Layer() model.SourceLayer { return model.SourceLayerFTS }

func (a *FTSAdapter) Search(ctx context.Context, q ScopedQuery, k int) ([]*model.CandidateItem, error) {
	chunks, err := a.chunks.SelectChunksByFullText(ctx, q.Scope.TenantID, q.Text, k, q.Scope.CollectionID, q.Scope.Standards)
	if err != nil {
		return nil, err
	}

	items := make([]*model.CandidateItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = chunkCandidate(chunk, model.SourceLayerFTS, chunk.FTSRank, i+1)
	}

	return items, nil
}

// GraphAdapter expands from anchor entities matched to query terms, up to
// MaxHops edges, and returns provenance chunks plus relation-derived
// evidence with hop-decayed scores.
type GraphAdapter struct {
	entities *database.EntitiesDBHandler
	edges    *database.EdgesDBHandler

	// anchorLimit caps how many anchor entities one query expands from.
	anchorLimit int
}

// NewGraphAdapter creates the knowledge-graph adapter.
func NewGraphAdapter(entities *database.EntitiesDBHandler, edges *database.EdgesDBHandler) *GraphAdapter {
	return &GraphAdapter{entities: entities, edges: edges, anchorLimit: 5}
}

func (a *GraphAdapter) Layer() model.SourceLayer { return model.SourceLayerGraph }

// GetEntity implements graph.GraphStore
func (a *GraphAdapter) GetEntity(ctx context.Context, tenantID string, id uuid.UUID) (*model.Entity, error) {
	return a.entities.SelectEntity(ctx, tenantID, id)
}

// GetEdgesFromEntity implements graph.GraphStore
func (a *GraphAdapter) GetEdgesFromEntity(ctx context.Context, tenantID string, entityID uuid.UUID, relations []model.RelationType) ([]*model.Edge, error) {
	return a.edges.SelectEdgesFromEntity(ctx, tenantID, entityID, relations)
}

var reTermSplit = regexp.MustCompile(`[^\p{L}\p{N}.-]+`)

// queryTerms tokenizes a query into anchor-matching terms, including
// two-word shingles so multi-word entity names match.
func queryTerms(text string) []string {
	fields := reTermSplit.Split(strings.TrimSpace(text), -1)
	terms := make([]string, 0, len(fields)*2)
	var prev string
	for _, f := range fields {
		if f == "" {
			continue
		}
		terms = append(terms, f)
		if prev != "" {
			terms = append(terms, prev+" "+f)
		}
		prev = f
	}
	return terms
}

func (a *GraphAdapter) Search(ctx context.Context, q ScopedQuery, k int) ([]*model.CandidateItem, error) {
	terms := queryTerms(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	anchors, err := a.entities.SelectEntitiesByTerms(ctx, q.Scope.TenantID, terms, q.NodeTypes, a.anchorLimit)
	if err != nil {
		return nil, err
	}

	maxHops := q.MaxHops
	if maxHops <= 0 {
		maxHops = 1
	}

	var items []*model.CandidateItem
	seen := make(map[string]bool)

	for _, anchor := range anchors {
		traversal, err := graph.BFS(ctx, a, q.Scope.TenantID, anchor.ID, maxHops, q.RelationTypes, q.NodeTypes)
		if err != nil {
			return nil, err
		}

		for _, node := range traversal {
			hopScore := 1.0 / float64(node.Distance+1)

			// Provenance chunks carry native corpus ids.
			chunks, err := a.edges.SelectChunksForEntity(ctx, q.Scope.TenantID, node.Entity.ID, k)
			if err != nil {
				return nil, err
			}
			for _, chunk := range chunks {
				id := chunk.ID.String()
				if seen[id] {
					continue
				}
				seen[id] = true
				item := chunkCandidate(chunk, model.SourceLayerGraph, hopScore, 0)
				items = append(items, item)
			}

			// Relations without provenance become derived evidence with a
			// synthetic id; dedupe falls back to the content key.
			if node.Via != nil && node.Via.ChunkID == nil {
				id := node.Via.ID.String()
				if seen[id] {
					continue
				}
				seen[id] = true
				items = append(items, relationCandidate(node, hopScore))
			}
		}
	}

	// Hop-decayed order, bounded by the layer budget.
	sortCandidates(items)
	for i, item := range items {
		item.Rank = i + 1
	}
	if len(items) > k {
		items = items[:k]
	}

	return items, nil
}

// SummaryAdapter queries the precomputed hierarchical-summary index for
// high-level, multi-document answers.
type SummaryAdapter struct {
	summaries *database.SummariesDBHandler
	threshold float64
}

// NewSummaryAdapter creates the hierarchical-summary adapter.
func NewSummaryAdapter(summaries *database.SummariesDBHandler, threshold float64) *SummaryAdapter {
	return &SummaryAdapter{summaries: summaries, threshold: threshold}
}

func (a *SummaryAdapter) Layer() model.SourceLayer { return model.SourceLayerSummary }

func (a *SummaryAdapter) Search(ctx context.Context, q ScopedQuery, k int) ([]*model.CandidateItem, error) {
	if len(q.Embedding) == 0 {
		return nil, ErrEmbedderRequired
	}

	summaries, err := a.summaries.SelectSummariesBySimilarity(ctx, q.Scope.TenantID, q.Embedding, k, a.threshold, q.Scope.CollectionID)
	if err != nil {
		return nil, err
	}

	items := make([]*model.CandidateItem, len(summaries))
	for i, summary := range summaries {
		metadata := summary.Metadata.Clone()
		metadata[model.MetaTenantID] = summary.TenantID
		metadata[model.MetaSourceID] = summary.ID.String()

		items[i] = &model.CandidateItem{
			ID:          summary.ID.String(),
			Content:     summary.Content,
			Metadata:    metadata,
			TenantID:    summary.TenantID,
			Similarity:  summary.Similarity,
			Score:       summary.Similarity,
			Rank:        i + 1,
			SourceLayer: model.SourceLayerSummary,
			SourceType:  fmt.Sprintf("summary_l%d", summary.Level),
		}
	}

	return items, nil
}

// chunkCandidate converts a chunk row into a candidate. Tenant identity
// comes from the source record, never from caller input.
func chunkCandidate(chunk *model.Chunk, layer model.SourceLayer, score float64, rank int) *model.CandidateItem {
	metadata := chunk.Metadata.Clone()
	metadata[model.MetaTenantID] = chunk.TenantID
	metadata[model.MetaSourceID] = chunk.DocumentRID.String()

	return &model.CandidateItem{
		ID:          chunk.ID.String(),
		Content:     chunk.Content,
		Metadata:    metadata,
		TenantID:    chunk.TenantID,
		Similarity:  score,
		Score:       score,
		Rank:        rank,
		SourceLayer: layer,
		SourceType:  "chunk",
	}
}

// relationCandidate renders a traversed relation as derived textual
// evidence.
func relationCandidate(node *graph.TraversalResult, score float64) *model.CandidateItem {
	edge := node.Via
	content := edge.Description
	if content == "" {
		content = fmt.Sprintf("%s is reached via relation %q", node.Entity.Name, edge.Relation)
	}

	metadata := edge.Metadata.Clone()
	metadata[model.MetaTenantID] = edge.TenantID

	return &model.CandidateItem{
		ID:          edge.ID.String(),
		Content:     content,
		Metadata:    metadata,
		TenantID:    edge.TenantID,
		Similarity:  score,
		Score:       score,
		SourceLayer: model.SourceLayerGraph,
		SourceType:  "relation",
		SyntheticID: true,
	}
}
