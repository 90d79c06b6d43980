package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/auditcore/evidencer/model"
)

// Reranker rescores fused candidates against the original query text.
// Scores are in [0,1]; items scoring below the configured threshold are
// pruned. The fused order is the fallback whenever reranking fails.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []*model.CandidateItem) ([]float64, error)
}

// LexicalReranker scores by normalized query-term overlap. It is the
// default reranker: cheap, deterministic and dependency-free, good enough
// to push exact clause matches above merely-similar prose.
type LexicalReranker struct{}

// NewLexicalReranker creates the default overlap reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(_ context.Context, query string, items []*model.CandidateItem) ([]float64, error) {
	queryTerms := termSet(query)
	scores := make([]float64, len(items))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, item := range items {
		contentTerms := termSet(item.Content)
		if len(contentTerms) == 0 {
			continue
		}
		matched := 0
		for term := range queryTerms {
			if contentTerms[term] {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTerms))
	}

	return scores, nil
}

// sortReranked orders by rerank score descending, falling back to fused
// score and then the dedupe key so ties stay deterministic.
func sortReranked(items []*model.CandidateItem, scores map[string]float64) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := scores[items[i].Key()], scores[items[j].Key()]
		if si != sj {
			return si > sj
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Key() < items[j].Key()
	})
}

func termSet(text string) map[string]bool {
	fields := reTermSplit.Split(strings.ToLower(strings.TrimSpace(text)), -1)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			set[f] = true
		}
	}
	return set
}
