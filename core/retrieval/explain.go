package retrieval

import (
	"context"
	"strings"

	"github.com/auditcore/evidencer/model"
)

// Explain runs the same pipeline as Retrieve and annotates each returned
// item with its score decomposition and the filters it matched. It only
// annotates; ranking is identical to Retrieve for the same inputs.
func (e *Engine) Explain(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.ExplainedEvidenceSet, error) {
	res, err := e.run(ctx, query, filter, nil)
	if err != nil {
		return nil, err
	}

	out := &model.ExplainedEvidenceSet{EvidenceSet: *res.set}
	out.Explained = make([]*model.ExplainedItem, 0, len(res.set.Items))

	for _, item := range res.set.Items {
		components := model.ScoreComponents{
			BaseSimilarity: item.Similarity,
			FusedScore:     item.Score,
		}
		if res.rerankScores != nil {
			if score, ok := res.rerankScores[item.Key()]; ok {
				s := score
				components.RerankScore = &s
			}
		}
		if assumed := res.plan.AssumedStandard; assumed != "" {
			if standard := item.Standard(); standard != "" && !strings.EqualFold(standard, assumed) {
				components.ScopePenalized = true
			}
		}

		out.Explained = append(out.Explained, &model.ExplainedItem{
			Item:            item,
			ScoreComponents: components,
			MatchedFilters:  matchedFilters(res.plan.Scope, item),
		})
	}

	return out, nil
}

// matchedFilters names the scope dimensions an item satisfies. Tenant is
// always present post-canary; narrower filters are reported only when the
// item's metadata actually carries the matching value.
func matchedFilters(scope model.ScopeFilter, item *model.CandidateItem) []string {
	filters := []string{"tenant:" + item.TenantID}

	if scope.CollectionID != "" {
		if collection, ok := item.Metadata[model.MetaCollection].(string); ok && collection == scope.CollectionID {
			filters = append(filters, "collection:"+collection)
		}
	}
	if standard := item.Standard(); standard != "" {
		for _, want := range scope.Standards {
			if strings.EqualFold(standard, want) {
				filters = append(filters, "standard:"+standard)
				break
			}
		}
	}

	return filters
}
