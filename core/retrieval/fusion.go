package retrieval

import (
	"sort"

	"github.com/auditcore/evidencer/model"
)

// FuseRRF merges per-layer candidate lists with Reciprocal Rank Fusion:
// each candidate's fused score is the sum of 1/(rrfK + rank) over every
// layer it appears in. Native per-layer scores are rank-only inputs;
// their absolute magnitudes are incomparable across layers (cosine vs
// BM25 vs hop decay) and are deliberately ignored.
//
// Candidates appearing in multiple layers strictly dominate single-layer
// candidates at equal per-layer rank: corroboration across retrieval
// modalities is evidence of relevance, not noise.
//
// Output ordering is stable and reproducible for identical inputs: layers
// are consumed in the fixed model.AllSourceLayers order and ties break on
// the dedupe key, never on map iteration order.
func FuseRRF(layers map[model.SourceLayer][]*model.CandidateItem, rrfK int) []*model.CandidateItem {
	lists := make([][]*model.CandidateItem, 0, len(model.AllSourceLayers))
	for _, layer := range model.AllSourceLayers {
		if items := layers[layer]; len(items) > 0 {
			lists = append(lists, items)
		}
	}
	return fuseRanked(lists, rrfK)
}

// FuseAcross merges the final item lists of independent sub-queries with
// the same RRF mechanism used across layers within one query.
func FuseAcross(lists [][]*model.CandidateItem, rrfK int) []*model.CandidateItem {
	return fuseRanked(lists, rrfK)
}

func fuseRanked(lists [][]*model.CandidateItem, rrfK int) []*model.CandidateItem {
	if rrfK <= 0 {
		rrfK = 60
	}

	fused := make(map[string]*model.CandidateItem)
	var order []string

	for _, items := range lists {
		seenInList := make(map[string]bool, len(items))
		rank := 0
		for _, item := range items {
			key := item.Key()
			// Within one list only the best-ranked occurrence counts, so
			// fusing a list with itself duplicated changes nothing.
			if seenInList[key] {
				continue
			}
			seenInList[key] = true
			rank++

			contribution := 1.0 / float64(rrfK+rank)

			existing, ok := fused[key]
			if !ok {
				merged := item.Clone()
				merged.Score = contribution
				merged.Rank = 0
				merged.SourceLayers = itemLayers(item)
				fused[key] = merged
				order = append(order, key)
				continue
			}

			existing.Score += contribution
			if item.Similarity > existing.Similarity {
				existing.Similarity = item.Similarity
			}
			for _, layer := range itemLayers(item) {
				existing.SourceLayers = appendLayer(existing.SourceLayers, layer)
			}
			// Prefer a native corpus id over a synthetic one for citation.
			if existing.SyntheticID && !item.SyntheticID {
				existing.ID = item.ID
				existing.SyntheticID = false
			}
		}
	}

	results := make([]*model.CandidateItem, 0, len(fused))
	for _, key := range order {
		results = append(results, fused[key])
	}

	sortCandidates(results)
	for i, item := range results {
		item.Rank = i + 1
	}

	return results
}

func itemLayers(item *model.CandidateItem) []model.SourceLayer {
	if len(item.SourceLayers) > 0 {
		return append([]model.SourceLayer(nil), item.SourceLayers...)
	}
	return []model.SourceLayer{item.SourceLayer}
}

// sortCandidates orders by score descending with a deterministic id
// tie-break.
func sortCandidates(items []*model.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Key() < items[j].Key()
	})
}

func appendLayer(layers []model.SourceLayer, layer model.SourceLayer) []model.SourceLayer {
	for _, l := range layers {
		if l == layer {
			return layers
		}
	}
	return append(layers, layer)
}
