package retrieval

import (
	"strings"

	"github.com/auditcore/evidencer/model"
)

// Gate decides the terminal outcome for an evidence set. The pre-retrieval
// CLARIFICATION_REQUIRED transition happens in the planner; this gate only
// decides between GROUNDED and BLOCKED after fusion.
//
// BLOCKED is reserved for evidence-free or contradictory outcomes against
// an assumed scope. A literal clause-reference mismatch alone is a soft
// warning when semantic evidence is otherwise sufficient, because clause
// text is frequently paraphrased in ingested chunks.
func Gate(plan *model.RetrievalPlan, items []*model.CandidateItem, trace *model.RetrievalTrace) (model.Outcome, string) {
	assumed := plan.AssumedStandard

	if len(items) == 0 {
		if assumed != "" {
			return model.OutcomeBlocked,
				"no evidence found for " + assumed + "; reformulate with an explicit scope or verify the standard is ingested"
		}
		trace.AddWarning("no evidence found for query")
		return model.OutcomeGrounded, ""
	}

	if plan.ClauseRef != "" && !anyContentContains(items, plan.ClauseRef) {
		trace.AddWarning("clause " + plan.ClauseRef + " not literally present in evidence; matches are semantic")
	}

	if assumed == "" {
		return model.OutcomeGrounded, ""
	}

	supporting, neutral := 0, 0
	for _, item := range items {
		switch standard := item.Standard(); {
		case standard == "":
			neutral++
		case strings.EqualFold(standard, assumed):
			supporting++
		}
	}

	if supporting > 0 {
		return model.OutcomeGrounded, ""
	}
	if neutral > 0 {
		// Unattributed evidence is a valid fallback, not a contradiction.
		trace.AddWarning("evidence does not explicitly name " + assumed)
		return model.OutcomeGrounded, ""
	}

	// Every retrieved item names a different standard than the query
	// assumed. Returning it would answer the wrong question.
	return model.OutcomeBlocked,
		"query targets " + assumed + " but retrieved evidence covers other standards only; reformulate with an explicit scope"
}

func anyContentContains(items []*model.CandidateItem, needle string) bool {
	for _, item := range items {
		if strings.Contains(item.Content, needle) {
			return true
		}
	}
	return false
}
