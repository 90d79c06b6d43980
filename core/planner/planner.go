package planner

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/auditcore/evidencer/model"
)

// ScopeProbe answers what normative scopes a tenant's corpus can resolve
// a query against. Backed by the documents catalog.
type ScopeProbe interface {
	Standards(ctx context.Context, tenantID string) ([]string, error)
	StandardsForClause(ctx context.Context, tenantID string, clause string) ([]string, error)
}

// Planner classifies query intent and builds retrieval plans. Intent
// classification is a best-effort optimization, not a correctness gate:
// classification failure degrades to a conservative hybrid plan.
type Planner struct {
	probe  ScopeProbe
	config model.EngineConfig
	logger *slog.Logger
}

// New creates a planner. probe may be nil, which disables pre-retrieval
// ambiguity detection.
func New(probe ScopeProbe, config model.EngineConfig, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		probe:  probe,
		config: config,
		logger: logger,
	}
}

var (
	reClauseRef   = regexp.MustCompile(`(?i)(?:\bclause|\bsection|\barticle|§)\s*(\d+(?:\.\d+)*)`)
	reBareClause  = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+)*)\b`)
	reStandard    = regexp.MustCompile(`(?i)\b(ISO(?:/IEC)?\s?\d+(?:-\d+)?(?::\d{4})?|IEC\s?\d+|GDPR|SOC\s?2|NIST\s?[A-Z]*[\d-]+|PCI[- ]?DSS|HIPAA)\b`)
	reComparative = regexp.MustCompile(`(?i)\bcompare|\bversus\b|\bvs\.?\b|difference between|trade-?offs?\b`)
	reExploratory = regexp.MustCompile(`(?i)\boverview\b|\bsummar(y|ize|ise)\b|\bexplain\b|\bdescribe\b|across (all|the)|\bwhat are the main\b|\bhigh-level\b`)
	reLiteralCode = regexp.MustCompile(`(?i)\b[A-Z]{1,4}[-.]\d+(?:\.\d+)*\b`)
)

// Conflicting objective pairs that make a query's scope inherently
// ambiguous: satisfying one side typically violates the other.
var conflictingObjectives = [][2]string{
	{"confidential", "traceab"},
	{"anonymi", "audit"},
	{"minimi", "retention"},
}

// Classify returns a coarse intent for a user query.
func Classify(query string) model.Intent {
	s := strings.TrimSpace(query)
	if s == "" {
		return model.IntentHybrid
	}
	if reClauseRef.MatchString(s) || reLiteralCode.MatchString(s) {
		return model.IntentSpecific
	}
	if reComparative.MatchString(s) || reExploratory.MatchString(s) {
		return model.IntentGeneral
	}
	return model.IntentHybrid
}

// ClauseRef extracts the literal clause reference from a query, if any.
func ClauseRef(query string) string {
	if m := reClauseRef.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	if m := reBareClause.FindStringSubmatch(query); len(m) > 1 {
		return m[1]
	}
	return ""
}

// NamedStandard extracts an explicitly named standard from a query.
func NamedStandard(query string) string {
	if m := reStandard.FindString(query); m != "" {
		return normalizeStandard(m)
	}
	return ""
}

func normalizeStandard(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// conflictedObjectives reports whether the query pulls in two directions
// at once, and returns the conflicting terms.
func conflictedObjectives(query string) (string, string, bool) {
	lower := strings.ToLower(query)
	for _, pair := range conflictingObjectives {
		if strings.Contains(lower, pair[0]) && strings.Contains(lower, pair[1]) {
			return pair[0], pair[1], true
		}
	}
	return "", "", false
}

// Plan builds the retrieval plan for one query. The returned plan is
// immutable afterward. An AMBIGUOUS_SCOPE plan short-circuits fan-out.
func (p *Planner) Plan(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.RetrievalPlan, error) {
	scope, err := p.NormalizeScope(query, filter)
	if err != nil {
		return nil, err
	}

	intent := Classify(query.Text)
	clause := ClauseRef(query.Text)
	standard := NamedStandard(query.Text)

	// Conflicting objectives make the scope inherently ambiguous from the
	// query text alone; surface both directions as candidates.
	if a, b, conflicted := conflictedObjectives(query.Text); conflicted {
		return &model.RetrievalPlan{
			Intent:          model.IntentAmbiguousScope,
			Scope:           scope,
			ScopeCandidates: []string{a, b},
			ScopeMessage:    "query implies conflicting objectives (" + a + " vs " + b + "); restate which one it targets",
		}, nil
	}

	// A literal clause reference resolvable against more than one ingested
	// standard cannot be retrieved safely without clarification.
	if clause != "" && standard == "" && len(scope.Standards) == 0 && p.probe != nil {
		candidates, err := p.probe.StandardsForClause(ctx, scope.TenantID, clause)
		if err != nil {
			// Probe failure degrades to a conservative plan, it never
			// fails the request.
			p.logger.Warn("scope probe failed, continuing without ambiguity detection",
				slog.String("clause", clause), slog.Any("error", err))
		} else if len(candidates) > 1 {
			return &model.RetrievalPlan{
				Intent:          model.IntentAmbiguousScope,
				Scope:           scope,
				ClauseRef:       clause,
				ScopeCandidates: candidates,
				ScopeMessage:    "clause " + clause + " exists in multiple ingested standards; name the standard to search",
			}, nil
		}
	}

	plan := p.planForIntent(intent, scope)
	plan.ClauseRef = clause
	plan.AssumedStandard = standard
	if standard != "" && len(plan.Scope.Standards) == 0 {
		plan.Scope.Standards = []string{standard}
	}

	return plan, nil
}

// planForIntent sets adapter budgets according to intent. Literal intents
// weight vector/fts, exploratory intents weight summaries and enable
// multi-hop expansion.
func (p *Planner) planForIntent(intent model.Intent, scope model.ScopeFilter) *model.RetrievalPlan {
	k := p.config.TopK
	if k <= 0 {
		k = 10
	}

	switch intent {
	case model.IntentSpecific:
		return &model.RetrievalPlan{
			Intent:   model.IntentSpecific,
			VectorK:  2 * k,
			FTSK:     2 * k,
			GraphK:   k,
			SummaryK: 0,
			MultiHop: false,
			MaxHops:  1,
			Rerank:   true,
			Scope:    scope,
		}
	case model.IntentGeneral:
		return &model.RetrievalPlan{
			Intent:   model.IntentGeneral,
			VectorK:  k,
			FTSK:     k / 2,
			GraphK:   k,
			SummaryK: 2 * k,
			MultiHop: true,
			MaxHops:  p.config.MaxHops,
			Rerank:   false,
			Scope:    scope,
		}
	default:
		// Conservative default: every layer at base budget, single hop.
		return &model.RetrievalPlan{
			Intent:   model.IntentHybrid,
			VectorK:  k,
			FTSK:     k,
			GraphK:   k,
			SummaryK: k,
			MultiHop: false,
			MaxHops:  1,
			Rerank:   false,
			Scope:    scope,
		}
	}
}
