package planner

import (
	"context"
	"strings"

	"github.com/auditcore/evidencer/model"
)

// NormalizeScope merges the caller's filter with the authenticated query
// identity. The tenant id always comes from the authenticated identity;
// a filter naming a different tenant is a hard failure, never silently
// corrected.
func (p *Planner) NormalizeScope(query model.RetrievalQuery, filter *model.ScopeFilter) (model.ScopeFilter, error) {
	tenant := strings.TrimSpace(query.TenantID)
	if tenant == "" {
		return model.ScopeFilter{}, ErrMissingTenant
	}

	scope := model.ScopeFilter{TenantID: tenant}
	if filter != nil {
		if ft := strings.TrimSpace(filter.TenantID); ft != "" && ft != tenant {
			return model.ScopeFilter{}, ErrTenantMismatch
		}
		scope.CollectionID = filter.CollectionID
		scope.Standards = normalizeStandards(filter.Standards)
		scope.Sources = filter.Sources
		scope.TimeFrom = filter.TimeFrom
		scope.TimeTo = filter.TimeTo
		scope.Predicates = filter.Predicates.Clone()
	}
	if scope.CollectionID == "" {
		scope.CollectionID = query.CollectionID
	}

	return scope, nil
}

func normalizeStandards(standards []string) []string {
	if len(standards) == 0 {
		return nil
	}
	out := make([]string, 0, len(standards))
	for _, s := range standards {
		if n := normalizeStandard(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// ValidateScope is the pre-flight check: it validates a query + filter
// combination without executing retrieval, for callers that want
// strict-deny behavior before spending retrieval latency.
func (p *Planner) ValidateScope(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) model.ScopeReport {
	report := model.ScopeReport{Valid: true}

	scope, err := p.NormalizeScope(query, filter)
	if err != nil {
		report.Valid = false
		report.Violations = append(report.Violations, err.Error())
		return report
	}
	report.Normalized = scope

	if strings.TrimSpace(query.Text) == "" {
		report.Valid = false
		report.Violations = append(report.Violations, "query text is empty")
		return report
	}

	if p.probe == nil {
		return report
	}

	// Requested standards the tenant never ingested are violations: the
	// caller would get zero evidence and should know before retrieving.
	ingested, err := p.probe.Standards(ctx, scope.TenantID)
	if err != nil {
		report.Warnings = append(report.Warnings, "scope probe unavailable, standard checks skipped")
		return report
	}
	for _, want := range scope.Standards {
		if !containsFold(ingested, want) {
			report.Valid = false
			report.Violations = append(report.Violations, "standard not ingested for tenant: "+want)
		}
	}

	// Clause references resolvable against multiple standards are soft
	// warnings here; retrieval itself will demand clarification.
	if clause := ClauseRef(query.Text); clause != "" && NamedStandard(query.Text) == "" && len(scope.Standards) == 0 {
		candidates, err := p.probe.StandardsForClause(ctx, scope.TenantID, clause)
		if err == nil && len(candidates) > 1 {
			report.Warnings = append(report.Warnings,
				"clause "+clause+" is ambiguous across standards: "+strings.Join(candidates, ", "))
		}
	}

	return report
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
