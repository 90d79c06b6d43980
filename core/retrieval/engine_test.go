package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditcore/evidencer/model"
)

// fixedPlanner returns a copy of one prebuilt plan with the request scope
// applied, so engine tests control fan-out precisely.
type fixedPlanner struct {
	plan model.RetrievalPlan
	err  error
}

func (p *fixedPlanner) Plan(_ context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.RetrievalPlan, error) {
	if p.err != nil {
		return nil, p.err
	}
	plan := p.plan
	plan.Scope.TenantID = query.TenantID
	if filter != nil {
		plan.Scope.Standards = filter.Standards
	}
	return &plan, nil
}

// fakeAdapter serves canned items, optionally failing or stalling.
type fakeAdapter struct {
	layer model.SourceLayer
	items []*model.CandidateItem
	err   error
	delay time.Duration
}

func (a *fakeAdapter) Layer() model.SourceLayer { return a.layer }

func (a *fakeAdapter) Search(ctx context.Context, _ ScopedQuery, k int) ([]*model.CandidateItem, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	items := a.items
	if len(items) > k {
		items = items[:k]
	}
	out := make([]*model.CandidateItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
		out[i].Rank = i + 1
	}
	return out, nil
}

func stubEmbedder(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func hybridPlan() model.RetrievalPlan {
	return model.RetrievalPlan{
		Intent:  model.IntentHybrid,
		VectorK: 10, FTSK: 10, GraphK: 10, SummaryK: 10,
		MaxHops: 1,
	}
}

func newTestEngine(t *testing.T, plan model.RetrievalPlan, adapters ...SourceAdapter) *Engine {
	t.Helper()
	engine, err := NewEngine(
		&fixedPlanner{plan: plan},
		adapters,
		NewEnforcer(nil, nil),
		NewLexicalReranker(),
		stubEmbedder,
		model.DefaultEngineConfig(),
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func tenantItems(tenant string, layer model.SourceLayer, n int) []*model.CandidateItem {
	items := make([]*model.CandidateItem, n)
	for i := range items {
		items[i] = &model.CandidateItem{
			ID:          fmt.Sprintf("%s-%s-%d", tenant, layer, i),
			Content:     fmt.Sprintf("evidence %d for %s", i, tenant),
			TenantID:    tenant,
			Similarity:  1.0 - float64(i)*0.05,
			Score:       1.0 - float64(i)*0.05,
			SourceLayer: layer,
			SourceType:  "chunk",
		}
	}
	return items
}

func TestRetrieveGrounded(t *testing.T) {
	engine := newTestEngine(t, hybridPlan(),
		&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems("tenant-a", model.SourceLayerVector, 5)},
		&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems("tenant-a", model.SourceLayerFTS, 5)},
		&fakeAdapter{layer: model.SourceLayerGraph, items: tenantItems("tenant-a", model.SourceLayerGraph, 3)},
		&fakeAdapter{layer: model.SourceLayerSummary, items: tenantItems("tenant-a", model.SourceLayerSummary, 2)},
	)

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "what does clause 8.5 require", TenantID: "tenant-a",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeGrounded, set.Outcome)
	assert.NotEmpty(t, set.Items)
	assert.False(t, set.Trace.FallbackUsed)
	assert.Equal(t, model.IntentHybrid, set.Trace.EngineMode)
	assert.LessOrEqual(t, len(set.Items), model.DefaultEngineConfig().TopK, "Expected top-k trimming")
	for _, layer := range []model.SourceLayer{model.SourceLayerVector, model.SourceLayerFTS} {
		assert.Contains(t, set.Trace.TimingsMs, layer, "Expected per-layer timings recorded")
	}
}

func TestRetrievePartialFailureTolerance(t *testing.T) {
	engine := newTestEngine(t, hybridPlan(),
		&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems("tenant-a", model.SourceLayerVector, 5)},
		&fakeAdapter{layer: model.SourceLayerFTS, err: errors.New("index rebuilding")},
		&fakeAdapter{layer: model.SourceLayerGraph, items: tenantItems("tenant-a", model.SourceLayerGraph, 2)},
		&fakeAdapter{layer: model.SourceLayerSummary, items: tenantItems("tenant-a", model.SourceLayerSummary, 2)},
	)

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "change control", TenantID: "tenant-a",
	}, nil)

	require.NoError(t, err, "Expected a degraded non-mandatory adapter to be tolerated")
	assert.NotEmpty(t, set.Items)
	assert.True(t, set.Trace.FallbackUsed)
	require.NotEmpty(t, set.Trace.Warnings)
	assert.Contains(t, set.Trace.Warnings[0], "fts")
}

func TestRetrieveAdapterTimeoutDegrades(t *testing.T) {
	plan := hybridPlan()
	config := model.DefaultEngineConfig()
	config.AdapterTimeout = 30 * time.Millisecond

	engine, err := NewEngine(
		&fixedPlanner{plan: plan},
		[]SourceAdapter{
			&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems("tenant-a", model.SourceLayerVector, 3)},
			&fakeAdapter{layer: model.SourceLayerFTS, delay: 500 * time.Millisecond, items: tenantItems("tenant-a", model.SourceLayerFTS, 3)},
			&fakeAdapter{layer: model.SourceLayerGraph, items: tenantItems("tenant-a", model.SourceLayerGraph, 3)},
			&fakeAdapter{layer: model.SourceLayerSummary, items: tenantItems("tenant-a", model.SourceLayerSummary, 3)},
		},
		NewEnforcer(nil, nil), nil, stubEmbedder, config, nil,
	)
	require.NoError(t, err)
	defer engine.Close()

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "encryption at rest", TenantID: "tenant-a",
	}, nil)

	require.NoError(t, err)
	assert.True(t, set.Trace.FallbackUsed, "Expected the stalled adapter to degrade")
	assert.NotEmpty(t, set.Items, "Expected evidence from the healthy adapters")
}

func TestRetrieveMandatoryAdapterFailure(t *testing.T) {
	plan := hybridPlan()
	plan.Intent = model.IntentSpecific

	engine := newTestEngine(t, plan,
		&fakeAdapter{layer: model.SourceLayerVector, err: errors.New("index offline")},
		&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems("tenant-a", model.SourceLayerFTS, 3)},
		&fakeAdapter{layer: model.SourceLayerGraph, items: tenantItems("tenant-a", model.SourceLayerGraph, 3)},
		&fakeAdapter{layer: model.SourceLayerSummary, items: tenantItems("tenant-a", model.SourceLayerSummary, 3)},
	)

	_, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "clause 8.5", TenantID: "tenant-a",
	}, nil)

	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded, "Expected a mandatory adapter failure to fail the request")
	assert.Equal(t, model.SourceLayerVector, degraded.Layer)
}

func TestRetrieveAmbiguousScopeShortCircuits(t *testing.T) {
	plan := model.RetrievalPlan{
		Intent:          model.IntentAmbiguousScope,
		ScopeCandidates: []string{"ISO 27001", "ISO 9001"},
		ScopeMessage:    "clause 8.5 exists in multiple ingested standards; name the standard to search",
	}

	// The adapter would leak evidence if fan-out ran; an ambiguous plan
	// must short-circuit before it.
	engine := newTestEngine(t, plan,
		&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems("tenant-a", model.SourceLayerVector, 3)},
	)

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "what does clause 8.5 require", TenantID: "tenant-a",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeClarificationRequired, set.Outcome)
	assert.True(t, set.RequiresScopeClarification)
	assert.ElementsMatch(t, []string{"ISO 27001", "ISO 9001"}, set.ScopeCandidates)
	assert.Contains(t, set.ScopeMessage, "8.5")
	assert.Empty(t, set.Items, "Expected zero evidence with a clarification request")
}

func TestRetrieveIsolationBreachAborts(t *testing.T) {
	forged := tenantItems("tenant-a", model.SourceLayerVector, 3)
	forged[1].TenantID = "tenant-b" // forged row in the search path

	engine := newTestEngine(t, hybridPlan(),
		&fakeAdapter{layer: model.SourceLayerVector, items: forged},
		&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems("tenant-a", model.SourceLayerFTS, 3)},
		&fakeAdapter{layer: model.SourceLayerGraph, items: nil},
		&fakeAdapter{layer: model.SourceLayerSummary, items: nil},
	)

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "retention policy", TenantID: "tenant-a",
	}, nil)

	var breach *IsolationBreachError
	require.ErrorAs(t, err, &breach, "Expected the forged tenant tag to abort the request")
	assert.Nil(t, set, "Expected no partial evidence set on a breach")
}

func TestRetrieveTenantInvariantRandomized(t *testing.T) {
	// Two tenants with overlapping content; every returned item must carry
	// the requesting tenant across randomized queries.
	rng := rand.New(rand.NewSource(42))
	tenants := []string{"tenant-a", "tenant-b"}

	adaptersFor := func(tenant string) []SourceAdapter {
		return []SourceAdapter{
			&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems(tenant, model.SourceLayerVector, 8)},
			&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems(tenant, model.SourceLayerFTS, 8)},
			&fakeAdapter{layer: model.SourceLayerGraph, items: tenantItems(tenant, model.SourceLayerGraph, 4)},
			&fakeAdapter{layer: model.SourceLayerSummary, items: tenantItems(tenant, model.SourceLayerSummary, 4)},
		}
	}

	engines := map[string]*Engine{}
	for _, tenant := range tenants {
		engines[tenant] = newTestEngine(t, hybridPlan(), adaptersFor(tenant)...)
	}

	words := []string{"access", "control", "encryption", "retention", "clause", "audit", "backup", "incident"}
	for i := 0; i < 1000; i++ {
		tenant := tenants[rng.Intn(len(tenants))]
		query := words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]

		set, err := engines[tenant].Retrieve(context.Background(), model.RetrievalQuery{
			Text: query, TenantID: tenant,
		}, nil)
		require.NoError(t, err)

		for _, item := range set.Items {
			require.Equal(t, tenant, item.TenantID, "Cross-tenant item in query %d", i)
			require.Equal(t, tenant, item.Metadata.TenantID(), "Cross-tenant metadata in query %d", i)
		}
	}
}

func TestRetrieveRerankPrunesAndReorders(t *testing.T) {
	plan := hybridPlan()
	plan.Rerank = true

	relevant := &model.CandidateItem{
		ID: "relevant", Content: "multi factor authentication policy",
		TenantID: "tenant-a", Similarity: 0.5, Score: 0.5,
		SourceLayer: model.SourceLayerVector, SourceType: "chunk",
	}
	noise := &model.CandidateItem{
		ID: "noise", Content: "cafeteria menu archive",
		TenantID: "tenant-a", Similarity: 0.9, Score: 0.9,
		SourceLayer: model.SourceLayerVector, SourceType: "chunk",
	}

	engine := newTestEngine(t, plan,
		&fakeAdapter{layer: model.SourceLayerVector, items: []*model.CandidateItem{noise, relevant}},
		&fakeAdapter{layer: model.SourceLayerFTS, items: nil},
		&fakeAdapter{layer: model.SourceLayerGraph, items: nil},
		&fakeAdapter{layer: model.SourceLayerSummary, items: nil},
	)

	set, err := engine.Retrieve(context.Background(), model.RetrievalQuery{
		Text: "multi factor authentication", TenantID: "tenant-a",
	}, nil)

	require.NoError(t, err)
	require.Len(t, set.Items, 1, "Expected the zero-overlap item pruned below the threshold")
	assert.Equal(t, "relevant", set.Items[0].ID)
}

func TestRetrieveMulti(t *testing.T) {
	t.Run("Merges across sub-queries", func(t *testing.T) {
		engine := newTestEngine(t, hybridPlan(),
			&fakeAdapter{layer: model.SourceLayerVector, items: tenantItems("tenant-a", model.SourceLayerVector, 5)},
			&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems("tenant-a", model.SourceLayerFTS, 5)},
			&fakeAdapter{layer: model.SourceLayerGraph, items: nil},
			&fakeAdapter{layer: model.SourceLayerSummary, items: nil},
		)

		set, err := engine.RetrieveMulti(context.Background(),
			model.RetrievalQuery{TenantID: "tenant-a"},
			[]model.SubQuery{{Text: "access control"}, {Text: "encryption at rest"}},
			nil,
		)

		require.NoError(t, err)
		assert.False(t, set.Partial)
		require.Len(t, set.Statuses, 2)
		for _, status := range set.Statuses {
			assert.Equal(t, "ok", status.Status)
		}
		assert.NotEmpty(t, set.Items)
	})

	t.Run("Reports failed sub-query as partial", func(t *testing.T) {
		plan := hybridPlan()
		plan.Intent = model.IntentSpecific

		calls := 0
		flaky := &flakyAdapter{layer: model.SourceLayerVector, failOn: 2, calls: &calls,
			items: tenantItems("tenant-a", model.SourceLayerVector, 3)}

		engine := newTestEngine(t, plan,
			flaky,
			&fakeAdapter{layer: model.SourceLayerFTS, items: tenantItems("tenant-a", model.SourceLayerFTS, 3)},
			&fakeAdapter{layer: model.SourceLayerGraph, items: nil},
			&fakeAdapter{layer: model.SourceLayerSummary, items: nil},
		)

		set, err := engine.RetrieveMulti(context.Background(),
			model.RetrievalQuery{TenantID: "tenant-a"},
			[]model.SubQuery{{Text: "clause 8.5"}, {Text: "clause 9.2"}},
			nil,
		)

		require.NoError(t, err)
		assert.True(t, set.Partial, "Expected the failed sub-query to mark the response partial")
		require.Len(t, set.Statuses, 2)
		assert.Equal(t, "ok", set.Statuses[0].Status)
		assert.Equal(t, "error", set.Statuses[1].Status)
		assert.NotEmpty(t, set.Items, "Expected evidence from the healthy sub-query")
	})
}

// flakyAdapter fails on its nth call, for multi-query partial tests.
type flakyAdapter struct {
	layer  model.SourceLayer
	items  []*model.CandidateItem
	failOn int
	calls  *int
}

func (a *flakyAdapter) Layer() model.SourceLayer { return a.layer }

func (a *flakyAdapter) Search(_ context.Context, _ ScopedQuery, k int) ([]*model.CandidateItem, error) {
	*a.calls++
	if *a.calls == a.failOn {
		return nil, errors.New("transient failure")
	}
	items := a.items
	if len(items) > k {
		items = items[:k]
	}
	out := make([]*model.CandidateItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out, nil
}

func TestExplainAnnotatesWithoutReordering(t *testing.T) {
	plan := hybridPlan()
	plan.Rerank = true
	plan.AssumedStandard = "ISO 27001"

	items := tenantItems("tenant-a", model.SourceLayerVector, 4)
	for _, item := range items {
		item.Content = "access control " + item.ID
	}
	items[2].Metadata = model.Metadata{model.MetaStandard: "SOC 2", model.MetaTenantID: "tenant-a"}
	items[0].Metadata = model.Metadata{model.MetaStandard: "ISO 27001", model.MetaTenantID: "tenant-a"}

	adapters := []SourceAdapter{
		&fakeAdapter{layer: model.SourceLayerVector, items: items},
		&fakeAdapter{layer: model.SourceLayerFTS, items: nil},
		&fakeAdapter{layer: model.SourceLayerGraph, items: nil},
		&fakeAdapter{layer: model.SourceLayerSummary, items: nil},
	}

	engine := newTestEngine(t, plan, adapters...)
	query := model.RetrievalQuery{Text: "access control", TenantID: "tenant-a"}

	plain, err := engine.Retrieve(context.Background(), query, nil)
	require.NoError(t, err)

	explained, err := engine.Explain(context.Background(), query, nil)
	require.NoError(t, err)

	require.Equal(t, len(plain.Items), len(explained.Items), "Expected identical result sets")
	for i := range plain.Items {
		assert.Equal(t, plain.Items[i].ID, explained.Items[i].ID, "Expected explain to never alter ranking")
	}

	require.Len(t, explained.Explained, len(explained.Items))
	for _, ex := range explained.Explained {
		assert.Equal(t, ex.Item.Score, ex.ScoreComponents.FusedScore)
		require.NotNil(t, ex.ScoreComponents.RerankScore, "Expected rerank scores with rerank enabled")
		assert.Contains(t, ex.MatchedFilters, "tenant:tenant-a")
		if ex.Item.Standard() == "SOC 2" {
			assert.True(t, ex.ScoreComponents.ScopePenalized, "Expected foreign-standard items flagged")
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(&fixedPlanner{}, nil, NewEnforcer(nil, nil), nil, nil, model.DefaultEngineConfig(), nil)
	assert.ErrorIs(t, err, ErrNoAdapters, "Expected an engine without adapters to be rejected")
}
