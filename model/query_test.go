package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalPlanLayers(t *testing.T) {
	t.Run("All layers in fixed order", func(t *testing.T) {
		plan := &RetrievalPlan{VectorK: 1, FTSK: 1, GraphK: 1, SummaryK: 1}
		assert.Equal(t, AllSourceLayers, plan.Layers())
	})

	t.Run("Zero budgets drop layers", func(t *testing.T) {
		plan := &RetrievalPlan{VectorK: 10, GraphK: 5}
		assert.Equal(t, []SourceLayer{SourceLayerVector, SourceLayerGraph}, plan.Layers())
	})
}

func TestRetrievalPlanBudgetFor(t *testing.T) {
	plan := &RetrievalPlan{VectorK: 20, FTSK: 15, GraphK: 10, SummaryK: 5}

	assert.Equal(t, 20, plan.BudgetFor(SourceLayerVector))
	assert.Equal(t, 15, plan.BudgetFor(SourceLayerFTS))
	assert.Equal(t, 10, plan.BudgetFor(SourceLayerGraph))
	assert.Equal(t, 5, plan.BudgetFor(SourceLayerSummary))
	assert.Zero(t, plan.BudgetFor(SourceLayer("unknown")))
}

func TestRetrievalPlanMandatory(t *testing.T) {
	specific := &RetrievalPlan{Intent: IntentSpecific}
	assert.True(t, specific.Mandatory(SourceLayerVector), "Expected vector mandatory for literal lookups")
	assert.False(t, specific.Mandatory(SourceLayerFTS))

	general := &RetrievalPlan{Intent: IntentGeneral}
	assert.False(t, general.Mandatory(SourceLayerVector))
}

func TestDefaultEngineConfig(t *testing.T) {
	config := DefaultEngineConfig()

	assert.Equal(t, 60, config.RRFK)
	assert.Positive(t, config.TopK)
	assert.Positive(t, config.AdapterTimeout)
	assert.Greater(t, config.RequestTimeout, config.AdapterTimeout, "Expected the request deadline to cover an adapter timeout")
	assert.Positive(t, config.PoolSize)
}
