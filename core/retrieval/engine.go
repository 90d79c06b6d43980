package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/auditcore/evidencer/core/pipeline"
	"github.com/auditcore/evidencer/model"
)

// Planner produces retrieval plans for the engine. Satisfied by
// *planner.Planner; an interface so engine tests can use a fixed plan.
type Planner interface {
	Plan(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.RetrievalPlan, error)
}

// Engine orchestrates one retrieval request end to end: plan, concurrent
// adapter fan-out, RRF fusion, optional rerank, isolation enforcement and
// the outcome gate. All dependencies are constructor-injected and
// immutable after init.
type Engine struct {
	planner  Planner
	adapters map[model.SourceLayer]SourceAdapter
	enforcer *Enforcer
	reranker Reranker
	embed    pipeline.EmbedFunc
	pool     *ants.Pool
	config   model.EngineConfig
	logger   *slog.Logger
}

// NewEngine creates an engine over the given adapters. embed may be nil
// when no dense layer is configured; reranker defaults to the lexical
// reranker. The worker pool is shared across requests and bounds total
// adapter concurrency process-wide.
func NewEngine(planner Planner, adapters []SourceAdapter, enforcer *Enforcer, reranker Reranker, embed pipeline.EmbedFunc, config model.EngineConfig, logger *slog.Logger) (*Engine, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}
	if logger == nil {
		logger = slog.Default()
	}
	if reranker == nil {
		reranker = NewLexicalReranker()
	}

	byLayer := make(map[model.SourceLayer]SourceAdapter, len(adapters))
	for _, adapter := range adapters {
		byLayer[adapter.Layer()] = adapter
	}

	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = 16
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		planner:  planner,
		adapters: byLayer,
		enforcer: enforcer,
		reranker: reranker,
		embed:    embed,
		pool:     pool,
		config:   config,
		logger:   logger,
	}, nil
}

// Close releases the worker pool.
func (e *Engine) Close() {
	e.pool.Release()
}

// Retrieve executes one query and returns its evidence set. Validation
// and isolation failures are the only hard errors; everything else
// resolves to a well-formed, possibly degraded, response.
func (e *Engine) Retrieve(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.EvidenceSet, error) {
	res, err := e.run(ctx, query, filter, nil)
	if err != nil {
		return nil, err
	}
	return res.set, nil
}

// retrievalResult carries per-request internals the explain variant needs
// beyond the evidence set itself.
type retrievalResult struct {
	set          *model.EvidenceSet
	plan         *model.RetrievalPlan
	rerankScores map[string]float64
}

type layerResult struct {
	layer model.SourceLayer
	items []*model.CandidateItem
	err   error
	ms    int64
}

func (e *Engine) run(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter, override *model.SubQuery) (*retrievalResult, error) {
	plan, err := e.planner.Plan(ctx, query, filter)
	if err != nil {
		return nil, err
	}
	if override != nil && override.Rerank {
		plan.Rerank = true
	}

	trace := model.RetrievalTrace{
		FiltersApplied: plan.Scope,
		EngineMode:     plan.Intent,
	}

	if plan.Intent == model.IntentAmbiguousScope {
		return &retrievalResult{
			plan: plan,
			set: &model.EvidenceSet{
				Trace:                      trace,
				Outcome:                    model.OutcomeClarificationRequired,
				RequiresScopeClarification: true,
				ScopeCandidates:            plan.ScopeCandidates,
				ScopeMessage:               plan.ScopeMessage,
			},
		}, nil
	}

	requestTimeout := e.config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	sq := ScopedQuery{
		Text:          query.Text,
		Scope:         plan.Scope,
		MaxHops:       plan.MaxHops,
		RelationTypes: plan.RelationTypes,
		NodeTypes:     plan.NodeTypes,
	}

	layers := plan.Layers()
	if needsEmbedding(layers) {
		embedding, err := e.embedQuery(ctx, query.Text)
		if err != nil {
			if plan.Mandatory(model.SourceLayerVector) {
				return nil, &DegradedError{Layer: model.SourceLayerVector, Err: err}
			}
			trace.FallbackUsed = true
			trace.AddWarning("embedding unavailable, dense layers skipped")
			layers = dropDenseLayers(layers)
		}
		sq.Embedding = embedding
	}
	if len(layers) == 0 {
		return nil, ErrNoAdapters
	}

	results := e.fanOut(ctx, plan, sq, layers)

	perLayer := make(map[model.SourceLayer][]*model.CandidateItem, len(results))
	for _, r := range results {
		trace.RecordTiming(r.layer, r.ms)
		if r.err != nil {
			if plan.Mandatory(r.layer) {
				return nil, &DegradedError{Layer: r.layer, Err: r.err}
			}
			e.logger.Warn("adapter degraded",
				slog.String("layer", string(r.layer)), slog.Any("error", r.err))
			trace.FallbackUsed = true
			trace.AddWarning(string(r.layer) + " adapter degraded: " + r.err.Error())
			continue
		}
		perLayer[r.layer] = r.items
	}

	items := FuseRRF(perLayer, e.config.RRFK)

	var rerankScores map[string]float64
	if plan.Rerank {
		items, rerankScores, err = e.applyRerank(ctx, query.Text, items)
		if err != nil {
			e.logger.Warn("rerank failed, keeping fused order", slog.Any("error", err))
			trace.AddWarning("rerank failed, fused order kept")
		}
	}

	topK := e.config.TopK
	if override != nil && override.K > 0 {
		topK = override.K
	}
	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}

	if err := e.enforcer.Enforce(ctx, plan.Scope.TenantID, items); err != nil {
		return nil, err
	}

	outcome, message := Gate(plan, items, &trace)
	set := &model.EvidenceSet{
		Items:   items,
		Trace:   trace,
		Outcome: outcome,
	}
	if outcome == model.OutcomeBlocked {
		set.Items = nil
		set.ScopeMessage = message
	}

	return &retrievalResult{set: set, plan: plan, rerankScores: rerankScores}, nil
}

// fanOut submits one task per invoked layer to the shared pool and waits
// for all of them. Each task gets its own per-adapter deadline under the
// request deadline.
func (e *Engine) fanOut(ctx context.Context, plan *model.RetrievalPlan, sq ScopedQuery, layers []model.SourceLayer) []layerResult {
	adapterTimeout := e.config.AdapterTimeout
	if adapterTimeout <= 0 {
		adapterTimeout = 3 * time.Second
	}

	results := make([]layerResult, len(layers))
	var wg sync.WaitGroup

	for i, layer := range layers {
		adapter, ok := e.adapters[layer]
		if !ok {
			results[i] = layerResult{layer: layer, err: ErrNoAdapters}
			continue
		}

		slot, budget := i, plan.BudgetFor(layer)
		task := func() {
			defer wg.Done()
			start := time.Now()
			actx, acancel := context.WithTimeout(ctx, adapterTimeout)
			defer acancel()
			items, err := adapter.Search(actx, sq, budget)
			results[slot] = layerResult{
				layer: adapter.Layer(),
				items: items,
				err:   err,
				ms:    time.Since(start).Milliseconds(),
			}
		}

		wg.Add(1)
		// A saturated pool degrades to inline execution rather than
		// rejecting the request.
		if err := e.pool.Submit(task); err != nil {
			task()
		}
	}

	wg.Wait()
	return results
}

// applyRerank rescores the top slice against the query, prunes below the
// threshold and reorders by rerank score. Fused scores stay untouched so
// the explain variant can report both.
func (e *Engine) applyRerank(ctx context.Context, queryText string, items []*model.CandidateItem) ([]*model.CandidateItem, map[string]float64, error) {
	n := e.config.MaxRerankCandidates
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	if n == 0 {
		return items, nil, nil
	}

	head, tail := items[:n], items[n:]
	scores, err := e.reranker.Rerank(ctx, queryText, head)
	if err != nil {
		return items, nil, err
	}

	byKey := make(map[string]float64, len(head))
	kept := make([]*model.CandidateItem, 0, len(head))
	for i, item := range head {
		if scores[i] < e.config.RerankThreshold {
			continue
		}
		byKey[item.Key()] = scores[i]
		kept = append(kept, item)
	}

	sortReranked(kept, byKey)

	merged := append(kept, tail...)
	for i, item := range merged {
		item.Rank = i + 1
	}
	return merged, byKey, nil
}

func needsEmbedding(layers []model.SourceLayer) bool {
	for _, layer := range layers {
		if layer == model.SourceLayerVector || layer == model.SourceLayerSummary {
			return true
		}
	}
	return false
}

func dropDenseLayers(layers []model.SourceLayer) []model.SourceLayer {
	out := layers[:0]
	for _, layer := range layers {
		if layer != model.SourceLayerVector && layer != model.SourceLayerSummary {
			out = append(out, layer)
		}
	}
	return out
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.embed == nil {
		return nil, ErrEmbedderRequired
	}
	return e.embed(ctx, text)
}
