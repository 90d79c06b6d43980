package evidencer

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/auditcore/evidencer/core/pipeline"
	"github.com/auditcore/evidencer/core/planner"
	"github.com/auditcore/evidencer/core/retrieval"
	"github.com/auditcore/evidencer/database"
	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
	loadSql "github.com/auditcore/evidencer/sql"
)

// Evidencer provides a unified interface to the retrieval engine and all
// database handlers
type Evidencer struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Chunks    *database.ChunksDBHandler
	Entities  *database.EntitiesDBHandler
	Edges     *database.EdgesDBHandler
	Summaries *database.SummariesDBHandler
	Planner   *planner.Planner
	Engine    *retrieval.Engine
	// Logging
	log *slog.Logger
}

// New creates an Evidencer instance with all handlers initialized. embed
// may be nil, which disables the dense vector and summary layers; use
// pipeline.DefaultEmbedder or pipeline.OpenAIEmbedder to enable them.
func New(dbConfig *helper.DatabaseConfiguration, embeddingDim int, engineConfig model.EngineConfig, embed pipeline.EmbedFunc) (*Evidencer, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("evidencer", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (documents first, then the
	// tables referencing them). force=false to not reload if functions
	// already exist.
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	summaries, err := database.NewSummariesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create summaries handler", err)
	}

	plnr := planner.New(&catalogProbe{documents: documents}, engineConfig, logger)

	adapters := []retrieval.SourceAdapter{
		retrieval.NewVectorAdapter(chunks, engineConfig.SimilarityThreshold),
		retrieval.NewFTSAdapter(chunks),
		retrieval.NewGraphAdapter(entities, edges),
		retrieval.NewSummaryAdapter(summaries, engineConfig.SimilarityThreshold),
	}
	enforcer := retrieval.NewEnforcer(&recordVerifier{chunks: chunks}, logger)

	engine, err := retrieval.NewEngine(plnr, adapters, enforcer, retrieval.NewLexicalReranker(), embed, engineConfig, logger)
	if err != nil {
		return nil, helper.NewError("create retrieval engine", err)
	}

	return &Evidencer{
		DB:        db,
		Documents: documents,
		Chunks:    chunks,
		Entities:  entities,
		Edges:     edges,
		Summaries: summaries,
		Planner:   plnr,
		Engine:    engine,
		log:       logger,
	}, nil
}

// Close releases the engine's worker pool and the database connection.
func (e *Evidencer) Close() error {
	if e.Engine != nil {
		e.Engine.Close()
	}
	if e.DB != nil && e.DB.Instance != nil {
		return e.DB.Instance.Close()
	}
	return nil
}

// Retrieve runs one hybrid retrieval request and returns its evidence set.
func (e *Evidencer) Retrieve(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.EvidenceSet, error) {
	return e.Engine.Retrieve(ctx, query, filter)
}

// RetrieveMulti runs independent sub-queries under one tenant scope and
// merges their evidence.
func (e *Evidencer) RetrieveMulti(ctx context.Context, query model.RetrievalQuery, subs []model.SubQuery, filter *model.ScopeFilter) (*model.MultiEvidenceSet, error) {
	return e.Engine.RetrieveMulti(ctx, query, subs, filter)
}

// Explain runs a retrieval and annotates every item with its score
// decomposition, without altering ranking.
func (e *Evidencer) Explain(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) (*model.ExplainedEvidenceSet, error) {
	return e.Engine.Explain(ctx, query, filter)
}

// ValidateScope checks a query and filter combination without retrieving.
func (e *Evidencer) ValidateScope(ctx context.Context, query model.RetrievalQuery, filter *model.ScopeFilter) model.ScopeReport {
	return e.Planner.ValidateScope(ctx, query, filter)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (e *Evidencer) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return e.Chunks.ChangeIndexType(ctx, indexType, params)
}

// InsertDocument seeds one document record. Ingestion pipelines live
// outside this module; these passthroughs exist for tools and tests.
func (e *Evidencer) InsertDocument(doc *model.Document) error {
	return e.Documents.InsertDocument(doc)
}

// InsertChunk seeds one chunk. The embedder must be configured when the
// chunk carries no embedding.
func (e *Evidencer) InsertChunk(chunk *model.Chunk) error {
	return e.Chunks.InsertChunk(chunk)
}

// InsertEntity seeds one graph entity.
func (e *Evidencer) InsertEntity(entity *model.Entity) error {
	return e.Entities.InsertEntity(entity)
}

// InsertEdge seeds one graph edge.
func (e *Evidencer) InsertEdge(edge *model.Edge) error {
	return e.Edges.InsertEdge(edge)
}

// InsertSummary seeds one hierarchical summary node.
func (e *Evidencer) InsertSummary(summary *model.Summary) error {
	return e.Summaries.InsertSummary(summary)
}

// catalogProbe backs the planner's ambiguity detection with the documents
// catalog.
type catalogProbe struct {
	documents *database.DocumentsDBHandler
}

func (p *catalogProbe) Standards(ctx context.Context, tenantID string) ([]string, error) {
	return p.documents.SelectStandards(ctx, tenantID)
}

func (p *catalogProbe) StandardsForClause(ctx context.Context, tenantID string, clause string) ([]string, error) {
	return p.documents.SelectStandardsForClause(ctx, tenantID, clause)
}

// recordVerifier confirms candidate ownership against the chunks table
// for the isolation stamping pass.
type recordVerifier struct {
	chunks *database.ChunksDBHandler
}

func (v *recordVerifier) VerifyOwnership(ctx context.Context, tenantID string, itemID string) (bool, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return false, nil
	}
	chunk, err := v.chunks.SelectChunk(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return chunk.TenantID == tenantID, nil
}
