package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
	loadSql "github.com/auditcore/evidencer/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	SelectChunk(ctx context.Context, tenantID string, id uuid.UUID) (*model.Chunk, error)
	SelectChunksBySimilarity(ctx context.Context, tenantID string, embedding []float32, limit int, threshold float64, collectionID string, standards []string) ([]*model.Chunk, error)
	SelectChunksByFullText(ctx context.Context, tenantID string, query string, limit int, collectionID string, standards []string) ([]*model.Chunk, error)
	DeleteChunk(tenantID string, id uuid.UUID) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk SQL functions and verifies their presence; a schema
// whose search primitives are missing fails here instead of at query time.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &ChunksDBHandler{db: db}

	err := loadSql.LoadChunksSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = handler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return handler, nil
}

// CreateTable creates the 'chunks' table with indexes if it does not
// exist yet.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initialize chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7)`,
		chunk.TenantID,
		chunk.CollectionID,
		chunk.DocumentRID,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.ChunkIndex,
		chunk.Metadata,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentRID,
		&chunk.TenantID,
		&chunk.CollectionID,
		&chunk.Content,
		&chunk.ChunkIndex,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID within a tenant
func (h *ChunksDBHandler) SelectChunk(ctx context.Context, tenantID string, id uuid.UUID) (*model.Chunk, error) {
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_chunk($1, $2)`,
		tenantID,
		id,
	)

	chunk := &model.Chunk{}
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentRID,
		&chunk.TenantID,
		&chunk.CollectionID,
		&chunk.Content,
		&chunk.ChunkIndex,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksBySimilarity performs tenant-scoped vector similarity
// search. Scoping happens inside the SQL function, not after the fact.
func (h *ChunksDBHandler) SelectChunksBySimilarity(
	ctx context.Context,
	tenantID string,
	embedding []float32,
	limit int,
	threshold float64,
	collectionID string,
	standards []string,
) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4, $5, $6)`,
		tenantID,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		collectionID,
		pq.Array(standards),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentRID,
			&chunk.TenantID,
			&chunk.CollectionID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectChunksByFullText performs tenant-scoped keyword search using
// ts_rank over the generated tsvector column.
func (h *ChunksDBHandler) SelectChunksByFullText(
	ctx context.Context,
	tenantID string,
	query string,
	limit int,
	collectionID string,
	standards []string,
) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_by_fts($1, $2, $3, $4, $5)`,
		tenantID,
		query,
		limit,
		collectionID,
		pq.Array(standards),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentRID,
			&chunk.TenantID,
			&chunk.CollectionID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.FTSRank,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteChunk deletes a chunk by ID within a tenant
func (h *ChunksDBHandler) DeleteChunk(tenantID string, id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunk($1, $2)`,
		tenantID,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
