package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
	loadSql "github.com/auditcore/evidencer/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	InsertEdge(edge *model.Edge) error
	SelectEdgesFromEntity(ctx context.Context, tenantID string, entityID uuid.UUID, relations []model.RelationType) ([]*model.Edge, error)
	SelectChunksForEntity(ctx context.Context, tenantID string, entityID uuid.UUID, limit int) ([]*model.Chunk, error)
	DeleteEdge(tenantID string, id uuid.UUID) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &EdgesDBHandler{db: db}

	err := loadSql.LoadEdgesSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = handler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return handler, nil
}

// CreateTable creates the 'edges' table if it does not exist yet.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		return helper.NewError("initialize edges table", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// InsertEdge inserts a new relation
func (h *EdgesDBHandler) InsertEdge(edge *model.Edge) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_edge($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		edge.TenantID,
		edge.SourceEntityID,
		edge.TargetEntityID,
		string(edge.Relation),
		edge.Weight,
		edge.Bidirectional,
		edge.ChunkID,
		edge.Description,
		edge.Metadata,
	)

	err := row.Scan(
		&edge.ID,
		&edge.TenantID,
		&edge.SourceEntityID,
		&edge.TargetEntityID,
		&edge.Relation,
		&edge.Weight,
		&edge.Bidirectional,
		&edge.ChunkID,
		&edge.Description,
		&edge.Metadata,
		&edge.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdgesFromEntity retrieves outgoing edges of an entity, plus
// incoming bidirectional ones, filtered by relation types.
func (h *EdgesDBHandler) SelectEdgesFromEntity(ctx context.Context, tenantID string, entityID uuid.UUID, relations []model.RelationType) ([]*model.Edge, error) {
	relationStrings := make([]string, len(relations))
	for i, r := range relations {
		relationStrings[i] = string(r)
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_edges_from_entity($1, $2, $3)`,
		tenantID,
		entityID,
		pq.Array(relationStrings),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := rows.Scan(
			&edge.ID,
			&edge.TenantID,
			&edge.SourceEntityID,
			&edge.TargetEntityID,
			&edge.Relation,
			&edge.Weight,
			&edge.Bidirectional,
			&edge.ChunkID,
			&edge.Description,
			&edge.Metadata,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectChunksForEntity retrieves the provenance chunks of edges touching
// an entity.
func (h *EdgesDBHandler) SelectChunksForEntity(ctx context.Context, tenantID string, entityID uuid.UUID, limit int) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_for_entity($1, $2, $3)`,
		tenantID,
		entityID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
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
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// DeleteEdge deletes an edge by ID within a tenant
func (h *EdgesDBHandler) DeleteEdge(tenantID string, id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edge($1, $2)`,
		tenantID,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
