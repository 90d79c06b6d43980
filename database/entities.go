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

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	SelectEntity(ctx context.Context, tenantID string, id uuid.UUID) (*model.Entity, error)
	SelectEntitiesByTerms(ctx context.Context, tenantID string, terms []string, entityTypes []string, limit int) ([]*model.Entity, error)
	DeleteEntity(tenantID string, id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &EntitiesDBHandler{db: db}

	err := loadSql.LoadEntitiesSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = handler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return handler, nil
}

// CreateTable creates the 'entities' table if it does not exist yet.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		return helper.NewError("initialize entities table", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity (or merges metadata if it exists)
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4)`,
		entity.TenantID,
		entity.Name,
		entity.Type,
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.TenantID,
		&entity.Name,
		&entity.Type,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by ID within a tenant
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, tenantID string, id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_entity($1, $2)`,
		tenantID,
		id,
	)

	entity := &model.Entity{}
	err := row.Scan(
		&entity.ID,
		&entity.TenantID,
		&entity.Name,
		&entity.Type,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByTerms finds entities whose name matches one of the
// query terms. Anchor matching for graph retrieval.
func (h *EntitiesDBHandler) SelectEntitiesByTerms(ctx context.Context, tenantID string, terms []string, entityTypes []string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_entities_by_terms($1, $2, $3, $4)`,
		tenantID,
		pq.Array(terms),
		pq.Array(entityTypes),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.TenantID,
			&entity.Name,
			&entity.Type,
			&entity.Metadata,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity deletes an entity by ID within a tenant
func (h *EntitiesDBHandler) DeleteEntity(tenantID string, id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1, $2)`,
		tenantID,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
