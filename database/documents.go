package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
	loadSql "github.com/auditcore/evidencer/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(doc *model.Document) error
	SelectDocument(tenantID string, rid uuid.UUID) (*model.Document, error)
	SelectStandards(ctx context.Context, tenantID string) ([]string, error)
	SelectStandardsForClause(ctx context.Context, tenantID string, clause string) ([]string, error)
	DeleteDocument(tenantID string, rid uuid.UUID) error
}

// DocumentsDBHandler handles the corpus catalog and serves as the
// planner's scope probe.
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &DocumentsDBHandler{db: db}

	err := loadSql.LoadDocumentsSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = handler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return handler, nil
}

// CreateTable creates the 'documents' table if it does not exist yet.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("initialize documents table", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a new catalog row
func (h *DocumentsDBHandler) InsertDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4, $5, $6)`,
		doc.TenantID,
		doc.CollectionID,
		doc.Standard,
		doc.Title,
		doc.Source,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.TenantID,
		&doc.CollectionID,
		&doc.Standard,
		&doc.Title,
		&doc.Source,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a catalog row by RID within a tenant
func (h *DocumentsDBHandler) SelectDocument(tenantID string, rid uuid.UUID) (*model.Document, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1, $2)`,
		tenantID,
		rid,
	)

	doc := &model.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.TenantID,
		&doc.CollectionID,
		&doc.Standard,
		&doc.Title,
		&doc.Source,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectStandards lists the standards a tenant has ingested
func (h *DocumentsDBHandler) SelectStandards(ctx context.Context, tenantID string) ([]string, error) {
	return h.selectStrings(ctx, `SELECT * FROM select_standards($1)`, tenantID)
}

// SelectStandardsForClause lists the standards a tenant has ingested that
// contain content matching a literal clause reference.
func (h *DocumentsDBHandler) SelectStandardsForClause(ctx context.Context, tenantID string, clause string) ([]string, error) {
	return h.selectStrings(ctx, `SELECT * FROM select_standards_for_clause($1, $2)`, tenantID, clause)
}

func (h *DocumentsDBHandler) selectStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, helper.NewError("scan", err)
		}
		values = append(values, v)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return values, nil
}

// DeleteDocument deletes a catalog row and its chunks via cascade
func (h *DocumentsDBHandler) DeleteDocument(tenantID string, rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_document($1, $2)`,
		tenantID,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
