package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
	loadSql "github.com/auditcore/evidencer/sql"
)

// SummariesDBHandlerFunctions defines the interface for Summaries database operations.
type SummariesDBHandlerFunctions interface {
	InsertSummary(summary *model.Summary) error
	SelectSummariesBySimilarity(ctx context.Context, tenantID string, embedding []float32, limit int, threshold float64, collectionID string) ([]*model.Summary, error)
	DeleteSummary(tenantID string, id uuid.UUID) error
}

// SummariesDBHandler reads the precomputed hierarchical-summary index.
// The tree itself is built by an external collaborator.
type SummariesDBHandler struct {
	db *helper.Database
}

// NewSummariesDBHandler creates a new summaries database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSummariesDBHandler(db *helper.Database, embeddingDim int, force bool) (*SummariesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &SummariesDBHandler{db: db}

	err := loadSql.LoadSummariesSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load summaries sql", err)
	}

	err = handler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SummariesDBHandler")

	return handler, nil
}

// CreateTable creates the 'summaries' table if it does not exist yet.
func (h *SummariesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_summaries($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initialize summaries table", err)
	}

	h.db.Logger.Info("Checked/created table summaries")

	return nil
}

// InsertSummary inserts a new summary node
func (h *SummariesDBHandler) InsertSummary(summary *model.Summary) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_summary($1, $2, $3, $4, $5, $6, $7)`,
		summary.TenantID,
		summary.CollectionID,
		summary.Path,
		summary.Level,
		summary.Content,
		pgvector.NewVector(summary.Embedding),
		summary.Metadata,
	)

	err := row.Scan(
		&summary.ID,
		&summary.TenantID,
		&summary.CollectionID,
		&summary.Path,
		&summary.Level,
		&summary.Content,
		&summary.Metadata,
		&summary.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSummariesBySimilarity performs tenant-scoped similarity search
// over the summary index.
func (h *SummariesDBHandler) SelectSummariesBySimilarity(
	ctx context.Context,
	tenantID string,
	embedding []float32,
	limit int,
	threshold float64,
	collectionID string,
) ([]*model.Summary, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_summaries_by_similarity($1, $2, $3, $4, $5)`,
		tenantID,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		collectionID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Summary
	for rows.Next() {
		summary := &model.Summary{}
		err := rows.Scan(
			&summary.ID,
			&summary.TenantID,
			&summary.CollectionID,
			&summary.Path,
			&summary.Level,
			&summary.Content,
			&summary.Metadata,
			&summary.CreatedAt,
			&summary.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, summary)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteSummary deletes a summary node by ID within a tenant
func (h *SummariesDBHandler) DeleteSummary(tenantID string, id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_summary($1, $2)`,
		tenantID,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
