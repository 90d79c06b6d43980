package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsNewDocumentsDBHandler(t *testing.T) {
	db := initDB(t)

	t.Run("Valid call NewDocumentsDBHandler", func(t *testing.T) {
		handler, err := NewDocumentsDBHandler(db, true)
		assert.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		require.NotNil(t, handler, "Expected NewDocumentsDBHandler to return a non-nil instance")
		require.NotNil(t, handler.db, "Expected handler to have a non-nil database instance")
	})

	t.Run("Invalid call NewDocumentsDBHandler with nil database", func(t *testing.T) {
		_, err := NewDocumentsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating DocumentsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestDocumentsInsertAndSelect(t *testing.T) {
	db := initDB(t)
	documents, err := NewDocumentsDBHandler(db, true)
	require.NoError(t, err)

	doc := seedDocument(t, documents, "tenant-a", "ISO 27001", "Information Security Policy")
	assert.NotZero(t, doc.ID, "Expected inserted document to have an ID")
	assert.NotEmpty(t, doc.RID, "Expected inserted document to have a RID")

	t.Run("Select within tenant", func(t *testing.T) {
		found, err := documents.SelectDocument("tenant-a", doc.RID)
		require.NoError(t, err)
		assert.Equal(t, doc.Title, found.Title)
		assert.Equal(t, "ISO 27001", found.Standard)
		assert.Equal(t, "Test Author", found.Metadata.String("author"))
	})

	t.Run("Select across tenants fails", func(t *testing.T) {
		_, err := documents.SelectDocument("tenant-b", doc.RID)
		assert.Error(t, err, "Expected a foreign tenant to not see the document")
	})

	// Cleanup
	require.NoError(t, documents.DeleteDocument("tenant-a", doc.RID))
}

func TestDocumentsSelectStandards(t *testing.T) {
	db := initDB(t)
	documents, err := NewDocumentsDBHandler(db, true)
	require.NoError(t, err)

	docs := []*struct{ tenant, standard, title string }{
		{"tenant-std-a", "ISO 27001", "ISMS Policy"},
		{"tenant-std-a", "ISO 27001", "ISMS Annex"},
		{"tenant-std-a", "SOC 2", "Trust Services"},
		{"tenant-std-b", "GDPR", "Privacy Notice"},
	}
	for _, d := range docs {
		seedDocument(t, documents, d.tenant, d.standard, d.title)
	}

	standards, err := documents.SelectStandards(context.Background(), "tenant-std-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ISO 27001", "SOC 2"}, standards,
		"Expected distinct standards of the tenant only")
}

func TestDocumentsSelectStandardsForClause(t *testing.T) {
	db := initDB(t)
	documents, err := NewDocumentsDBHandler(db, true)
	require.NoError(t, err)
	chunks, err := NewChunksDBHandler(db, 384, true)
	require.NoError(t, err)

	isoDoc := seedDocument(t, documents, "tenant-clause", "ISO 27001", "ISMS Requirements")
	qmsDoc := seedDocument(t, documents, "tenant-clause", "ISO 9001", "QMS Requirements")
	socDoc := seedDocument(t, documents, "tenant-clause", "SOC 2", "Trust Criteria")

	insertChunk(t, chunks, "tenant-clause", isoDoc, "Clause 8.5 requires documented change control", 0)
	insertChunk(t, chunks, "tenant-clause", qmsDoc, "Clause 8.5 covers production and service provision", 1)
	insertChunk(t, chunks, "tenant-clause", socDoc, "CC6.1 restricts logical access", 2)

	candidates, err := documents.SelectStandardsForClause(context.Background(), "tenant-clause", "8.5")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ISO 27001", "ISO 9001"}, candidates,
		"Expected only standards whose chunks mention the clause")
}
