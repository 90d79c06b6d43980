package sql

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/lib/pq"
)

//go:embed init.sql
var initSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed summaries.sql
var summariesSQL string

// Function lists for verification. A handler refuses to start against a
// schema whose search primitives are missing or renamed.
var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_chunks_by_similarity",
	"select_chunks_by_fts",
	"delete_chunk",
}

var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_standards",
	"select_standards_for_clause",
	"delete_document",
}

var EdgesFunctions = []string{
	"init_edges",
	"insert_edge",
	"select_edges_from_entity",
	"select_chunks_for_entity",
	"delete_edge",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_entities_by_terms",
	"delete_entity",
}

var SummariesFunctions = []string{
	"init_summaries",
	"insert_summary",
	"select_summaries_by_similarity",
	"delete_summary",
}

// Init initializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return load(db, chunksSQL, ChunksFunctions, "chunks", force)
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return load(db, documentsSQL, DocumentsFunctions, "documents", force)
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return load(db, edgesSQL, EdgesFunctions, "edges", force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return load(db, entitiesSQL, EntitiesFunctions, "entities", force)
}

// LoadSummariesSql loads summary-related SQL functions
func LoadSummariesSql(db *sql.DB, force bool) error {
	return load(db, summariesSQL, SummariesFunctions, "summaries", force)
}

func load(db *sql.DB, script string, functions []string, name string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	return nil
}

// checkFunctions reports whether every named function exists in pg_proc.
func checkFunctions(db *sql.DB, functions []string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT count(DISTINCT proname) FROM pg_proc WHERE proname = ANY($1)`,
		pq.Array(functions),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == len(functions), nil
}
