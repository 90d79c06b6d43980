package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditcore/evidencer/model"
)

// seedFile is the JSON corpus format consumed by the seed command. All
// records must carry a tenant id; embeddings are computed for chunks and
// summaries that lack one.
type seedFile struct {
	Documents []*model.Document `json:"documents"`
	Chunks    []*model.Chunk    `json:"chunks"`
	Entities  []*model.Entity   `json:"entities"`
	Edges     []*model.Edge     `json:"edges"`
	Summaries []*model.Summary  `json:"summaries"`
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Seed a corpus from a JSON file",
	Long: `seed inserts documents, chunks, entities, edges and summaries from a
JSON file. Ingestion proper (parsing, chunking, graph extraction) lives
outside this tool; seed exists for test fixtures and demos.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var corpus seedFile
		if err := json.Unmarshal(raw, &corpus); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		embed, err := buildEmbedder()
		if err != nil {
			return err
		}

		for _, doc := range corpus.Documents {
			if err := eng.InsertDocument(doc); err != nil {
				return fmt.Errorf("insert document %s: %w", doc.Title, err)
			}
		}
		for _, chunk := range corpus.Chunks {
			if len(chunk.Embedding) == 0 && embed != nil {
				if chunk.Embedding, err = embed(cmd.Context(), chunk.Content); err != nil {
					return fmt.Errorf("embed chunk: %w", err)
				}
			}
			if err := eng.InsertChunk(chunk); err != nil {
				return fmt.Errorf("insert chunk: %w", err)
			}
		}
		for _, entity := range corpus.Entities {
			if err := eng.InsertEntity(entity); err != nil {
				return fmt.Errorf("insert entity %s: %w", entity.Name, err)
			}
		}
		for _, edge := range corpus.Edges {
			if err := eng.InsertEdge(edge); err != nil {
				return fmt.Errorf("insert edge: %w", err)
			}
		}
		for _, summary := range corpus.Summaries {
			if len(summary.Embedding) == 0 && embed != nil {
				if summary.Embedding, err = embed(cmd.Context(), summary.Content); err != nil {
					return fmt.Errorf("embed summary: %w", err)
				}
			}
			if err := eng.InsertSummary(summary); err != nil {
				return fmt.Errorf("insert summary: %w", err)
			}
		}

		fmt.Fprintf(os.Stderr, "Seeded %d documents, %d chunks, %d entities, %d edges, %d summaries\n",
			len(corpus.Documents), len(corpus.Chunks), len(corpus.Entities), len(corpus.Edges), len(corpus.Summaries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
