package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/mcp"
	"github.com/sweetpotato0/enrichrag/rag/answer"
)

var (
	askTopK     int
	askNoEnrich bool
	askJSON     bool
	askIngest   []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieves the most relevant chunks, generates an answer with a confidence
score and, when the answer is incomplete, enriches the index once from trusted
external sources.

With the in-memory vector store the index only lives for this process, so
use --ingest to load documents first:
  enrichrag ask --ingest ./handbook "How many vacation days do I get?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askNoEnrich, "no-enrich", false, "never fetch external sources")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().StringSliceVar(&askIngest, "ingest", nil, "files or directories to index before answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if askTopK < 0 || askTopK > 20 {
		return fmt.Errorf("--top-k must be between 1 and 20")
	}

	ctx := cmd.Context()
	app, err := openApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if len(askIngest) > 0 {
		if _, err := ingestPaths(ctx, app.retriever, askIngest, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	resp, err := app.pipeline.AnswerWith(ctx, query, answer.RunOptions{
		TopK:            askTopK,
		AllowEnrichment: !askNoEnrich && cfg.Enrichment.Enabled,
	})
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Println(mcp.RenderAnswer(resp))
	for _, s := range resp.Suggestions {
		cmd.Printf("Suggestion (%s): %s\n", s.Priority, s.Suggestion)
	}
	return nil
}
