package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hfarouk/docdex/internal/chat"
	"github.com/hfarouk/docdex/internal/intent"
	"github.com/hfarouk/docdex/internal/retriever"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the knowledge base and answer a question",
	Long: `Runs the full query pipeline: analyzes the question, retrieves relevant
passages with hybrid vector + keyword search, and generates a grounded
answer with source citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 0, "maximum number of passages (defaults to config)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	queryCmd.Flags().Bool("no-answer", false, "skip the LLM answer, print passages only")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noAnswer, _ := cmd.Flags().GetBool("no-answer")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if limit <= 0 {
		limit = a.cfg.Search.TopK
	}

	analysis := intent.New(a.provider).Analyze(ctx, question)

	var results []retriever.Result
	indexType := "none"
	if analysis.Trigger {
		resp, err := a.retriever.Search(ctx, question, retriever.QueryMetadata{
			SemanticQuery: analysis.SemanticQuery,
			KeywordQuery:  analysis.KeywordQuery,
			MustTerms:     analysis.MustTerms,
			ShouldTerms:   analysis.ShouldTerms,
		}, limit, a.cfg.Search.RRFK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		results = resp.Results
		indexType = string(resp.IndexType)
	}

	answer := ""
	if !noAnswer {
		sources := make([]chat.Source, len(results))
		for i, r := range results {
			sources[i] = chat.Source{
				Rank:         i + 1,
				ChunkID:      r.ChunkID,
				DocumentID:   r.DocumentID,
				DocumentName: r.DocumentName,
				PageNum:      r.PageNum,
				Text:         r.Text,
				Scores:       r.Scores,
			}
		}
		answer, err = chat.New(a.provider).Answer(ctx, question, sources)
		if err != nil {
			return fmt.Errorf("generating answer: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"trigger":    analysis.Trigger,
			"index_type": indexType,
			"results":    results,
			"answer":     answer,
		})
	}

	if len(results) == 0 {
		fmt.Println("No passages found.")
	} else {
		fmt.Printf("Found %d passage(s) [%s index]:\n\n", len(results), indexType)
		for i, r := range results {
			fmt.Printf("  %d. [%.4f] %s p.%d\n", i+1, r.Scores.Merged, r.DocumentName, r.PageNum)
			fmt.Printf("     %s\n\n", truncate(r.Text, 160))
		}
	}
	if answer != "" {
		fmt.Println(answer)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
