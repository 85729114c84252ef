package cli

import (
	"fmt"
	"strings"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/rag"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		knowledgeId string
		section     string
		topK        int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a knowledge base",
		Long: `Embed the query and print the nearest chunks of one knowledge base.

Examples:
  ragctl search "refund policy" --knowledge-id kb1
  ragctl search "rate limits" --knowledge-id kb1 --section "API" -n 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				hits, err := a.Search.Search(cmd.Context(), rag.Query{
					KnowledgeId: knowledgeId,
					Text:        args[0],
					Section:     section,
					TopK:        topK,
				})
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(hits) == 0 {
					printf(out, "No results found.\n")
					return nil
				}
				printf(out, "Found %d results:\n\n", len(hits))
				for i, h := range hits {
					printf(out, "%d. %s #%d  score %.3f\n", i+1, h.FileName, h.ChunkIndex, h.Score)
					if h.Section != "" {
						printf(out, "   section: %s\n", h.Section)
					}
					printf(out, "   %s\n\n", preview(h.Text, 200))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&knowledgeId, "knowledge-id", "k", "", "knowledge base id")
	cmd.Flags().StringVar(&section, "section", "", "only chunks under this heading")
	cmd.Flags().IntVarP(&topK, "limit", "n", 0, "max results (default 8)")
	return cmd
}

func preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
