package cli

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

var (
	queryLimit     int
	queryThreshold float64
	queryRerank    bool
	queryDiversity float64
	querySources   []string
	queryBoosts    []string
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the vector store",
	Long: `Embed the query text and return the most similar stored chunks,
ranked by cosine similarity with optional re-ranking, diversification
and score boosts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initServices(); err != nil {
			return err
		}
		defer closeServices()

		opts := domain.QueryOptions{
			Limit:              queryLimit,
			Threshold:          queryThreshold,
			Rerank:             queryRerank,
			DiversityThreshold: queryDiversity,
			Sources:            querySources,
			BoostFactors:       parseBoosts(queryBoosts),
		}

		results, err := retrieval.Query(cmd.Context(), strings.Join(args, " "), opts)
		if err != nil {
			return err
		}

		if queryJSON {
			return outputQueryJSON(cmd, results)
		}
		outputQueryTable(cmd, results)
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", domain.DefaultQueryLimit, "maximum number of results")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", domain.DefaultQueryThreshold, "minimum similarity (0-1, negative disables)")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "re-rank by importance, quality and recency")
	queryCmd.Flags().Float64Var(&queryDiversity, "diversity", 0, "suppress near-duplicate results above this Jaccard similarity")
	queryCmd.Flags().StringSliceVar(&querySources, "source", nil, "restrict results to these sources")
	queryCmd.Flags().StringSliceVar(&queryBoosts, "boost", nil, "score boosts as type=factor (e.g. code=1.5)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

// parseBoosts converts "key=factor" pairs into a boost map. Malformed
// pairs are skipped.
func parseBoosts(pairs []string) map[string]float64 {
	if len(pairs) == 0 {
		return nil
	}
	boosts := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		boosts[key] = f
	}
	return boosts
}

type queryResultJSON struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Source     string         `json:"source"`
	Similarity float64        `json:"similarity"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func outputQueryJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	out := make([]queryResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, queryResultJSON{
			ID:         r.Record.ID,
			Content:    r.Record.Content,
			Source:     r.Record.Source,
			Similarity: r.Similarity,
			Score:      r.Score,
			Metadata:   r.Record.Metadata,
			CreatedAt:  r.Record.CreatedAt,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.QueryResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Printf("Found %d result(s):\n\n", len(results))
	for i, r := range results {
		cmd.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Record.Source)
		cmd.Printf("   %s\n\n", truncateContent(r.Record.Content, 200))
	}
}

// truncateContent shortens content for table display, collapsing
// newlines so each result stays on one line.
func truncateContent(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
