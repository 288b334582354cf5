package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	searchLimit    int
	searchProject  string
	searchDomain   string
	searchFrom     string
	searchTo       string
	searchEntity   string
	searchInsights bool
	searchText     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks",
	Long: `Ranks stored chunks against a query.
Combines keyword (BM25) and semantic (vector) search when an embedding
provider is configured, and falls back to BM25 when it is not.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "only return chunks of this project")
	searchCmd.Flags().StringVarP(&searchDomain, "domain", "d", "", "only return chunks of this domain")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest chunk date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest chunk date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchEntity, "entity", "", "only return chunks mentioning this entity")
	searchCmd.Flags().BoolVarP(&searchInsights, "insights", "i", false, "also search insights")
	searchCmd.Flags().BoolVar(&searchText, "text-only", false, "keyword search only")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errSearchUnavailable
	}

	opts := domain.SearchOptions{
		Limit: searchLimit,
		Filters: domain.SearchFilters{
			Project:  searchProject,
			Domain:   searchDomain,
			DateFrom: searchFrom,
			DateTo:   searchTo,
			Entity:   searchEntity,
		},
		IncludeInsights: searchInsights,
		TextOnly:        searchText,
	}

	resp, err := searchService.Search(commandContext(cmd), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonFlag {
		return printJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchTable(cmd *cobra.Command, resp *driving.SearchResponse) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s):\n", resp.Method)
	cmd.Println()
	for i, r := range resp.Results {
		// Format: [N] ID (Score)
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.ID, r.Score)
		if r.Summary != "" {
			cmd.Printf("      %s\n", truncate(r.Summary, 72))
		}
		cmd.Println()
	}
	return nil
}
