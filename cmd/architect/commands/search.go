package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SearchCmd ranks stored templates against a query.
var SearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank stored templates against a query",
	Long: `Rank stored templates against a query using hybrid relevance:
keyword matches on name, description, and tags; semantic similarity when
embeddings are enabled; recency of last update; and usage frequency.

Examples:
  architect search "refactor"
  architect search "sql tuning" --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var searchLimitFlag int

func init() {
	SearchCmd.Flags().IntVar(&searchLimitFlag, "limit", 0, "Maximum results to show (0 = configured default)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.searcher.Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(results) == 0 {
		pterm.Info.Println("No matching templates")
		return nil
	}

	limit := searchLimitFlag
	if limit <= 0 {
		limit = a.cfg.Search.ResultLimit
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	for _, r := range results {
		line := pterm.LightGreen(r.Template.Name)
		if len(r.Template.Tags) > 0 {
			line += " " + pterm.Gray("["+strings.Join(r.Template.Tags, ", ")+"]")
		}
		pterm.Printf("%6.1f  %s\n", r.Score, line)
		if r.Template.Description != "" {
			pterm.Printf("        %s\n", pterm.Gray(r.Template.Description))
		}
	}

	return nil
}
