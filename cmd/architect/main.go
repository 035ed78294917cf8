package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basharArif/prompt-architect-demo/cmd/architect/commands"
	"github.com/basharArif/prompt-architect-demo/logger"
)

var rootCmd = &cobra.Command{
	Use:   "architect",
	Short: "Prompt template manager with a governed execution pipeline",
	Long: `architect - Store, search, and execute prompt templates.

Templates are stored in SQLite and executed through a governed pipeline:
tier-aware model routing, persisted per-tier rate limiting, and
exponential-backoff retries on transient API failures.

Available commands:
  run     - Execute a stored template through its workflow
  search  - Rank stored templates against a query
  list    - List stored templates
  save    - Create or update a template
  delete  - Delete a template
  db      - Database operations and statistics

Examples:
  architect save --name "Code Review" -f review.txt --tags coding,review
  architect search "refactor"
  architect run "Code Review" --var language=go
  architect db stats`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose, _ := cmd.Flags().GetCount("verbose"); verbose > 0 {
			return logger.SetVerbose()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.SearchCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.SaveCmd)
	rootCmd.AddCommand(commands.DeleteCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
