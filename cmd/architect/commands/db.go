package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

// DbCmd groups database operations.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
	Long: `Database operations and statistics.

Examples:
  architect db stats              # Show template, invocation, and bucket state
  architect db stats --limit 10   # Show last 10 invocations`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var statsLimitFlag int

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	dbStatsCmd.Flags().IntVar(&statsLimitFlag, "limit", 20, "Number of recent invocations to show")
}

func runDbStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var totalTemplates, totalInvocations, failedInvocations int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM prompts`).Scan(&totalTemplates); err != nil {
		return fmt.Errorf("failed to count templates: %w", err)
	}
	if err := a.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(success = 0), 0) FROM invocations`).
		Scan(&totalInvocations, &failedInvocations); err != nil {
		return fmt.Errorf("failed to count invocations: %w", err)
	}

	fmt.Printf("Database Statistics\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:     %s\n", a.cfg.Database.Path)
	fmt.Printf("Templates:         %d\n", totalTemplates)
	fmt.Printf("Invocations:       %d (%d failed)\n", totalInvocations, failedInvocations)
	fmt.Println()

	fmt.Printf("Rate Limit Buckets:\n")
	rows, err := a.db.Query(`SELECT tier, tokens, last_refill FROM rate_limits ORDER BY tier`)
	if err != nil {
		return fmt.Errorf("failed to query rate limit state: %w", err)
	}
	defer rows.Close()

	hasBuckets := false
	for rows.Next() {
		var tier, lastRefill string
		var tokens float64
		if err := rows.Scan(&tier, &tokens, &lastRefill); err != nil {
			return fmt.Errorf("failed to scan rate limit row: %w", err)
		}
		hasBuckets = true
		fmt.Printf("  %-6s %.2f tokens (last refill %s)\n", tier, tokens, lastRefill)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !hasBuckets {
		fmt.Printf("  (no persisted state yet)\n")
	}
	fmt.Println()

	fmt.Printf("Recent Invocations (last %d):\n", statsLimitFlag)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	invRows, err := a.db.Query(`
		SELECT workflow, model, latency_ms, success, created_at
		FROM invocations
		ORDER BY created_at DESC
		LIMIT ?
	`, statsLimitFlag)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to query invocations: %w", err)
	}
	if err == nil {
		defer invRows.Close()

		hasInvocations := false
		for invRows.Next() {
			var workflow, model, createdAt string
			var latencyMS int64
			var success bool
			if err := invRows.Scan(&workflow, &model, &latencyMS, &success, &createdAt); err != nil {
				return fmt.Errorf("failed to scan invocation row: %w", err)
			}
			hasInvocations = true

			status := "ok"
			if !success {
				status = "FAIL"
			}
			fmt.Printf("  %s  %-16s %-28s %6dms  %s\n", createdAt, workflow, model, latencyMS, status)
		}
		if err := invRows.Err(); err != nil {
			return err
		}
		if !hasInvocations {
			fmt.Printf("  (none yet)\n")
		}
	}

	return nil
}
