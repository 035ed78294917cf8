package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/logger"
	"github.com/basharArif/prompt-architect-demo/pipeline"
	"github.com/basharArif/prompt-architect-demo/router"
)

// RunCmd executes a stored template through its workflow.
var RunCmd = &cobra.Command{
	Use:   "run <name-or-id>",
	Short: "Execute a stored prompt template",
	Long: `Execute a stored template through its configured workflow.

The template's tier selects the model and rate limit bucket. Templates
flagged step-back or chain-of-density run their multi-call workflow;
everything else is a single direct call.

Examples:
  architect run "Code Review" --var language=go --var file=main.go
  architect run 4f8a... --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runVarFlags  []string
	runTierFlag  string
	runTraceFlag bool
)

func init() {
	RunCmd.Flags().StringArrayVar(&runVarFlags, "var", nil, "Template variable as name=value (repeatable)")
	RunCmd.Flags().StringVar(&runTierFlag, "tier", "", "Override the template's tier for this run")
	RunCmd.Flags().BoolVar(&runTraceFlag, "trace", false, "Print intermediate workflow steps")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	template, err := resolveTemplate(a.store, args[0])
	if err != nil {
		return err
	}

	if runTierFlag != "" {
		if _, err := router.ParseMode(runTierFlag); err != nil {
			return err
		}
		template.Tier = runTierFlag
	}

	values, err := parseVars(runVarFlags)
	if err != nil {
		return err
	}

	result, err := a.runner.Execute(cmd.Context(), template, values)
	if err != nil {
		if errors.Is(err, pipeline.ErrCapacityExceeded) {
			pterm.Warning.Printfln("Rate limit reached: %v", err)
		}
		return err
	}

	// Usage feeds the ranking boost; a failed increment only dulls future
	// search ordering, so it never fails the run.
	if err := a.store.IncrementUsage(template.ID); err != nil {
		logger.Logger.Warnw("Failed to increment usage count",
			"template", template.Name,
			"error", err,
		)
	}

	if runTraceFlag {
		for _, entry := range result.Meta.Trace {
			pterm.Printf("  %s %s\n", pterm.Gray("→"), pterm.Gray(entry))
		}
		if len(result.Meta.Trace) > 0 {
			pterm.Println()
		}
	}

	fmt.Println(result.Text)
	pterm.Printf("\n%s\n", pterm.Gray(fmt.Sprintf("model=%s latency=%dms", result.Meta.Model, result.Meta.LatencyMS)))

	return nil
}

// parseVars converts repeated name=value flags into a value map.
func parseVars(flags []string) (map[string]string, error) {
	values := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, errors.Newf("invalid --var %q, expected name=value", f)
		}
		values[name] = value
	}
	return values, nil
}
