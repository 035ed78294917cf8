package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/basharArif/prompt-architect-demo/prompts"
)

// ListCmd lists stored templates, most recently updated first.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	templates, err := a.store.GetAll()
	if err != nil {
		return err
	}

	if len(templates) == 0 {
		pterm.Info.Println("No templates stored yet. Create one with 'architect save'.")
		return nil
	}

	for _, t := range templates {
		pterm.Printf("%s  %s %s\n",
			pterm.Gray(t.ID[:8]),
			pterm.LightGreen(t.Name),
			pterm.Gray("("+tierLabel(t)+")"),
		)
		if len(t.Tags) > 0 {
			pterm.Printf("          %s\n", pterm.Gray("tags: "+strings.Join(t.Tags, ", ")))
		}
		pterm.Printf("          %s\n",
			pterm.Gray(pterm.Sprintf("used %d times, updated %s", t.UsageCount, t.UpdatedAt.Format("2006-01-02"))))
	}

	return nil
}

// tierLabel summarizes tier plus workflow flags for display.
func tierLabel(t *prompts.Template) string {
	label := t.Tier
	if label == "" {
		label = prompts.TierFast
	}
	switch {
	case t.StepBack:
		label += ", step-back"
	case t.ChainOfDensity:
		label += ", chain-of-density"
	}
	return label
}
