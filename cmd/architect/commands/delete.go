package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// DeleteCmd deletes a template.
var DeleteCmd = &cobra.Command{
	Use:   "delete <name-or-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	template, err := resolveTemplate(a.store, args[0])
	if err != nil {
		return err
	}

	if err := a.store.Delete(template.ID); err != nil {
		return err
	}

	pterm.Printf("%s %s\n", pterm.LightGreen("✓ Deleted:"), pterm.White(template.Name))
	return nil
}
