package commands

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/logger"
	"github.com/basharArif/prompt-architect-demo/prompts"
)

// SaveCmd creates or updates a template.
var SaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a template",
	Long: `Create a template, or update one by passing --id.

Template text uses {{name}} placeholders. Declare defaults for them with
--var name=default; placeholders without a default must be supplied at run
time.

Examples:
  architect save --name "Code Review" -f review.txt --tags coding,review
  architect save --name "Summarize" --text "Summarize {{input}}" --tier smart --chain-of-density`,
	RunE: runSave,
}

var (
	saveIDFlag             string
	saveNameFlag           string
	saveDescriptionFlag    string
	saveTagsFlag           []string
	saveFileFlag           string
	saveTextFlag           string
	saveTierFlag           string
	saveStepBackFlag       bool
	saveChainOfDensityFlag bool
	saveVarFlags           []string
)

func init() {
	SaveCmd.Flags().StringVar(&saveIDFlag, "id", "", "Update an existing template by ID")
	SaveCmd.Flags().StringVar(&saveNameFlag, "name", "", "Template name (required)")
	SaveCmd.Flags().StringVar(&saveDescriptionFlag, "description", "", "Template description")
	SaveCmd.Flags().StringSliceVar(&saveTagsFlag, "tags", nil, "Comma-separated tags")
	SaveCmd.Flags().StringVarP(&saveFileFlag, "file", "f", "", "Read template text from file")
	SaveCmd.Flags().StringVar(&saveTextFlag, "text", "", "Template text inline")
	SaveCmd.Flags().StringVar(&saveTierFlag, "tier", "", "Execution tier: fast, smart, or reasoning (default fast)")
	SaveCmd.Flags().BoolVar(&saveStepBackFlag, "step-back", false, "Run via the step-back workflow")
	SaveCmd.Flags().BoolVar(&saveChainOfDensityFlag, "chain-of-density", false, "Run via the chain-of-density workflow")
	SaveCmd.Flags().StringArrayVar(&saveVarFlags, "var", nil, "Variable default as name=value (repeatable)")

	SaveCmd.MarkFlagRequired("name")
	SaveCmd.MarkFlagsMutuallyExclusive("file", "text")
	SaveCmd.MarkFlagsMutuallyExclusive("step-back", "chain-of-density")
}

func runSave(cmd *cobra.Command, args []string) error {
	text := saveTextFlag
	if saveFileFlag != "" {
		raw, err := os.ReadFile(saveFileFlag)
		if err != nil {
			return errors.Wrapf(err, "failed to read template file %s", saveFileFlag)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("template text is required, pass --file or --text")
	}

	variables, err := parseVariableDefaults(saveVarFlags)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	template := &prompts.Template{
		ID:             saveIDFlag,
		Name:           saveNameFlag,
		Description:    saveDescriptionFlag,
		Tags:           saveTagsFlag,
		Text:           text,
		Variables:      variables,
		StepBack:       saveStepBackFlag,
		ChainOfDensity: saveChainOfDensityFlag,
		Tier:           saveTierFlag,
	}
	if saveIDFlag != "" {
		existing, err := a.store.GetByID(saveIDFlag)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.Newf("no template with ID %s", saveIDFlag)
		}
		template.UsageCount = existing.UsageCount
	}

	if err := template.Validate(); err != nil {
		return err
	}

	// Embedding failure downgrades the template to keyword-only search
	if a.embedder != nil {
		embedding, err := a.embedder.Embed(cmd.Context(), embeddingText(template))
		if err != nil {
			logger.Logger.Warnw("Failed to embed template, saving without embedding",
				"template", template.Name,
				"error", err,
			)
		} else {
			template.Embedding = embedding
		}
	}

	if err := a.store.Save(template); err != nil {
		return err
	}

	pterm.Printf("%s %s %s\n",
		pterm.LightGreen("✓ Saved:"),
		pterm.White(template.Name),
		pterm.Gray("("+template.ID+")"),
	)
	return nil
}

// embeddingText is the canonical text embedded for a template: the fields
// the ranking engine also matches keywords on.
func embeddingText(t *prompts.Template) string {
	parts := []string{t.Name}
	if t.Description != "" {
		parts = append(parts, t.Description)
	}
	parts = append(parts, t.Text)
	return strings.Join(parts, "\n")
}

func parseVariableDefaults(flags []string) ([]prompts.Variable, error) {
	variables := make([]prompts.Variable, 0, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, errors.Newf("invalid --var %q, expected name=default", f)
		}
		variables = append(variables, prompts.Variable{Name: name, Default: value})
	}
	return variables, nil
}
