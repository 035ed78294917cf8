package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateSubstitutesValues(t *testing.T) {
	template := &Template{
		Name: "Refactor",
		Text: "Refactor this {{language}} code:\n\n{{ code }}",
		Variables: []Variable{
			{Name: "language", Kind: "text"},
			{Name: "code", Kind: "multiline"},
		},
	}

	hydrated, err := template.Hydrate(map[string]string{
		"language": "Rust",
		"code":     "fn main() {}",
	})
	require.NoError(t, err)
	assert.Equal(t, "Refactor this Rust code:\n\nfn main() {}", hydrated)
}

func TestHydrateFallsBackToDefaults(t *testing.T) {
	template := &Template{
		Name: "Summarize",
		Text: "Summarize in {{style}} style: {{input}}",
		Variables: []Variable{
			{Name: "style", Kind: "text", Default: "concise"},
			{Name: "input", Kind: "multiline"},
		},
	}

	hydrated, err := template.Hydrate(map[string]string{"input": "some text"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize in concise style: some text", hydrated)
}

func TestHydrateErrorsOnUnresolved(t *testing.T) {
	template := &Template{Name: "X", Text: "Hello {{who}}"}

	_, err := template.Hydrate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "who")
}

func TestPlaceholdersAreDistinctAndOrdered(t *testing.T) {
	template := &Template{Text: "{{a}} {{b}} {{a}} {{ c }}"}
	assert.Equal(t, []string{"a", "b", "c"}, template.Placeholders())
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Template{Text: "x"}).Validate(), "missing name")
	assert.Error(t, (&Template{Name: "x"}).Validate(), "missing text")
	assert.Error(t, (&Template{Name: "x", Text: "y", Tier: "turbo"}).Validate(), "unknown tier")
	assert.NoError(t, (&Template{Name: "x", Text: "y", Tier: TierReasoning}).Validate())
	assert.NoError(t, (&Template{Name: "x", Text: "y"}).Validate(), "empty tier defaults later")
}
