// Package prompts defines the stored prompt template model and its SQLite
// store.
package prompts

import (
	"regexp"
	"strings"
	"time"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// Execution tiers a template may prefer.
const (
	TierFast      = "fast"
	TierSmart     = "smart"
	TierReasoning = "reasoning"
)

// Variable is one typed template placeholder.
type Variable struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // text, multiline, number
	Default string `json:"default,omitempty"`
}

// Template is a stored, parameterized prompt.
//
// StepBack and ChainOfDensity are mutually exclusive by convention; the
// execution pipeline resolves the conflict deterministically if both are
// set (step-back wins).
type Template struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Text           string     `json:"text"`
	Variables      []Variable `json:"variables,omitempty"`
	StepBack       bool       `json:"step_back,omitempty"`
	ChainOfDensity bool       `json:"chain_of_density,omitempty"`
	Tier           string     `json:"tier"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UsageCount     int        `json:"usage_count"`
	Embedding      []float32  `json:"-"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Placeholders returns the distinct placeholder names in template order.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(t.Text, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Hydrate substitutes every {{name}} placeholder with the supplied value,
// falling back to the variable's declared default. A placeholder with
// neither a value nor a default is an error.
func (t *Template) Hydrate(values map[string]string) (string, error) {
	defaults := make(map[string]string, len(t.Variables))
	for _, v := range t.Variables {
		if v.Default != "" {
			defaults[v.Name] = v.Default
		}
	}

	var missing []string
	hydrated := placeholderPattern.ReplaceAllStringFunc(t.Text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := values[name]; ok {
			return value
		}
		if value, ok := defaults[name]; ok {
			return value
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", errors.Newf("unresolved template variables: %s", strings.Join(missing, ", "))
	}

	return hydrated, nil
}

// Validate checks the template is usable before saving.
func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if t.Text == "" {
		return errors.New("template text is required")
	}
	switch t.Tier {
	case TierFast, TierSmart, TierReasoning:
	case "":
		// Tier defaults to fast on save
	default:
		return errors.Newf("unknown tier: %s", t.Tier)
	}
	return nil
}
