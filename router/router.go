// Package router maps execution modes to a model, a tier bucket, and
// optional generation config.
package router

import (
	"github.com/basharArif/prompt-architect-demo/ai/provider"
	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/ratelimit"
)

// Mode is an execution mode selecting a model tier.
type Mode string

const (
	// ModeFast routes to the lightweight model on the fast bucket.
	ModeFast Mode = "fast"
	// ModeSmart routes to the heavyweight model on the heavy bucket.
	ModeSmart Mode = "smart"
	// ModeReasoning is ModeSmart plus an extended reasoning budget.
	ModeReasoning Mode = "reasoning"
)

// ParseMode converts a string to a Mode. Empty defaults to fast.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fast", "":
		return ModeFast, nil
	case "smart":
		return ModeSmart, nil
	case "reasoning":
		return ModeReasoning, nil
	default:
		return "", errors.Newf("unknown mode: %s (valid: fast, smart, reasoning)", s)
	}
}

// Route is the resolved target for one execution mode.
type Route struct {
	Model  string
	Bucket *ratelimit.Bucket
	Config *provider.GenConfig // nil unless the mode needs extra config
}

// Models names the two model tiers.
type Models struct {
	Fast  string
	Smart string
	// ThinkingBudgetTokens is applied in reasoning mode.
	ThinkingBudgetTokens int
}

// Router is a pure mapping from mode to route. It hands out references to
// the registry's long-lived buckets and never constructs new ones.
type Router struct {
	registry *ratelimit.Registry
	models   Models
}

// New creates a router over the given bucket registry.
func New(registry *ratelimit.Registry, models Models) *Router {
	return &Router{registry: registry, models: models}
}

// Route resolves a mode. Unknown modes resolve as fast.
func (r *Router) Route(mode Mode) Route {
	switch mode {
	case ModeSmart:
		return Route{Model: r.models.Smart, Bucket: r.registry.Heavy}
	case ModeReasoning:
		return Route{
			Model:  r.models.Smart,
			Bucket: r.registry.Heavy,
			Config: &provider.GenConfig{
				ExtendedThinking:     true,
				ThinkingBudgetTokens: r.models.ThinkingBudgetTokens,
			},
		}
	default:
		return Route{Model: r.models.Fast, Bucket: r.registry.Fast}
	}
}
