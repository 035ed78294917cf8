// Package pipeline orchestrates multi-call prompt execution workflows:
// direct, step-back, and chain-of-density.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/ai/provider"
	"github.com/basharArif/prompt-architect-demo/ai/tracker"
	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/prompts"
	"github.com/basharArif/prompt-architect-demo/retry"
	"github.com/basharArif/prompt-architect-demo/router"
)

// ErrCapacityExceeded signals that the tier's token bucket had no capacity.
// The workflow aborts before issuing any network call and is never retried.
var ErrCapacityExceeded = errors.New("rate limit capacity exceeded")

// Workflow names the execution strategies.
type Workflow string

const (
	WorkflowDirect         Workflow = "direct"
	WorkflowStepBack       Workflow = "step-back"
	WorkflowChainOfDensity Workflow = "chain-of-density"
)

// densityIterations is the fixed chain-of-density call count.
const densityIterations = 3

// tracePreviewLen bounds per-iteration trace previews.
const tracePreviewLen = 50

// Meta carries success-path execution metadata.
type Meta struct {
	Model     string
	LatencyMS int64
	Trace     []string
}

// Result is a successful workflow execution.
type Result struct {
	Text string
	Meta Meta
}

// Runner executes templates through the router, rate limiter, and retry
// wrapper. It does not touch the template store; incrementing usage is the
// caller's responsibility.
type Runner struct {
	router  *router.Router
	invoker provider.Invoker
	policy  retry.Policy
	tracker *tracker.Tracker
	logger  *zap.SugaredLogger
	timeNow func() time.Time
}

// NewRunner creates a workflow runner. tracker may be nil.
func NewRunner(rt *router.Router, invoker provider.Invoker, policy retry.Policy, tr *tracker.Tracker, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{
		router:  rt,
		invoker: invoker,
		policy:  policy,
		tracker: tr,
		logger:  logger,
		timeNow: time.Now,
	}
}

// WorkflowFor selects the workflow from the template's algorithm flags.
// The flags are mutually exclusive by convention, but the data model does
// not enforce that; step-back takes precedence when both are set.
func WorkflowFor(t *prompts.Template) Workflow {
	if t.StepBack {
		return WorkflowStepBack
	}
	if t.ChainOfDensity {
		return WorkflowChainOfDensity
	}
	return WorkflowDirect
}

// Execute hydrates the template and runs its workflow. Calls within a
// workflow are strictly sequential; each is independently retried. Latency
// covers the whole workflow, start to finish.
func (r *Runner) Execute(ctx context.Context, template *prompts.Template, values map[string]string) (*Result, error) {
	hydrated, err := template.Hydrate(values)
	if err != nil {
		return nil, err
	}

	mode, err := router.ParseMode(template.Tier)
	if err != nil {
		return nil, err
	}
	route := r.router.Route(mode)
	workflow := WorkflowFor(template)

	r.logger.Infow("Executing template",
		"template", template.Name,
		"workflow", workflow,
		"mode", mode,
		"model", route.Model,
	)

	start := r.timeNow()

	var text string
	var trace []string

	switch workflow {
	case WorkflowStepBack:
		text, trace, err = r.runStepBack(ctx, template.ID, route, hydrated)
	case WorkflowChainOfDensity:
		text, trace, err = r.runChainOfDensity(ctx, template.ID, route, hydrated)
	default:
		text, err = r.call(ctx, WorkflowDirect, template.ID, route, hydrated)
	}

	latency := r.timeNow().Sub(start).Milliseconds()

	if err != nil {
		// Partial trace is a success-path artifact; it is not surfaced here
		return nil, err
	}

	return &Result{
		Text: text,
		Meta: Meta{
			Model:     route.Model,
			LatencyMS: latency,
			Trace:     trace,
		},
	}, nil
}

// runStepBack performs exactly two calls: an abstraction pass on the
// lightweight tier regardless of the template's configured tier, then a
// grounded answer on the configured tier.
func (r *Runner) runStepBack(ctx context.Context, promptID string, route router.Route, hydrated string) (string, []string, error) {
	fastRoute := r.router.Route(router.ModeFast)

	abstractionPrompt := fmt.Sprintf(
		"Restate the following request as a single, general principle or "+
			"abstract question that captures what it is really asking:\n\n%s",
		hydrated,
	)
	abstraction, err := r.call(ctx, WorkflowStepBack, promptID, fastRoute, abstractionPrompt)
	if err != nil {
		return "", nil, err
	}

	trace := []string{"abstraction: " + abstraction}

	groundedPrompt := fmt.Sprintf(
		"General principle:\n%s\n\nUsing that principle, answer the original request:\n%s",
		abstraction, hydrated,
	)
	final, err := r.call(ctx, WorkflowStepBack, promptID, route, groundedPrompt)
	if err != nil {
		return "", nil, err
	}

	trace = append(trace, "grounded answer: "+preview(final))
	return final, trace, nil
}

// runChainOfDensity performs exactly three calls: an initial concise
// response, then two densify-and-rewrite passes fed the previous output.
func (r *Runner) runChainOfDensity(ctx context.Context, promptID string, route router.Route, hydrated string) (string, []string, error) {
	var trace []string
	var previous string

	for i := 0; i < densityIterations; i++ {
		var prompt string
		if i == 0 {
			prompt = fmt.Sprintf("Provide an initial concise response to:\n\n%s", hydrated)
		} else {
			prompt = fmt.Sprintf(
				"Identify important entities missing from the previous response "+
					"and rewrite it to include them without increasing its length.\n\n"+
					"Request:\n%s\n\nPrevious response:\n%s",
				hydrated, previous,
			)
		}

		output, err := r.call(ctx, WorkflowChainOfDensity, promptID, route, prompt)
		if err != nil {
			return "", nil, err
		}

		trace = append(trace, fmt.Sprintf("iteration %d: %s", i, preview(output)))
		previous = output
	}

	return previous, trace, nil
}

// call checks out one bucket unit, then performs a single retry-wrapped
// model invocation. Insufficient capacity aborts before any network call.
func (r *Runner) call(ctx context.Context, workflow Workflow, promptID string, route router.Route, prompt string) (string, error) {
	allowed, err := route.Bucket.Consume(1)
	if err != nil {
		// Persistence trouble; the allow/deny decision itself is valid
		r.logger.Warnw("Failed to persist rate limit state", "tier", route.Bucket.Tier(), "error", err)
	}
	if !allowed {
		return "", errors.WithHintf(
			errors.Wrapf(ErrCapacityExceeded, "%s tier", route.Bucket.Tier()),
			"the %s bucket refills over time; try again shortly", route.Bucket.Tier(),
		)
	}

	start := r.timeNow()
	resp, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*provider.Response, error) {
		return r.invoker.Invoke(ctx, route.Model, prompt, route.Config)
	})
	latency := r.timeNow().Sub(start).Milliseconds()

	record := &tracker.Invocation{
		PromptID:  promptID,
		Workflow:  string(workflow),
		Model:     route.Model,
		LatencyMS: latency,
		Success:   err == nil,
	}
	if err != nil {
		record.Error = err.Error()
	}
	if trackErr := r.tracker.Record(record); trackErr != nil {
		r.logger.Warnw("Failed to record invocation", "error", trackErr)
	}

	if err != nil {
		// Surface the upstream error verbatim
		return "", err
	}

	return resp.Text, nil
}

// preview truncates text for trace entries.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= tracePreviewLen {
		return text
	}
	return string(runes[:tracePreviewLen]) + "..."
}
