package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basharArif/prompt-architect-demo/ai/provider"
	"github.com/basharArif/prompt-architect-demo/errors"
	"github.com/basharArif/prompt-architect-demo/prompts"
	"github.com/basharArif/prompt-architect-demo/ratelimit"
	"github.com/basharArif/prompt-architect-demo/retry"
	"github.com/basharArif/prompt-architect-demo/router"
)

// fakeInvoker records every invocation and replays scripted responses.
type fakeInvoker struct {
	mu        sync.Mutex
	calls     []invocation
	responses []string
	errs      []error
}

type invocation struct {
	model  string
	prompt string
	config *provider.GenConfig
}

func (f *fakeInvoker) Invoke(ctx context.Context, model, prompt string, cfg *provider.GenConfig) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, invocation{model: model, prompt: prompt, config: cfg})

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}

	text := "response"
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &provider.Response{Text: text, Model: model}, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testRouter(fastCapacity, heavyCapacity float64) *router.Router {
	registry := &ratelimit.Registry{
		Fast:  ratelimit.NewBucket(ratelimit.TierFast, fastCapacity, 0, nil, nil),
		Heavy: ratelimit.NewBucket(ratelimit.TierHeavy, heavyCapacity, 0, nil, nil),
	}
	return router.New(registry, router.Models{
		Fast:                 "model-fast",
		Smart:                "model-smart",
		ThinkingBudgetTokens: 8192,
	})
}

func quickPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Millisecond,
	}
}

func newTestRunner(invoker provider.Invoker, rt *router.Router) *Runner {
	return NewRunner(rt, invoker, quickPolicy(), nil, nil)
}

func TestDirectWorkflowMakesExactlyOneCall(t *testing.T) {
	invoker := &fakeInvoker{responses: []string{"direct answer"}}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "plain", Text: "Summarize {{topic}}", Tier: prompts.TierFast}
	result, err := runner.Execute(context.Background(), template, map[string]string{"topic": "Go"})
	require.NoError(t, err)

	assert.Equal(t, 1, invoker.callCount())
	assert.Equal(t, "direct answer", result.Text)
	assert.Equal(t, "model-fast", result.Meta.Model)
	assert.Empty(t, result.Meta.Trace)
	assert.Equal(t, "Summarize Go", invoker.calls[0].prompt)
}

func TestStepBackMakesExactlyTwoCalls(t *testing.T) {
	invoker := &fakeInvoker{responses: []string{"the abstraction", "the grounded answer"}}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "sb", Text: "How do I {{task}}?", Tier: prompts.TierSmart, StepBack: true}
	result, err := runner.Execute(context.Background(), template, map[string]string{"task": "shard a table"})
	require.NoError(t, err)

	require.Equal(t, 2, invoker.callCount())

	// Abstraction runs on the lightweight tier regardless of configured tier
	assert.Equal(t, "model-fast", invoker.calls[0].model)
	assert.Equal(t, "model-smart", invoker.calls[1].model)
	assert.Contains(t, invoker.calls[1].prompt, "the abstraction")
	assert.Contains(t, invoker.calls[1].prompt, "How do I shard a table?")

	assert.Equal(t, "the grounded answer", result.Text)
	assert.Equal(t, "model-smart", result.Meta.Model)
	require.Len(t, result.Meta.Trace, 2)
	assert.Contains(t, result.Meta.Trace[0], "the abstraction")
}

func TestChainOfDensityMakesExactlyThreeCalls(t *testing.T) {
	invoker := &fakeInvoker{responses: []string{"draft one", "draft two", "draft three"}}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "cod", Text: "Explain {{topic}}", Tier: prompts.TierFast, ChainOfDensity: true}
	result, err := runner.Execute(context.Background(), template, map[string]string{"topic": "raft"})
	require.NoError(t, err)

	require.Equal(t, 3, invoker.callCount())

	// Each rewrite pass is fed the previous output
	assert.Contains(t, invoker.calls[1].prompt, "draft one")
	assert.Contains(t, invoker.calls[2].prompt, "draft two")

	assert.Equal(t, "draft three", result.Text)
	require.Len(t, result.Meta.Trace, 3)
	assert.Contains(t, result.Meta.Trace[0], "draft one")
	assert.Contains(t, result.Meta.Trace[2], "draft three")
}

func TestStepBackTakesPrecedenceOverChainOfDensity(t *testing.T) {
	template := &prompts.Template{StepBack: true, ChainOfDensity: true}
	assert.Equal(t, WorkflowStepBack, WorkflowFor(template))

	invoker := &fakeInvoker{}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template.Name = "both"
	template.Text = "x"
	template.Tier = prompts.TierFast
	_, err := runner.Execute(context.Background(), template, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, invoker.callCount())
}

func TestEmptyBucketAbortsBeforeAnyCall(t *testing.T) {
	invoker := &fakeInvoker{}
	runner := newTestRunner(invoker, testRouter(0, 5))

	template := &prompts.Template{Name: "dry", Text: "x", Tier: prompts.TierFast, ChainOfDensity: true}
	_, err := runner.Execute(context.Background(), template, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, 0, invoker.callCount(), "no network call and no retry on empty bucket")
}

func TestStepBackAbortsMidWorkflowWhenHeavyBucketEmpty(t *testing.T) {
	invoker := &fakeInvoker{responses: []string{"the abstraction"}}
	runner := newTestRunner(invoker, testRouter(5, 0))

	template := &prompts.Template{Name: "sb", Text: "x", Tier: prompts.TierSmart, StepBack: true}
	_, err := runner.Execute(context.Background(), template, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, 1, invoker.callCount(), "abstraction call went through, grounded call was blocked")
}

func TestEachCallConsumesOneBucketToken(t *testing.T) {
	invoker := &fakeInvoker{}
	rt := testRouter(5, 5)
	runner := newTestRunner(invoker, rt)

	template := &prompts.Template{Name: "cod", Text: "x", Tier: prompts.TierSmart, ChainOfDensity: true}
	_, err := runner.Execute(context.Background(), template, nil)
	require.NoError(t, err)

	heavy := rt.Route(router.ModeSmart).Bucket
	assert.InDelta(t, 2.0, heavy.Tokens(), 1e-9, "three calls consume three tokens")
}

func TestTransientFailureIsRetriedWithinACall(t *testing.T) {
	invoker := &fakeInvoker{
		errs:      []error{&provider.APIError{Status: 500, Message: "internal error"}, nil},
		responses: []string{"", "recovered"},
	}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "flaky", Text: "x", Tier: prompts.TierFast}
	result, err := runner.Execute(context.Background(), template, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, invoker.callCount())
	assert.Equal(t, "recovered", result.Text)
}

func TestTerminalFailurePropagatesOriginalError(t *testing.T) {
	apiErr := &provider.APIError{Status: 401, Message: "invalid api key"}
	invoker := &fakeInvoker{errs: []error{apiErr}}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "bad", Text: "x", Tier: prompts.TierFast}
	result, err := runner.Execute(context.Background(), template, nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, invoker.callCount(), "terminal status is not retried")

	var got *provider.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 401, got.Status)
}

func TestUnresolvedPlaceholderFailsBeforeAnyCall(t *testing.T) {
	invoker := &fakeInvoker{}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "holes", Text: "Summarize {{topic}}", Tier: prompts.TierFast}
	_, err := runner.Execute(context.Background(), template, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
	assert.Equal(t, 0, invoker.callCount())
}

func TestReasoningModeCarriesThinkingConfig(t *testing.T) {
	invoker := &fakeInvoker{}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "deep", Text: "x", Tier: prompts.TierReasoning}
	_, err := runner.Execute(context.Background(), template, nil)
	require.NoError(t, err)

	require.Equal(t, 1, invoker.callCount())
	cfg := invoker.calls[0].config
	require.NotNil(t, cfg)
	assert.True(t, cfg.ExtendedThinking)
	assert.Equal(t, 8192, cfg.ThinkingBudgetTokens)
}

func TestTracePreviewTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("a", 200)
	invoker := &fakeInvoker{responses: []string{long, long, long}}
	runner := newTestRunner(invoker, testRouter(5, 5))

	template := &prompts.Template{Name: "cod", Text: "x", Tier: prompts.TierFast, ChainOfDensity: true}
	result, err := runner.Execute(context.Background(), template, nil)
	require.NoError(t, err)

	for _, entry := range result.Meta.Trace {
		assert.LessOrEqual(t, len(entry), len("iteration 0: ")+tracePreviewLen+3)
	}
}
