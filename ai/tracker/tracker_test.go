package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basharArif/prompt-architect-demo/db"
	testhelper "github.com/basharArif/prompt-architect-demo/internal/testing"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	database := testhelper.CreateTestDB(t)
	require.NoError(t, db.Migrate(database, nil))
	return New(database)
}

func TestRecordAndCount(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.Record(&Invocation{
		PromptID:  "p1",
		Workflow:  "direct",
		Model:     "claude-3-5-haiku-latest",
		LatencyMS: 420,
		Success:   true,
	}))
	require.NoError(t, tr.Record(&Invocation{
		Workflow: "step-back",
		Model:    "claude-sonnet-4-20250514",
		Success:  false,
		Error:    "API request failed with status 500",
	}))

	count, err := tr.CountSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only successful invocations count")
}

func TestNilTrackerIsNoOp(t *testing.T) {
	var tr *Tracker
	assert.NoError(t, tr.Record(&Invocation{Workflow: "direct", Model: "m"}))

	count, err := tr.CountSince(time.Time{})
	assert.NoError(t, err)
	assert.Zero(t, count)
}
