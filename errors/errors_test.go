package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesOriginal(t *testing.T) {
	base := New("capacity exhausted")
	wrapped := Wrap(base, "execute workflow")

	require.Error(t, wrapped)
	assert.True(t, Is(wrapped, base), "wrapped error should match original via Is")
	assert.Contains(t, wrapped.Error(), "capacity exhausted")
	assert.Contains(t, wrapped.Error(), "execute workflow")
}

func TestHintsSurvivesWrapping(t *testing.T) {
	err := WithHint(New("rate limit exceeded"), "wait for the bucket to refill")
	err = Wrap(err, "run prompt")

	assert.Contains(t, FlattenHints(err), "wait for the bucket to refill")
}
