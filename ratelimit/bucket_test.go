package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basharArif/prompt-architect-demo/db"
	testhelper "github.com/basharArif/prompt-architect-demo/internal/testing"
)

// mockClock allows controlling time in tests
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(now time.Time) *mockClock {
	return &mockClock{now: now}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestBucketStartsFull(t *testing.T) {
	clock := newMockClock(time.Now())
	bucket := NewBucketWithClock(TierFast, 15, 0.25, nil, nil, clock.Now)

	assert.Equal(t, 15.0, bucket.Tokens())
}

// Capacity C, refill rate R/s: after consuming C tokens, Consume returns
// false until 1/R seconds elapse, after which exactly one more succeeds.
func TestBucketDrainAndRefillTiming(t *testing.T) {
	clock := newMockClock(time.Now())
	// Capacity 2, refill 2/60 per second (heavy tier shape)
	bucket := NewBucketWithClock(TierHeavy, 2, 2.0/60.0, nil, nil, clock.Now)

	for i := 0; i < 2; i++ {
		allowed, err := bucket.Consume(1)
		require.NoError(t, err)
		require.True(t, allowed, "consume %d should be allowed", i+1)
	}

	allowed, err := bucket.Consume(1)
	require.NoError(t, err)
	assert.False(t, allowed, "bucket should be empty")

	// 1/R = 30s buys back exactly one token
	clock.Advance(29 * time.Second)
	allowed, _ = bucket.Consume(1)
	assert.False(t, allowed, "not enough time has elapsed")

	clock.Advance(2 * time.Second)
	allowed, _ = bucket.Consume(1)
	assert.True(t, allowed, "one token should have refilled")

	allowed, _ = bucket.Consume(1)
	assert.False(t, allowed, "only one token should have refilled")
}

func TestBucketRefillCapsAtCapacity(t *testing.T) {
	clock := newMockClock(time.Now())
	bucket := NewBucketWithClock(TierFast, 15, 0.25, nil, nil, clock.Now)

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 15.0, bucket.Tokens(), "refill must cap at capacity")
}

func TestBucketRejectsAtZeroTokensImmediately(t *testing.T) {
	clock := newMockClock(time.Now())
	bucket := NewBucketWithClock(TierHeavy, 0, 2.0/60.0, nil, nil, clock.Now)

	allowed, err := bucket.Consume(1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	database := testhelper.CreateTestDB(t)
	require.NoError(t, db.Migrate(database, nil))
	return NewSQLStore(database, nil)
}

// Persisting and reloading bucket state yields identical subsequent
// Consume outcomes.
func TestBucketStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	clock := newMockClock(time.Now())

	first := NewBucketWithClock(TierHeavy, 2, 2.0/60.0, store, nil, clock.Now)
	allowed, err := first.Consume(1)
	require.NoError(t, err)
	require.True(t, allowed)

	// A new bucket for the same tier restores the drained state
	second := NewBucketWithClock(TierHeavy, 2, 2.0/60.0, store, nil, clock.Now)

	allowed, err = second.Consume(1)
	require.NoError(t, err)
	assert.True(t, allowed, "one token should remain after reload")

	allowed, err = second.Consume(1)
	require.NoError(t, err)
	assert.False(t, allowed, "bucket should be empty after reload and drain")
}

func TestBucketReinitializesWithoutPersistedState(t *testing.T) {
	store := newTestStore(t)
	bucket := NewBucket(TierFast, 15, 0.25, store, nil)

	assert.Equal(t, 15.0, bucket.Tokens())
}

func TestBucketReinitializesOnUnparseableState(t *testing.T) {
	database := testhelper.CreateTestDB(t)
	require.NoError(t, db.Migrate(database, nil))
	_, err := database.Exec(
		"INSERT INTO rate_limits (tier, tokens, last_refill, updated_at) VALUES (?, ?, ?, ?)",
		TierFast, 3.0, "not-a-timestamp", "not-a-timestamp",
	)
	require.NoError(t, err)

	store := NewSQLStore(database, nil)
	bucket := NewBucket(TierFast, 15, 0.25, store, nil)

	assert.Equal(t, 15.0, bucket.Tokens(), "corrupt state reinitializes to full capacity")
}

func TestBucketLoadedTokensClampedToCapacity(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(TierFast, State{Tokens: 100, LastRefill: time.Now()}))

	bucket := NewBucket(TierFast, 15, 0.25, store, nil)
	assert.LessOrEqual(t, bucket.Tokens(), 15.0)
}

func TestConcurrentConsumeDoesNotOverspend(t *testing.T) {
	clock := newMockClock(time.Now())
	bucket := NewBucketWithClock(TierFast, 10, 0, nil, nil, clock.Now)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := bucket.Consume(1)
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowedCount, "exactly capacity consumes may succeed")
	assert.GreaterOrEqual(t, bucket.Tokens(), 0.0)
}

func TestRegistryBuildsTierBuckets(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(store,
		Limits{Capacity: 15, CallsPerMinute: 15},
		Limits{Capacity: 2, CallsPerMinute: 2},
		nil,
	)

	assert.Equal(t, TierFast, registry.Fast.Tier())
	assert.Equal(t, 15.0, registry.Fast.Capacity())
	assert.Equal(t, TierHeavy, registry.Heavy.Tier())
	assert.Equal(t, 2.0, registry.Heavy.Capacity())
}
