// Package ratelimit implements durable per-tier token buckets.
//
// Each tier owns exactly one bucket for the process lifetime. Buckets refill
// continuously at a fixed rate, never exceed capacity, and persist their
// state across restarts through a Store.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// State is the durable snapshot of one bucket.
type State struct {
	Tokens     float64
	LastRefill time.Time
}

// Store persists bucket state keyed by tier name.
// Load returns (nil, nil) when no usable state exists; a missing or
// unparseable record is never an error, it just reinitializes the bucket.
type Store interface {
	Load(tier string) (*State, error)
	Save(tier string, state State) error
}

// Bucket is a token-bucket rate limiter for one tier.
//
// Refill, consume, and persist form one atomic unit under the bucket mutex,
// so concurrent callers against the same tier cannot lose updates.
type Bucket struct {
	tier            string
	capacity        float64
	refillPerSecond float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	store   Store
	timeNow func() time.Time // Injectable for testing
	logger  *zap.SugaredLogger
}

// NewBucket creates a bucket with real time.
func NewBucket(tier string, capacity, refillPerSecond float64, store Store, logger *zap.SugaredLogger) *Bucket {
	return NewBucketWithClock(tier, capacity, refillPerSecond, store, logger, time.Now)
}

// NewBucketWithClock creates a bucket with an injectable clock (for testing).
// Persisted state for the tier is loaded if present; otherwise the bucket
// starts full.
func NewBucketWithClock(tier string, capacity, refillPerSecond float64, store Store, logger *zap.SugaredLogger, timeNow func() time.Time) *Bucket {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	b := &Bucket{
		tier:            tier,
		capacity:        capacity,
		refillPerSecond: refillPerSecond,
		store:           store,
		timeNow:         timeNow,
		logger:          logger,
	}

	now := timeNow()
	b.tokens = capacity
	b.lastRefill = now

	if store != nil {
		state, err := store.Load(tier)
		switch {
		case err != nil:
			logger.Warnw("Failed to load rate limit state, reinitializing to full capacity",
				"tier", tier,
				"error", err,
			)
		case state != nil:
			b.tokens = clamp(state.Tokens, 0, capacity)
			b.lastRefill = state.LastRefill
			logger.Debugw("Restored rate limit state",
				"tier", tier,
				"tokens", b.tokens,
				"last_refill", b.lastRefill,
			)
		}
	}

	return b
}

// Consume attempts to take cost tokens from the bucket. The bucket is
// refilled for elapsed wall-clock time first. Rejection is immediate and
// final for this attempt; there is no queuing.
//
// The returned error reports persistence trouble only. The allowed decision
// is valid either way.
func (b *Bucket) Consume(cost float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	allowed := b.tokens >= cost
	if allowed {
		b.tokens -= cost
	}

	if err := b.persistLocked(); err != nil {
		return allowed, errors.Wrapf(err, "failed to persist %s bucket state", b.tier)
	}

	return allowed, nil
}

// Tokens reports the current token count after refilling for elapsed time.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return b.tokens
}

// Capacity returns the bucket's maximum token count.
func (b *Bucket) Capacity() float64 {
	return b.capacity
}

// Tier returns the tier key this bucket is scoped to.
func (b *Bucket) Tier() string {
	return b.tier
}

// refillLocked credits tokens for elapsed time, capped at capacity.
// Must be called with lock held.
func (b *Bucket) refillLocked() {
	now := b.timeNow()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = clamp(b.tokens+elapsed*b.refillPerSecond, 0, b.capacity)
	}
	b.lastRefill = now
}

// persistLocked writes current state through the store.
// Must be called with lock held.
func (b *Bucket) persistLocked() error {
	if b.store == nil {
		return nil
	}
	return b.store.Save(b.tier, State{
		Tokens:     b.tokens,
		LastRefill: b.lastRefill,
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
