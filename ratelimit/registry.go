package ratelimit

import (
	"go.uber.org/zap"
)

// Tier keys for the two process-wide buckets.
const (
	TierFast  = "fast"
	TierHeavy = "heavy"
)

// Limits configures one tier's bucket. Refill rate is CallsPerMinute/60
// tokens per second.
type Limits struct {
	Capacity       float64
	CallsPerMinute float64
}

// Registry owns the two long-lived tier buckets. It is created once at
// startup and injected wherever limiting is needed; nothing else constructs
// buckets.
type Registry struct {
	Fast  *Bucket
	Heavy *Bucket
}

// NewRegistry builds both tier buckets, restoring persisted state via store.
func NewRegistry(store Store, fast, heavy Limits, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		Fast:  NewBucket(TierFast, fast.Capacity, fast.CallsPerMinute/60.0, store, logger),
		Heavy: NewBucket(TierHeavy, heavy.Capacity, heavy.CallsPerMinute/60.0, store, logger),
	}
}
