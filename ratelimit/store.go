package ratelimit

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// SQLStore persists bucket state in the rate_limits table, one row per tier.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore creates a SQLite-backed bucket state store.
func NewSQLStore(db *sql.DB, logger *zap.SugaredLogger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLStore{db: db, logger: logger}
}

// Load reads persisted state for a tier. A missing row or an unparseable
// timestamp returns (nil, nil) so the bucket reinitializes to full capacity.
func (s *SQLStore) Load(tier string) (*State, error) {
	var tokens float64
	var lastRefill string

	err := s.db.QueryRow(
		"SELECT tokens, last_refill FROM rate_limits WHERE tier = ?", tier,
	).Scan(&tokens, &lastRefill)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load rate limit state for tier %s", tier)
	}

	ts, err := time.Parse(time.RFC3339Nano, lastRefill)
	if err != nil {
		s.logger.Warnw("Discarding unparseable rate limit state",
			"tier", tier,
			"last_refill", lastRefill,
		)
		return nil, nil
	}

	return &State{Tokens: tokens, LastRefill: ts}, nil
}

// Save upserts the state row for a tier.
func (s *SQLStore) Save(tier string, state State) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.Exec(`
		INSERT INTO rate_limits (tier, tokens, last_refill, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tier) DO UPDATE SET
			tokens = excluded.tokens,
			last_refill = excluded.last_refill,
			updated_at = excluded.updated_at
	`, tier, state.Tokens, state.LastRefill.UTC().Format(time.RFC3339Nano), now)
	if err != nil {
		return errors.Wrapf(err, "failed to save rate limit state for tier %s", tier)
	}

	return nil
}

var _ Store = (*SQLStore)(nil)
