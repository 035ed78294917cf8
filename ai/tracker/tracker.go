// Package tracker records model invocations in the local database for cost
// and usage inspection.
package tracker

import (
	"database/sql"
	"time"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// Invocation is one recorded model call.
type Invocation struct {
	PromptID  string
	Workflow  string
	Model     string
	LatencyMS int64
	Success   bool
	Error     string
	CreatedAt time.Time
}

// Tracker persists invocation records. A nil *Tracker is a valid no-op so
// callers never need nil checks.
type Tracker struct {
	db *sql.DB
}

// New creates a tracker backed by the given database.
func New(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Record stores one invocation. Failures here must never break the calling
// workflow; callers log and continue.
func (t *Tracker) Record(inv *Invocation) error {
	if t == nil || t.db == nil {
		return nil
	}

	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var errMsg interface{}
	if inv.Error != "" {
		errMsg = inv.Error
	}

	var promptID interface{}
	if inv.PromptID != "" {
		promptID = inv.PromptID
	}

	_, err := t.db.Exec(`
		INSERT INTO invocations (prompt_id, workflow, model, latency_ms, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, promptID, inv.Workflow, inv.Model, inv.LatencyMS, inv.Success, errMsg, createdAt.Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(err, "failed to record invocation")
	}

	return nil
}

// CountSince returns how many successful invocations happened after cutoff.
func (t *Tracker) CountSince(cutoff time.Time) (int, error) {
	if t == nil || t.db == nil {
		return 0, nil
	}

	var count int
	err := t.db.QueryRow(`
		SELECT COUNT(*) FROM invocations
		WHERE success = 1 AND created_at >= ?
	`, cutoff.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count invocations")
	}

	return count, nil
}
