// Package runstore archives a completed run's trace and outcome for
// post-hoc inspection (SPEC_FULL.md §2, "Run Store"). It is never read
// during the run itself — the executor's in-memory AgentState remains the
// sole authority while a run is in flight (spec.md §5).
package runstore

import (
	"context"
	"time"
)

// Record is the archived shape of one completed run.
type Record struct {
	RunID     string
	UserID    string
	Question  string
	Answer    string
	Trace     []byte // serialized streamsink.Event slice
	StartedAt time.Time
	EndedAt   time.Time
}

// Store persists and retrieves run records. Implementations own their own
// TTL/retention policy.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, runID string) (Record, error)
}
