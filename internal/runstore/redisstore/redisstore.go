// Package redisstore implements runstore.Store on top of go-redis/v9,
// grounded on the registry/archival idiom in goa-ai and basegraphhq-basegraph.
// Records are stored as JSON under "run:<runID>" with a fixed TTL — this is
// archival, not authoritative state, so eviction is acceptable.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docuqa/agent-runtime/internal/runstore"
)

// ErrNotFound is returned when a run ID has no archived record (either it
// never existed or its TTL expired).
var ErrNotFound = errors.New("run record not found")

// Store wraps a redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Store. ttl is how long an archived run record is retained;
// 0 disables expiry.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

type wireRecord struct {
	RunID     string    `json:"runId"`
	UserID    string    `json:"userId"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Trace     []byte    `json:"trace"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Save implements runstore.Store.
func (s *Store) Save(ctx context.Context, r runstore.Record) error {
	wire := wireRecord{
		RunID: r.RunID, UserID: r.UserID, Question: r.Question, Answer: r.Answer,
		Trace: r.Trace, StartedAt: r.StartedAt, EndedAt: r.EndedAt,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("redisstore: marshal record: %w", err)
	}
	return s.client.Set(ctx, key(r.RunID), data, s.ttl).Err()
}

// Get implements runstore.Store.
func (s *Store) Get(ctx context.Context, runID string) (runstore.Record, error) {
	data, err := s.client.Get(ctx, key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return runstore.Record{}, ErrNotFound
	}
	if err != nil {
		return runstore.Record{}, fmt.Errorf("redisstore: get record: %w", err)
	}

	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return runstore.Record{}, fmt.Errorf("redisstore: unmarshal record: %w", err)
	}
	return runstore.Record{
		RunID: wire.RunID, UserID: wire.UserID, Question: wire.Question, Answer: wire.Answer,
		Trace: wire.Trace, StartedAt: wire.StartedAt, EndedAt: wire.EndedAt,
	}, nil
}
