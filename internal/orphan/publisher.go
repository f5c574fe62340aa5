// Package orphan tracks identities whose compensating delete failed and
// sweeps them in the background.
package orphan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/glansab/backoffice/internal/metrics"
)

const (
	// StreamKey is the Redis stream of identities awaiting deletion.
	StreamKey = "stream:orphan_identities"

	// RetryKey is the sorted set of records waiting for their next attempt,
	// scored by due time in Unix milliseconds.
	RetryKey = "zset:orphan_identities:retry"

	// DeadLetterStreamKey receives records the sweeper gave up on.
	DeadLetterStreamKey = "stream:orphan_identities:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000
)

// ErrInvalidRecord is returned for records missing an identity id.
var ErrInvalidRecord = errors.New("invalid orphan record")

// Record is the stream payload for one orphaned identity.
type Record struct {
	EventID        string `json:"eid"`
	IdentityID     string `json:"iid"`
	Email          string `json:"em,omitempty"`
	OrganisationID string `json:"org,omitempty"`
	Reason         string `json:"r,omitempty"`
	Attempts       int    `json:"a"`
	FailedAt       int64  `json:"t"` // Unix milliseconds
}

// Validate checks the record is actionable.
func (r Record) Validate() error {
	if r.IdentityID == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidRecord)
	}
	if r.Attempts < 0 {
		return fmt.Errorf("%w: negative attempts", ErrInvalidRecord)
	}
	return nil
}

// Publisher enqueues orphaned identities onto the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new orphan publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "orphan.publisher"),
		metrics: recorder,
	}
}

// Enqueue adds a record to the stream. EventID and FailedAt are filled in when empty.
func (p *Publisher) Enqueue(ctx context.Context, rec Record) (string, error) {
	if rec.EventID == "" {
		rec.EventID = ulid.Make().String()
	}
	if rec.FailedAt == 0 {
		rec.FailedAt = time.Now().UnixMilli()
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	streamID, err := addToStream(ctx, p.redis, rec)
	if err != nil {
		return "", err
	}

	p.metrics.IncOrphanEnqueued()
	p.logger.Warn("orphan identity enqueued",
		"identity_id", rec.IdentityID,
		"event_id", rec.EventID,
		"stream_id", streamID,
	)
	return streamID, nil
}

func addToStream(ctx context.Context, client *redis.Client, rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

func decodeRecord(msg redis.XMessage) (Record, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: payload field missing or not a string", ErrInvalidRecord)
	}
	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
