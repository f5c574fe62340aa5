package orphan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrDeadLetterNotFound is returned when a dead-letter entry does not exist.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// Dead-letter listing bounds.
const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 500
)

// DeadLetter is one record the sweeper gave up on.
type DeadLetter struct {
	ID             string  `json:"id"`
	OriginalID     string  `json:"original_id,omitempty"`
	Reason         string  `json:"reason"`
	Detail         string  `json:"detail,omitempty"`
	DeadLetteredAt string  `json:"dead_lettered_at,omitempty"`
	Record         *Record `json:"record,omitempty"`
}

// QueueStats counts records at each stage of the sweep.
type QueueStats struct {
	Queued       int64 `json:"queued"`
	Scheduled    int64 `json:"scheduled"`
	DeadLettered int64 `json:"dead_lettered"`
}

// Inspector gives operators read access to the orphan queues and lets them
// requeue dead-lettered identities.
type Inspector struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewInspector creates a new Inspector.
func NewInspector(client *redis.Client, logger *slog.Logger) *Inspector {
	return &Inspector{
		redis:  client,
		logger: logger.With("component", "orphan.inspector"),
	}
}

// Stats returns the length of the stream, the retry set and the dead-letter stream.
func (i *Inspector) Stats(ctx context.Context) (QueueStats, error) {
	pipe := i.redis.Pipeline()
	queued := pipe.XLen(ctx, StreamKey)
	scheduled := pipe.ZCard(ctx, RetryKey)
	dead := pipe.XLen(ctx, DeadLetterStreamKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return QueueStats{}, fmt.Errorf("orphan stats: %w", err)
	}
	return QueueStats{
		Queued:       queued.Val(),
		Scheduled:    scheduled.Val(),
		DeadLettered: dead.Val(),
	}, nil
}

// DeadLetters returns up to limit dead-letter entries, newest first.
func (i *Inspector) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	msgs, err := i.redis.XRevRangeN(ctx, DeadLetterStreamKey, "+", "-", int64(deadLetterLimit(limit))).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xrevrange: %w", err)
	}

	out := make([]DeadLetter, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decodeDeadLetter(msg))
	}
	return out, nil
}

// Requeue puts a dead-lettered record back on the stream with its attempt
// count reset and removes it from the dead-letter stream.
func (i *Inspector) Requeue(ctx context.Context, id string) (string, error) {
	if !isStreamID(id) {
		return "", ErrDeadLetterNotFound
	}
	msgs, err := i.redis.XRangeN(ctx, DeadLetterStreamKey, id, id, 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("xrange: %w", err)
	}
	if len(msgs) == 0 {
		return "", ErrDeadLetterNotFound
	}

	dl := decodeDeadLetter(msgs[0])
	if dl.Record == nil {
		return "", fmt.Errorf("%w: dead letter %s has no usable payload", ErrInvalidRecord, id)
	}

	rec := *dl.Record
	rec.Attempts = 0
	streamID, err := addToStream(ctx, i.redis, rec)
	if err != nil {
		return "", err
	}
	if err := i.redis.XDel(ctx, DeadLetterStreamKey, id).Err(); err != nil {
		return "", fmt.Errorf("xdel: %w", err)
	}

	i.logger.Info("dead-lettered orphan requeued",
		"dead_letter_id", id,
		"identity_id", rec.IdentityID,
		"stream_id", streamID,
	)
	return streamID, nil
}

func deadLetterLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultDeadLetterLimit
	case limit > maxDeadLetterLimit:
		return maxDeadLetterLimit
	default:
		return limit
	}
}

// isStreamID reports whether id has the <ms>-<seq> shape of a Redis stream id.
func isStreamID(id string) bool {
	ms, seq, ok := strings.Cut(id, "-")
	if !ok {
		return false
	}
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return false
	}
	_, err := strconv.ParseUint(seq, 10, 64)
	return err == nil
}

func decodeDeadLetter(msg redis.XMessage) DeadLetter {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}
	dl := DeadLetter{
		ID:             msg.ID,
		OriginalID:     str("original_id"),
		Reason:         str("reason"),
		Detail:         str("detail"),
		DeadLetteredAt: str("dead_lettered_at"),
	}
	var rec Record
	if err := json.Unmarshal([]byte(str("payload")), &rec); err == nil && rec.Validate() == nil {
		dl.Record = &rec
	}
	return dl
}
