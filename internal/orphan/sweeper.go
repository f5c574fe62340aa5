package orphan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glansab/backoffice/internal/identity"
	"github.com/glansab/backoffice/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "orphan_sweepers"

	// DefaultBatchSize is the max records per read.
	DefaultBatchSize = 50

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 15 * time.Second

	// DefaultDeleteTimeout bounds a single identity delete.
	DefaultDeleteTimeout = 10 * time.Second
)

// Sweep statuses.
const (
	StatusDeleted      = "deleted"
	StatusRetry        = "retry"
	StatusDeadLettered = "dead_lettered"
)

// Deleter removes identities.
type Deleter interface {
	DeleteUser(ctx context.Context, id string) error
}

// Sweeper consumes the orphan stream and deletes the identities it names.
type Sweeper struct {
	redis           *redis.Client
	deleter         Deleter
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxAttempts     int
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	deleteTimeout   time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time
	now             func() time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewSweeper creates a new orphan sweeper.
func NewSweeper(client *redis.Client, deleter Deleter, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Sweeper {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Sweeper{
		redis:           client,
		deleter:         deleter,
		logger:          logger.With("component", "orphan.sweeper", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxAttempts:     DefaultMaxAttempts,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		deleteTimeout:   DefaultDeleteTimeout,
		claimStartID:    "0-0",
		now:             time.Now,
	}
}

// Run starts the sweep loop. Blocks until context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("sweeper already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	if err := s.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	s.logger.Info("orphan sweeper started")

	for {
		s.mu.Lock()
		draining := s.draining
		s.mu.Unlock()

		if draining {
			s.logger.Info("orphan sweeper draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.Info("orphan sweeper stopping")
			return ctx.Err()
		default:
			if err := s.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("sweep error", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Shutdown stops the sweeper after the in-flight batch.
// It matches server.ShutdownFunc.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.logger.Info("orphan sweeper shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			s.logger.Info("orphan sweeper shutdown complete")
			return nil
		case <-ctx.Done():
			s.logger.Warn("orphan sweeper shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// SetBatchSize overrides the default batch size.
func (s *Sweeper) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (s *Sweeper) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.blockTimeout = timeout
	}
}

// SetMaxAttempts overrides the default attempt budget.
func (s *Sweeper) SetMaxAttempts(n int) {
	if n > 0 {
		s.maxAttempts = n
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (s *Sweeper) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		s.claimIdle = idle
	}
}

func (s *Sweeper) ensureConsumerGroup(ctx context.Context) error {
	err := s.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

func (s *Sweeper) processOnce(ctx context.Context) error {
	s.maybeUpdateQueueDepth(ctx)

	if err := s.promoteDue(ctx); err != nil {
		s.logger.Warn("failed to promote due retries", "error", err)
	}

	claimed, err := s.maybeClaimPending(ctx)
	if err != nil {
		s.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = s.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if err := s.handle(ctx, msg); err != nil {
			// Leave unacked; XAUTOCLAIM picks it up again.
			s.logger.Error("failed to handle orphan record", "message_id", msg.ID, "error", err)
			continue
		}
		ids = append(ids, msg.ID)
	}
	return s.ackMessages(ctx, ids)
}

// handle attempts the delete for one message. A nil return means the message
// can be acknowledged.
func (s *Sweeper) handle(ctx context.Context, msg redis.XMessage) error {
	rec, err := decodeRecord(msg)
	if err != nil {
		return s.deadLetter(ctx, msg.ID, msg.Values["payload"], "invalid_record", err.Error())
	}

	deleteCtx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	err = s.deleter.DeleteUser(deleteCtx, rec.IdentityID)
	cancel()

	if err == nil || errors.Is(err, identity.ErrNotFound) {
		s.logger.Info("orphan identity deleted",
			"identity_id", rec.IdentityID,
			"event_id", rec.EventID,
			"attempts", rec.Attempts+1,
		)
		s.metrics.IncOrphanSwept(StatusDeleted)
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}

	rec.Attempts++
	if IsExhausted(rec.Attempts, s.maxAttempts) {
		s.logger.Error("orphan identity could not be deleted, manual action required",
			"identity_id", rec.IdentityID,
			"email", rec.Email,
			"event_id", rec.EventID,
			"attempts", rec.Attempts,
			"error", err,
		)
		payload, _ := json.Marshal(rec)
		return s.deadLetter(ctx, msg.ID, string(payload), "exhausted", err.Error())
	}

	due := NextRetryAt(s.now(), rec.Attempts-1)
	s.logger.Warn("orphan delete failed, scheduling retry",
		"identity_id", rec.IdentityID,
		"attempts", rec.Attempts,
		"next_attempt_at", due.UTC().Format(time.RFC3339),
		"error", err,
	)
	if err := s.schedule(ctx, rec, due); err != nil {
		return err
	}
	s.metrics.IncOrphanSwept(StatusRetry)
	return nil
}

// schedule parks a record in the retry set until due.
func (s *Sweeper) schedule(ctx context.Context, rec Record, due time.Time) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	err = s.redis.ZAdd(ctx, RetryKey, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	return nil
}

// promoteDue moves due retry records back onto the stream. ZREM decides
// ownership when several sweepers race for the same member.
func (s *Sweeper) promoteDue(ctx context.Context) error {
	members, err := s.redis.ZRangeByScore(ctx, RetryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(s.now().UnixMilli(), 10),
		Count: int64(s.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("zrangebyscore: %w", err)
	}

	for _, member := range members {
		removed, err := s.redis.ZRem(ctx, RetryKey, member).Result()
		if err != nil {
			return fmt.Errorf("zrem: %w", err)
		}
		if removed == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			_ = s.deadLetter(ctx, "", member, "invalid_record", err.Error())
			continue
		}
		if _, err := addToStream(ctx, s.redis, rec); err != nil {
			// Put it back so the record is not lost.
			_ = s.redis.ZAdd(ctx, RetryKey, redis.Z{Score: float64(s.now().UnixMilli()), Member: member}).Err()
			return err
		}
	}
	return nil
}

func (s *Sweeper) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if s.claimInterval <= 0 || s.claimIdle <= 0 {
		return nil, nil
	}
	if !s.lastClaim.IsZero() && time.Since(s.lastClaim) < s.claimInterval {
		return nil, nil
	}

	s.lastClaim = time.Now()
	messages, start, err := s.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: s.consumerID,
		MinIdle:  s.claimIdle,
		Start:    s.claimStartID,
		Count:    int64(s.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		s.claimStartID = start
	}
	return messages, nil
}

func (s *Sweeper) maybeUpdateQueueDepth(ctx context.Context) {
	if s.metricsInterval <= 0 {
		return
	}
	if !s.lastMetrics.IsZero() && time.Since(s.lastMetrics) < s.metricsInterval {
		return
	}
	s.lastMetrics = time.Now()

	var depth int64
	groups, err := s.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		s.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			depth += group.Pending + group.Lag
		}
	}
	waiting, err := s.redis.ZCard(ctx, RetryKey).Result()
	if err != nil && err != redis.Nil {
		s.logger.Warn("failed to read retry set size", "error", err)
		return
	}
	s.metrics.SetOrphanQueueDepth(depth + waiting)
}

func (s *Sweeper) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := s.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: s.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(s.batchSize),
		Block:    s.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// deadLetter writes a record to the dead-letter stream.
func (s *Sweeper) deadLetter(ctx context.Context, originalID string, payload interface{}, reason, detail string) error {
	s.logger.Warn("dead-lettering orphan record",
		"message_id", originalID,
		"reason", reason,
		"detail", detail,
	)

	_, err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      originalID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          payload,
			"dead_lettered_at": s.now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd dead letter: %w", err)
	}

	s.metrics.IncOrphanSwept(StatusDeadLettered)
	return nil
}

func (s *Sweeper) ackMessages(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if _, err := s.redis.XAck(ctx, StreamKey, ConsumerGroup, messageIDs...).Result(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists" ||
		err.Error() == "BUSYGROUP")
}
