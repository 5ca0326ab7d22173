package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fileconv/internal/logging"
	"fileconv/internal/services"
)

// RedisOptions configures the Redis list transport.
type RedisOptions struct {
	URL          string
	Name         string
	BlockTimeout time.Duration
	Lease        time.Duration
	Logger       *slog.Logger
}

// RedisQueue implements Queue with a reliable-list pattern: BLMOVE claims a
// message into a processing list and a per-job lease key marks it alive.
// Messages in the processing list without a lease are reclaimed.
//
// BLMOVE and the lease SET are separate commands, so an entry is only
// reclaimed once it has been seen without a lease for a full block timeout.
type RedisQueue struct {
	client *redis.Client
	name   string
	block  time.Duration
	lease  time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	unleased map[string]time.Time
}

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisQueue, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "queue", "dial", "invalid redis url", err)
	}
	client := redis.NewClient(parsed)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrStorage, "queue", "dial", "redis is unreachable at "+parsed.Addr, err)
	}
	return NewRedis(client, opts), nil
}

// NewRedis wraps an existing client. The queue takes ownership of client.
func NewRedis(client *redis.Client, opts RedisOptions) *RedisQueue {
	q := &RedisQueue{
		client: client,
		name:   opts.Name,
		block:  opts.BlockTimeout,
		lease:  opts.Lease,
		logger: logging.NewComponentLogger(opts.Logger, "queue"),

		unleased: make(map[string]time.Time),
	}
	if q.name == "" {
		q.name = DefaultName
	}
	if q.block <= 0 {
		q.block = 5 * time.Second
	}
	if q.lease <= 0 {
		q.lease = 15 * time.Minute
	}
	return q
}

func (q *RedisQueue) pendingKey() string    { return q.name }
func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) leaseKey(jobID string) string {
	return q.name + ":lease:" + jobID
}

// Enqueue publishes msg.
func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.pendingKey(), raw).Err(); err != nil {
		return services.Wrap(services.ErrStorage, "queue", "enqueue", msg.JobID, err)
	}
	return nil
}

// Dequeue claims the oldest message, blocking up to the configured timeout.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	raw, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", q.block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrStorage, "queue", "dequeue", q.name, err)
	}

	msg, err := DecodeMessage(raw)
	if err != nil {
		// A payload that can never be processed is dropped rather than redelivered forever.
		_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
		logging.WarnWithContext(q.logger, "dropped malformed queue message", "queue_message_dropped",
			logging.String("payload", raw),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the producer that enqueued this message"),
			logging.String(logging.FieldImpact, "message was removed without processing"),
		)
		return nil, err
	}

	if err := q.client.Set(ctx, q.leaseKey(msg.JobID), raw, q.lease).Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "lease", msg.JobID, err)
	}

	return &Delivery{
		Message: msg,
		ack: func(ctx context.Context) error {
			return q.settle(ctx, msg.JobID, raw, false)
		},
		nack: func(ctx context.Context) error {
			return q.settle(ctx, msg.JobID, raw, true)
		},
		extend: func(ctx context.Context) error {
			if err := q.client.Expire(ctx, q.leaseKey(msg.JobID), q.lease).Err(); err != nil {
				return services.Wrap(services.ErrStorage, "queue", "extend", msg.JobID, err)
			}
			return nil
		},
	}, nil
}

func (q *RedisQueue) settle(ctx context.Context, jobID, raw string, requeue bool) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.Del(ctx, q.leaseKey(jobID))
	if requeue {
		pipe.RPush(ctx, q.pendingKey(), raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		op := "ack"
		if requeue {
			op = "nack"
		}
		return services.Wrap(services.ErrStorage, "queue", op, jobID, err)
	}
	return nil
}

// Reclaim moves processing-list entries whose lease expired back to the
// front of the pending list. An entry without a lease is first remembered
// and only moved when a later call still finds it unleased after the block
// timeout, which covers a worker caught between BLMOVE and its lease write.
func (q *RedisQueue) Reclaim(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "reclaim", q.name, err)
	}
	now := time.Now()
	stillUnleased := make(map[string]time.Time, len(q.unleased))
	defer func() { q.unleased = stillUnleased }()

	reclaimed := 0
	for _, raw := range entries {
		msg, err := DecodeMessage(raw)
		if err != nil {
			_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
			continue
		}
		alive, err := q.client.Exists(ctx, q.leaseKey(msg.JobID)).Result()
		if err != nil {
			return reclaimed, services.Wrap(services.ErrStorage, "queue", "reclaim", msg.JobID, err)
		}
		if alive > 0 {
			continue
		}
		first, seen := q.unleased[raw]
		if !seen {
			first = now
		}
		if now.Sub(first) < q.block {
			stillUnleased[raw] = first
			continue
		}

		pipe := q.client.TxPipeline()
		removed := pipe.LRem(ctx, q.processingKey(), 1, raw)
		if _, err := pipe.Exec(ctx); err != nil {
			return reclaimed, services.Wrap(services.ErrStorage, "queue", "reclaim", msg.JobID, err)
		}
		if removed.Val() == 0 {
			continue
		}
		if err := q.client.RPush(ctx, q.pendingKey(), raw).Err(); err != nil {
			return reclaimed, services.Wrap(services.ErrStorage, "queue", "reclaim", msg.JobID, err)
		}
		reclaimed++
		q.logger.Info("reclaimed expired delivery",
			logging.String(logging.FieldJobID, msg.JobID),
			logging.String(logging.FieldEventType, "queue_delivery_reclaimed"),
		)
	}
	return reclaimed, nil
}

// Stats reports queue depth.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.pendingKey())
	inFlight := pipe.LLen(ctx, q.processingKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), InFlight: inFlight.Val()}, nil
}

// Close releases the Redis connection pool.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
