package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammadpnp/member-import/internal/config"
)

const promoteBatch = 100

// RedisQueue keeps ready jobs on a list, scheduled retries on a sorted set
// scored by due time, and exhausted jobs on a dead-letter list.
type RedisQueue struct {
	client  redis.UniversalClient
	ready   string
	delayed string
	dead    string
}

func NewRedisQueue(client redis.UniversalClient, cfg config.RedisConfig) *RedisQueue {
	name := cfg.Queue
	if name == "" {
		name = "imports"
	}
	return &RedisQueue{
		client:  client,
		ready:   name,
		delayed: name + cfg.DelayedSuffix,
		dead:    name + cfg.DLQSuffix,
	}
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func (q *RedisQueue) Name() string {
	return q.ready
}

// Dispatch makes every message immediately available to consumers.
func (q *RedisQueue) Dispatch(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	payloads := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Attempt < 1 {
			msg.Attempt = 1
		}
		p, err := encode(msg)
		if err != nil {
			return err
		}
		payloads = append(payloads, p)
	}
	if err := q.client.LPush(ctx, q.ready, payloads...).Err(); err != nil {
		return fmt.Errorf("dispatch %d jobs: %w", len(msgs), err)
	}
	return nil
}

// DispatchChunks enqueues a first attempt for every chunk of importID.
func (q *RedisQueue) DispatchChunks(ctx context.Context, importID string, chunkIDs []string) error {
	msgs := make([]Message, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		msgs = append(msgs, Message{ImportID: importID, ChunkID: id, Attempt: 1})
	}
	return q.Dispatch(ctx, msgs...)
}

// Schedule makes msg available once delay has elapsed.
func (q *RedisQueue) Schedule(ctx context.Context, msg Message, delay time.Duration) error {
	p, err := encode(msg)
	if err != nil {
		return err
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayed, redis.Z{Score: due, Member: p}).Err(); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	return nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, msg Message, cause error) error {
	p, err := encode(DeadLetter{Message: msg, Error: truncateReason(cause.Error()), FailedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.dead, p).Err(); err != nil {
		return fmt.Errorf("dead-letter job: %w", err)
	}
	return nil
}

// Pop blocks for up to wait. It returns ok=false when nothing arrived.
func (q *RedisQueue) Pop(ctx context.Context, wait time.Duration) (Message, bool, error) {
	res, err := q.client.BRPop(ctx, wait, q.ready).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("pop job: %w", err)
	}
	// BRPOP answers [key, value].
	msg, err := decode(res[1])
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// Promote moves due retries onto the ready list. ZREM decides which caller
// owns an entry, so concurrent promoters never push the same job twice.
func (q *RedisQueue) Promote(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list due jobs: %w", err)
	}

	moved := 0
	for _, p := range due {
		removed, err := q.client.ZRem(ctx, q.delayed, p).Result()
		if err != nil {
			return moved, fmt.Errorf("claim due job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.ready, p).Err(); err != nil {
			return moved, fmt.Errorf("promote job: %w", err)
		}
		moved++
	}
	return moved, nil
}

// Remove drops every waiting or scheduled job of importID. Jobs already
// popped by a consumer are unaffected.
func (q *RedisQueue) Remove(ctx context.Context, importID string) (int, error) {
	removed := 0

	ready, err := q.client.LRange(ctx, q.ready, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list ready jobs: %w", err)
	}
	for _, p := range ready {
		if msg, err := decode(p); err != nil || msg.ImportID != importID {
			continue
		}
		n, err := q.client.LRem(ctx, q.ready, 0, p).Result()
		if err != nil {
			return removed, fmt.Errorf("remove ready job: %w", err)
		}
		removed += int(n)
	}

	delayed, err := q.client.ZRange(ctx, q.delayed, 0, -1).Result()
	if err != nil {
		return removed, fmt.Errorf("list scheduled jobs: %w", err)
	}
	for _, p := range delayed {
		if msg, err := decode(p); err != nil || msg.ImportID != importID {
			continue
		}
		n, err := q.client.ZRem(ctx, q.delayed, p).Result()
		if err != nil {
			return removed, fmt.Errorf("remove scheduled job: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func truncateReason(reason string) string {
	const maxLen = 1000
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
