package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/webhook"
)

const webhookEventSet = "webhook:events:scheduled"

// popDueScript atomically takes the earliest member whose score (ready-at,
// unix millis) has passed. Pop-then-check would race other workers.
var popDueScript = redis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #members == 0 then
	return false
end
redis.call('ZREM', KEYS[1], members[1])
return members[1]
`)

// RedisEventQueue is a delayed event queue on a Redis sorted set: the score
// is the time the event becomes due, so scheduling a retry and scheduling
// the initial delivery are the same operation.
type RedisEventQueue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisEventQueue creates a Redis-backed delayed event queue.
func NewRedisEventQueue(rdb *redis.Client, logger *zap.Logger) *RedisEventQueue {
	return &RedisEventQueue{rdb: rdb, logger: logger}
}

var _ webhook.EventQueue = (*RedisEventQueue)(nil)

func (q *RedisEventQueue) Enqueue(ctx context.Context, event *webhook.Event, delay time.Duration) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	readyAt := time.Now().Add(delay)
	err = q.rdb.ZAdd(ctx, webhookEventSet, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook event: %w", err)
	}
	return nil
}

func (q *RedisEventQueue) DequeueDue(ctx context.Context) (*webhook.Event, error) {
	now := time.Now().UnixMilli()
	result, err := popDueScript.Run(ctx, q.rdb, []string{webhookEventSet}, now).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue webhook event: %w", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, nil
	}

	var event webhook.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		// A member that cannot be decoded would wedge the queue if requeued.
		q.logger.Error("Dropping undecodable webhook event",
			zap.String("member", raw),
			zap.Error(err))
		return nil, nil
	}
	return &event, nil
}
