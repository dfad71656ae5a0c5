package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domainlock "github.com/helioscommerce/payment-service/internal/domain/lock"
)

const (
	lockKeyPrefix = "lock:order:"

	defaultLockTTL       = 30 * time.Second
	defaultAcquireWait   = 10 * time.Second
	defaultRetryInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisOrderLocker serializes payment mutations per order across service
// instances with a Redis SET NX lock.
type RedisOrderLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisOrderLocker creates a Redis-backed order locker.
func NewRedisOrderLocker(rdb *redis.Client, logger *zap.Logger) *RedisOrderLocker {
	return &RedisOrderLocker{
		rdb:    rdb,
		ttl:    defaultLockTTL,
		wait:   defaultAcquireWait,
		logger: logger,
	}
}

var _ domainlock.OrderLocker = (*RedisOrderLocker)(nil)

func (l *RedisOrderLocker) WithLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + orderNumber
	token := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire order lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for order lock %q", orderNumber)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultRetryInterval):
		}
	}

	defer func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release order lock",
				zap.String("order_number", orderNumber),
				zap.Error(err))
		}
	}()

	return fn(ctx)
}
