package lock

import (
	"context"
	"sync"

	domainlock "github.com/helioscommerce/payment-service/internal/domain/lock"
)

// LocalOrderLocker serializes per-order work inside a single process. It
// backs single-instance deployments and tests; multi-instance deployments
// use RedisOrderLocker.
type LocalOrderLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalOrderLocker creates an in-process order locker.
func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{locks: make(map[string]*sync.Mutex)}
}

var _ domainlock.OrderLocker = (*LocalOrderLocker)(nil)

func (l *LocalOrderLocker) WithLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[orderNumber]
	if !ok {
		m = &sync.Mutex{}
		l.locks[orderNumber] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
