package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helioscommerce/payment-service/internal/infrastructure/lock"
)

func TestLocalOrderLocker_WithLock(t *testing.T) {
	t.Run("serializes concurrent sections on the same order", func(t *testing.T) {
		locker := lock.NewLocalOrderLocker()
		ctx := context.Background()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = locker.WithLock(ctx, "R100001", func(context.Context) error {
					counter++
					return nil
				})
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
	})

	t.Run("propagates the section's error", func(t *testing.T) {
		locker := lock.NewLocalOrderLocker()
		wantErr := errors.New("payment not found")

		err := locker.WithLock(context.Background(), "R100001", func(context.Context) error {
			return wantErr
		})

		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("rejects a canceled context", func(t *testing.T) {
		locker := lock.NewLocalOrderLocker()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := locker.WithLock(ctx, "R100001", func(context.Context) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("different orders do not block each other", func(t *testing.T) {
		locker := lock.NewLocalOrderLocker()
		ctx := context.Background()

		release := make(chan struct{})
		held := make(chan struct{})
		go func() {
			_ = locker.WithLock(ctx, "R100001", func(context.Context) error {
				close(held)
				<-release
				return nil
			})
		}()

		<-held
		err := locker.WithLock(ctx, "R100002", func(context.Context) error {
			return nil
		})
		close(release)

		assert.NoError(t, err)
	})
}
