package lock

import "context"

// OrderLocker serializes all payment mutation for a single order. Webhook
// processors and user-initiated capture/void race on the same payment row;
// the read-check-transition sequence is only safe inside WithLock. The
// queue gives no order-level affinity, so this is the actual mutual
// exclusion mechanism.
type OrderLocker interface {
	// WithLock runs fn while holding the order's lock. The lock is held for
	// exactly one lookup-and-transition critical section and released once,
	// whether fn succeeds or fails. No nested acquisition of the same
	// order's lock is required or supported.
	WithLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error
}
