package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/webhook"
	"github.com/helioscommerce/payment-service/internal/worker"
)

// memoryQueue is an EventQueue that ignores delays, so retries become due
// immediately.
type memoryQueue struct {
	mu     sync.Mutex
	events []*webhook.Event
}

func (q *memoryQueue) Enqueue(_ context.Context, event *webhook.Event, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func (q *memoryQueue) DequeueDue(_ context.Context) (*webhook.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, nil
	}
	event := q.events[0]
	q.events = q.events[1:]
	return event, nil
}

type recordingDeliveries struct {
	mu        sync.Mutex
	processed []string
	failed    []string
	dead      []string
}

func (r *recordingDeliveries) Save(context.Context, *model.WebhookDelivery) error { return nil }

func (r *recordingDeliveries) GetByEventID(context.Context, string) (*model.WebhookDelivery, error) {
	return nil, nil
}

func (r *recordingDeliveries) MarkProcessed(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, eventID)
	return nil
}

func (r *recordingDeliveries) MarkFailed(_ context.Context, eventID string, _ error, dead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, eventID)
	if dead {
		r.dead = append(r.dead, eventID)
	}
	return nil
}

func (r *recordingDeliveries) processedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processed)
}

func (r *recordingDeliveries) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

func (r *recordingDeliveries) deadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dead)
}

type stubProcessor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *stubProcessor) Process(context.Context, *webhook.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func queuedEvent(code string) *webhook.Event {
	return &webhook.Event{
		ID:                  "evt-worker-1",
		Code:                code,
		Success:             true,
		PSPReference:        "AUTH_PSP_REF",
		MerchantReference:   "R600001",
		MerchantAccountCode: "HeliosECOM",
	}
}

func TestWebhookWorker(t *testing.T) {
	t.Run("a processed event is marked processed once", func(t *testing.T) {
		queue := &memoryQueue{}
		deliveries := &recordingDeliveries{}
		processor := &stubProcessor{}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewWebhookWorker(queue,
			map[string]webhook.Processor{webhook.EventCodeCapture: processor},
			deliveries, 2, zap.NewNop())

		assert.NoError(t, queue.Enqueue(ctx, queuedEvent(webhook.EventCodeCapture), 0))
		w.Start(ctx)

		assert.Eventually(t, func() bool {
			return deliveries.processedCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, processor.callCount())
		assert.Zero(t, deliveries.failedCount())

		cancel()
		w.Wait()
	})

	t.Run("a failing event is retried and eventually marked dead", func(t *testing.T) {
		queue := &memoryQueue{}
		deliveries := &recordingDeliveries{}
		processor := &stubProcessor{err: errors.New("lock acquisition timed out")}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewWebhookWorker(queue,
			map[string]webhook.Processor{webhook.EventCodeCapture: processor},
			deliveries, 1, zap.NewNop())

		assert.NoError(t, queue.Enqueue(ctx, queuedEvent(webhook.EventCodeCapture), 0))
		w.Start(ctx)

		assert.Eventually(t, func() bool {
			return deliveries.deadCount() == 1
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, 5, processor.callCount())
		assert.Equal(t, 5, deliveries.failedCount())

		cancel()
		w.Wait()
	})

	t.Run("an unknown-record event is marked dead without retrying", func(t *testing.T) {
		queue := &memoryQueue{}
		deliveries := &recordingDeliveries{}
		processor := &stubProcessor{err: fmt.Errorf("capture event evt-worker-1: %w", domainerrors.ErrOrderNotFound)}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewWebhookWorker(queue,
			map[string]webhook.Processor{webhook.EventCodeCapture: processor},
			deliveries, 1, zap.NewNop())

		assert.NoError(t, queue.Enqueue(ctx, queuedEvent(webhook.EventCodeCapture), 0))
		w.Start(ctx)

		assert.Eventually(t, func() bool {
			return deliveries.deadCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, processor.callCount())
		assert.Equal(t, 1, deliveries.failedCount())
		assert.Zero(t, deliveries.processedCount())

		cancel()
		w.Wait()
	})

	t.Run("a missing payment is marked dead without retrying", func(t *testing.T) {
		queue := &memoryQueue{}
		deliveries := &recordingDeliveries{}
		processor := &stubProcessor{err: domainerrors.ErrPaymentNotFound}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewWebhookWorker(queue,
			map[string]webhook.Processor{webhook.EventCodeCapture: processor},
			deliveries, 1, zap.NewNop())

		assert.NoError(t, queue.Enqueue(ctx, queuedEvent(webhook.EventCodeCapture), 0))
		w.Start(ctx)

		assert.Eventually(t, func() bool {
			return deliveries.deadCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, processor.callCount())

		cancel()
		w.Wait()
	})

	t.Run("an event with no registered processor is marked dead", func(t *testing.T) {
		queue := &memoryQueue{}
		deliveries := &recordingDeliveries{}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewWebhookWorker(queue, map[string]webhook.Processor{}, deliveries, 1, zap.NewNop())

		assert.NoError(t, queue.Enqueue(ctx, queuedEvent("REPORT_AVAILABLE"), 0))
		w.Start(ctx)

		assert.Eventually(t, func() bool {
			return deliveries.deadCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Zero(t, deliveries.processedCount())

		cancel()
		w.Wait()
	})
}
