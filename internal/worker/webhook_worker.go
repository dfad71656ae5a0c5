package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
	"github.com/helioscommerce/payment-service/internal/webhook"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 10 * time.Second
)

// WebhookWorker drains the delayed event queue and dispatches each event to
// the processor registered for its code. Processing is at-least-once: a
// failed attempt is re-enqueued with backoff until the attempt budget is
// exhausted, then the delivery is marked dead.
type WebhookWorker struct {
	queue      webhook.EventQueue
	processors map[string]webhook.Processor
	deliveries repository.WebhookDeliveryRepository
	logger     *zap.Logger

	concurrency  int
	pollInterval time.Duration
	maxAttempts  int
	retryBackoff time.Duration

	wg sync.WaitGroup
}

// NewWebhookWorker creates a worker pool over the event queue.
func NewWebhookWorker(
	queue webhook.EventQueue,
	processors map[string]webhook.Processor,
	deliveries repository.WebhookDeliveryRepository,
	concurrency int,
	logger *zap.Logger,
) *WebhookWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WebhookWorker{
		queue:        queue,
		processors:   processors,
		deliveries:   deliveries,
		logger:       logger,
		concurrency:  concurrency,
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

// Start launches the worker goroutines. They run until ctx is canceled.
func (w *WebhookWorker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}
	w.logger.Info("Webhook worker started", zap.Int("concurrency", w.concurrency))
}

// Wait blocks until all worker goroutines have exited.
func (w *WebhookWorker) Wait() {
	w.wg.Wait()
}

func (w *WebhookWorker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, err := w.queue.DequeueDue(ctx)
		if err != nil {
			w.logger.Error("Failed to dequeue webhook event",
				zap.Int("worker", id),
				zap.Error(err))
			w.sleep(ctx, w.pollInterval)
			continue
		}
		if event == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}

		w.handle(ctx, event)
	}
}

func (w *WebhookWorker) handle(ctx context.Context, event *webhook.Event) {
	processor, ok := w.processors[event.Code]
	if !ok {
		// The router only enqueues registered codes; an unknown code here
		// means the registration sets diverged.
		w.logger.Error("No processor registered for queued event",
			zap.String("event_id", event.ID),
			zap.String("event_code", event.Code))
		w.markFailed(ctx, event, fmt.Errorf("no processor registered for event code %q", event.Code), true)
		return
	}

	err := processor.Process(ctx, event)
	event.Attempt++
	if err == nil {
		if markErr := w.deliveries.MarkProcessed(ctx, event.ID); markErr != nil {
			w.logger.Warn("Failed to mark webhook delivery processed",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return
	}

	if isLookupFailure(err) {
		// The gateway authenticated the notification but nothing it refers
		// to exists here. Retrying cannot repair a data-consistency gap;
		// the delivery is reported dead for operator attention.
		w.logger.Error("Webhook event refers to unknown records",
			zap.String("event_id", event.ID),
			zap.String("event_code", event.Code),
			zap.String("merchant_reference", event.MerchantReference),
			zap.Error(err))
		w.markFailed(ctx, event, err, true)
		return
	}

	if event.Attempt >= w.maxAttempts {
		w.logger.Error("Webhook event exhausted processing attempts",
			zap.String("event_id", event.ID),
			zap.String("event_code", event.Code),
			zap.String("merchant_reference", event.MerchantReference),
			zap.Int("attempts", event.Attempt),
			zap.Error(err))
		w.markFailed(ctx, event, err, true)
		return
	}

	w.logger.Warn("Webhook event processing failed, will retry",
		zap.String("event_id", event.ID),
		zap.String("event_code", event.Code),
		zap.Int("attempt", event.Attempt),
		zap.Error(err))
	w.markFailed(ctx, event, err, false)

	backoff := w.retryBackoff * time.Duration(event.Attempt)
	if enqErr := w.queue.Enqueue(ctx, event, backoff); enqErr != nil {
		w.logger.Error("Failed to re-enqueue webhook event",
			zap.String("event_id", event.ID),
			zap.Error(enqErr))
	}
}

// isLookupFailure reports whether err means a record the event refers to
// does not exist, as opposed to a transient processing failure.
func isLookupFailure(err error) bool {
	return errors.Is(err, domainerrors.ErrOrderNotFound) ||
		errors.Is(err, domainerrors.ErrPaymentNotFound) ||
		errors.Is(err, domainerrors.ErrPaymentMethodNotFound)
}

func (w *WebhookWorker) markFailed(ctx context.Context, event *webhook.Event, procErr error, dead bool) {
	if err := w.deliveries.MarkFailed(ctx, event.ID, procErr, dead); err != nil {
		w.logger.Warn("Failed to mark webhook delivery failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func (w *WebhookWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
