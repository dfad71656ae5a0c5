package webhook

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
)

// Processor applies one event's outcome to the matching payment. A
// processor may run more than once for the same event (the queue is
// at-least-once), so implementations must be idempotent.
type Processor interface {
	Process(ctx context.Context, event *Event) error
}

// EventQueue is the delayed task queue events are dispatched through.
// Enqueue must not block on processing; DequeueDue returns the next event
// whose delay has elapsed, or nil when none is due.
type EventQueue interface {
	Enqueue(ctx context.Context, event *Event, delay time.Duration) error
	DequeueDue(ctx context.Context) (*Event, error)
}

// Router classifies validated notification items and schedules them for
// deferred processing. The registration set is fixed at construction; the
// deliberate delay before processing tolerates a second related
// notification racing the record creation the first one triggers.
type Router struct {
	queue      EventQueue
	deliveries repository.WebhookDeliveryRepository
	registered map[string]struct{}
	delay      time.Duration
	logger     *zap.Logger
}

// NewRouter creates a router that accepts the given event codes.
func NewRouter(
	queue EventQueue,
	deliveries repository.WebhookDeliveryRepository,
	delay time.Duration,
	logger *zap.Logger,
	codes ...string,
) *Router {
	registered := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		registered[code] = struct{}{}
	}

	return &Router{
		queue:      queue,
		deliveries: deliveries,
		registered: registered,
		delay:      delay,
		logger:     logger,
	}
}

// Supported reports whether the event code has a registered processor.
func (r *Router) Supported(code string) bool {
	_, ok := r.registered[code]
	return ok
}

// Route normalizes the item and enqueues it for deferred processing.
// Unsupported event codes are logged and dropped without error; the
// delivering party still gets an accepting response for them.
func (r *Router) Route(ctx context.Context, item NotificationRequestItem) error {
	if !r.Supported(item.EventCode) {
		r.logger.Info("Skipping unsupported webhook event",
			zap.String("event_code", item.EventCode),
			zap.String("psp_reference", item.PSPReference))
		return nil
	}

	event := NewEvent(item)

	delivery := &model.WebhookDelivery{
		EventID:           event.ID,
		EventCode:         event.Code,
		PSPReference:      event.PSPReference,
		Success:           event.Success,
		MerchantReference: event.MerchantReference,
		Status:            model.WebhookStatusPending,
		Payload:           event.Payload,
	}
	if err := r.deliveries.Save(ctx, delivery); err != nil {
		// The audit row is bookkeeping; a failed insert must not lose the
		// event itself.
		r.logger.Warn("Failed to persist webhook delivery",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	if err := r.queue.Enqueue(ctx, event, r.delay); err != nil {
		return err
	}

	r.logger.Info("Webhook event queued",
		zap.String("event_id", event.ID),
		zap.String("event_code", event.Code),
		zap.String("merchant_reference", event.MerchantReference),
		zap.Duration("delay", r.delay))
	return nil
}
