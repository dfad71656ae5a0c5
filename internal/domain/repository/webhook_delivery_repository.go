package repository

import (
	"context"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// WebhookDeliveryRepository stores received-notification audit rows and
// their processing bookkeeping.
type WebhookDeliveryRepository interface {
	// Save inserts the delivery, silently ignoring duplicates of the same
	// (psp reference, event code, success) item.
	Save(ctx context.Context, delivery *model.WebhookDelivery) error
	GetByEventID(ctx context.Context, eventID string) (*model.WebhookDelivery, error)
	MarkProcessed(ctx context.Context, eventID string) error
	// MarkFailed records a failed attempt; dead marks the delivery as
	// exhausted (no further redelivery).
	MarkFailed(ctx context.Context, eventID string, procErr error, dead bool) error
}
