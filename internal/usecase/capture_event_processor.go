package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/domain/lock"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
	"github.com/helioscommerce/payment-service/internal/webhook"
)

// CaptureEventProcessor applies CAPTURE confirmations to the matching
// payment. It runs under the owning order's lock and is idempotent: a
// redelivered confirmation for an already-completed payment is a no-op.
type CaptureEventProcessor struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	methods  repository.PaymentMethodRepository
	locker   lock.OrderLocker
	logger   *zap.Logger
}

// NewCaptureEventProcessor creates a new CaptureEventProcessor.
func NewCaptureEventProcessor(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	methods repository.PaymentMethodRepository,
	locker lock.OrderLocker,
	logger *zap.Logger,
) *CaptureEventProcessor {
	return &CaptureEventProcessor{
		orders:   orders,
		payments: payments,
		methods:  methods,
		locker:   locker,
		logger:   logger,
	}
}

// Process implements webhook.Processor.
func (p *CaptureEventProcessor) Process(ctx context.Context, event *webhook.Event) error {
	p.logger.Info("Started processing capture event",
		zap.String("event_id", event.ID),
		zap.String("merchant_reference", event.MerchantReference))

	order, err := p.orders.GetByNumber(ctx, event.MerchantReference)
	if err != nil {
		return fmt.Errorf("capture event %s: %w", event.ID, err)
	}

	method, err := p.methods.GetByMerchantAccount(ctx, event.MerchantAccountCode)
	if err != nil {
		return fmt.Errorf("capture event %s: %w", event.ID, err)
	}

	err = p.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		payment, err := p.payments.GetByResponseCode(ctx, event.Reference(), method.ID)
		if err != nil {
			return err
		}

		if event.Success {
			return p.applySuccess(ctx, payment, event)
		}
		return p.applyFailure(ctx, payment, event)
	})
	if err != nil {
		return fmt.Errorf("capture event %s: %w", event.ID, err)
	}

	p.logger.Info("Finished processing capture event",
		zap.String("event_id", event.ID))
	return nil
}

func (p *CaptureEventProcessor) applySuccess(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	// Duplicate delivery of an already-applied confirmation.
	if payment.Completed() {
		p.logger.Info("Payment already completed, skipping capture event",
			zap.String("event_id", event.ID),
			zap.Int64("payment_id", payment.ID))
		return nil
	}

	payment.SetMetafield(model.MetafieldCapturePSPReference, event.PSPReference)
	if err := payment.Apply(model.PaymentEventComplete); err != nil {
		return err
	}

	return p.payments.Update(ctx, payment)
}

func (p *CaptureEventProcessor) applyFailure(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	payment.AddProcessingError(fmt.Sprintf("Capture failed: %s", event.Reason))
	payment.ApplyIfPossible(model.PaymentEventStartProcessing)
	payment.ApplyIfPossible(model.PaymentEventFail)

	if err := p.payments.Update(ctx, payment); err != nil {
		return err
	}

	// The capture initiator already received a synchronous "capture
	// requested" success; the refusal is reported, not raised.
	p.logger.Error("Gateway refused capture",
		zap.String("event_id", event.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("merchant_reference", event.MerchantReference),
		zap.String("reason", event.Reason))
	return nil
}
