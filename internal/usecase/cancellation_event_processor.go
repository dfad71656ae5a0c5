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

// CancellationEventProcessor applies CANCELLATION confirmations to the
// matching payment under the owning order's lock. A failed cancellation
// returns the payment to pending rather than failing it: the funds were
// never released, so the void can be retried.
type CancellationEventProcessor struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	methods  repository.PaymentMethodRepository
	locker   lock.OrderLocker
	logger   *zap.Logger
}

// NewCancellationEventProcessor creates a new CancellationEventProcessor.
func NewCancellationEventProcessor(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	methods repository.PaymentMethodRepository,
	locker lock.OrderLocker,
	logger *zap.Logger,
) *CancellationEventProcessor {
	return &CancellationEventProcessor{
		orders:   orders,
		payments: payments,
		methods:  methods,
		locker:   locker,
		logger:   logger,
	}
}

// Process implements webhook.Processor.
func (p *CancellationEventProcessor) Process(ctx context.Context, event *webhook.Event) error {
	p.logger.Info("Started processing cancellation event",
		zap.String("event_id", event.ID),
		zap.String("merchant_reference", event.MerchantReference))

	order, err := p.orders.GetByNumber(ctx, event.MerchantReference)
	if err != nil {
		return fmt.Errorf("cancellation event %s: %w", event.ID, err)
	}

	method, err := p.methods.GetByMerchantAccount(ctx, event.MerchantAccountCode)
	if err != nil {
		return fmt.Errorf("cancellation event %s: %w", event.ID, err)
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
		return fmt.Errorf("cancellation event %s: %w", event.ID, err)
	}

	p.logger.Info("Finished processing cancellation event",
		zap.String("event_id", event.ID))
	return nil
}

func (p *CancellationEventProcessor) applySuccess(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	if payment.Void() {
		p.logger.Info("Payment already void, skipping cancellation event",
			zap.String("event_id", event.ID),
			zap.Int64("payment_id", payment.ID))
		return nil
	}

	payment.SetMetafield(model.MetafieldCancellationPSPReference, event.PSPReference)
	payment.ApplyIfPossible(model.PaymentEventStartProcessing)
	if err := payment.Apply(model.PaymentEventVoid); err != nil {
		return err
	}

	return p.payments.Update(ctx, payment)
}

func (p *CancellationEventProcessor) applyFailure(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	payment.AddProcessingError(fmt.Sprintf("Cancellation failed: %s", event.Reason))
	payment.ApplyIfPossible(model.PaymentEventStartProcessing)
	payment.ApplyIfPossible(model.PaymentEventPend)

	if err := p.payments.Update(ctx, payment); err != nil {
		return err
	}

	p.logger.Error("Gateway refused cancellation",
		zap.String("event_id", event.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("merchant_reference", event.MerchantReference),
		zap.String("reason", event.Reason))
	return nil
}
