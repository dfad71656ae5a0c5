package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/lock"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
	"github.com/helioscommerce/payment-service/internal/webhook"
)

// AuthorisationEventProcessor applies AUTHORISATION confirmations. For
// session flows the payment is created keyed by the checkout session id;
// the confirmation rebinds it to the gateway's authorization reference so
// later captures and voids can address it.
type AuthorisationEventProcessor struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	methods  repository.PaymentMethodRepository
	sessions repository.PaymentSessionRepository
	locker   lock.OrderLocker
	logger   *zap.Logger
}

// NewAuthorisationEventProcessor creates a new AuthorisationEventProcessor.
func NewAuthorisationEventProcessor(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	methods repository.PaymentMethodRepository,
	sessions repository.PaymentSessionRepository,
	locker lock.OrderLocker,
	logger *zap.Logger,
) *AuthorisationEventProcessor {
	return &AuthorisationEventProcessor{
		orders:   orders,
		payments: payments,
		methods:  methods,
		sessions: sessions,
		locker:   locker,
		logger:   logger,
	}
}

// Process implements webhook.Processor.
func (p *AuthorisationEventProcessor) Process(ctx context.Context, event *webhook.Event) error {
	p.logger.Info("Started processing authorisation event",
		zap.String("event_id", event.ID),
		zap.String("merchant_reference", event.MerchantReference))

	order, err := p.orders.GetByNumber(ctx, event.MerchantReference)
	if err != nil {
		return fmt.Errorf("authorisation event %s: %w", event.ID, err)
	}

	method, err := p.methods.GetByMerchantAccount(ctx, event.MerchantAccountCode)
	if err != nil {
		return fmt.Errorf("authorisation event %s: %w", event.ID, err)
	}

	err = p.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		payment, err := p.locatePayment(ctx, order, method, event)
		if err != nil {
			return err
		}

		if event.Success {
			return p.applySuccess(ctx, payment, event)
		}
		return p.applyFailure(ctx, payment, event)
	})
	if err != nil {
		return fmt.Errorf("authorisation event %s: %w", event.ID, err)
	}

	p.logger.Info("Finished processing authorisation event",
		zap.String("event_id", event.ID))
	return nil
}

// locatePayment finds the payment the confirmation belongs to: first by
// the authorization reference (redelivery after a rebind), then the
// order's latest active payment (still keyed by its session id).
func (p *AuthorisationEventProcessor) locatePayment(ctx context.Context, order *model.Order, method *model.PaymentMethod, event *webhook.Event) (*model.Payment, error) {
	payment, err := p.payments.GetByResponseCode(ctx, event.PSPReference, method.ID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, domainerrors.ErrPaymentNotFound) {
		return nil, err
	}
	return p.payments.GetLatestActiveByOrder(ctx, order.ID, method.ID)
}

func (p *AuthorisationEventProcessor) applySuccess(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	reference := event.PSPReference
	if payment.ResponseCode != nil && *payment.ResponseCode == reference && payment.State == model.PaymentStatePending {
		p.logger.Info("Payment already authorized, skipping authorisation event",
			zap.String("event_id", event.ID),
			zap.Int64("payment_id", payment.ID))
		return nil
	}

	// A payment still keyed by its checkout session id means the shopper
	// never returned to the storefront; settle the originating session
	// before rebinding.
	if payment.ResponseCode != nil && *payment.ResponseCode != reference {
		p.settleSession(ctx, *payment.ResponseCode, event)
	}

	payment.ResponseCode = &reference
	payment.ApplyIfPossible(model.PaymentEventStartProcessing)
	payment.ApplyIfPossible(model.PaymentEventPend)

	return p.payments.Update(ctx, payment)
}

// settleSession marks the checkout session the payment was keyed by as
// completed. Best effort: the payment rebind must not fail on session
// bookkeeping.
func (p *AuthorisationEventProcessor) settleSession(ctx context.Context, externalID string, event *webhook.Event) {
	session, err := p.sessions.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrSessionNotFound) {
			p.logger.Warn("Failed to look up checkout session for authorised payment",
				zap.String("event_id", event.ID),
				zap.String("session_external_id", externalID),
				zap.Error(err))
		}
		return
	}

	if !session.ApplyIfPossible(model.SessionEventComplete) {
		return
	}
	if err := p.sessions.Update(ctx, session); err != nil {
		p.logger.Warn("Failed to settle checkout session",
			zap.String("event_id", event.ID),
			zap.Int64("session_id", session.ID),
			zap.Error(err))
	}
}

func (p *AuthorisationEventProcessor) applyFailure(ctx context.Context, payment *model.Payment, event *webhook.Event) error {
	payment.AddProcessingError(fmt.Sprintf("Authorisation failed: %s", event.Reason))
	payment.ApplyIfPossible(model.PaymentEventStartProcessing)
	payment.ApplyIfPossible(model.PaymentEventFail)

	if err := p.payments.Update(ctx, payment); err != nil {
		return err
	}

	p.logger.Error("Gateway refused authorisation",
		zap.String("event_id", event.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("merchant_reference", event.MerchantReference),
		zap.String("reason", event.Reason))
	return nil
}
