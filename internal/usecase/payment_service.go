package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/domain/lock"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/provider"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
)

// PaymentService is the synchronous façade for local payment intents.
// Capture and void against this gateway are two-phase: the request is
// acknowledged here and the payment parked in a gateway-pending state; the
// definitive outcome arrives via webhook. The presence of the matching
// reference metafield is the idempotency boundary that makes repeated
// capture/void invocations safe.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	methods  repository.PaymentMethodRepository
	gateway  provider.GatewayClient
	locker   lock.OrderLocker
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	methods repository.PaymentMethodRepository,
	gateway provider.GatewayClient,
	locker lock.OrderLocker,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		methods:  methods,
		gateway:  gateway,
		locker:   locker,
		logger:   logger,
	}
}

// AuthorizeOrPurchase places an authorization (or purchase, when the
// gateway auto-captures) for the payment against a stored source.
func (s *PaymentService) AuthorizeOrPurchase(ctx context.Context, payment *model.Payment, source map[string]interface{}, returnURL string) (*provider.Result, error) {
	method, err := s.methods.GetByID(ctx, payment.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	var result *provider.Result
	err = s.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		result, err = s.gateway.AuthorizeOrPurchase(ctx, &provider.PaymentRequest{
			MerchantAccount:  method.MerchantAccount,
			AmountMinorUnits: payment.AmountInMinorUnits(),
			Currency:         payment.Currency,
			Reference:        order.Number,
			ReturnURL:        returnURL,
			ManualCapture:    !method.AutoCapture,
			PaymentMethod:    source,
		})
		if err != nil {
			return err
		}

		if result.Success {
			payment.ResponseCode = &result.Reference
			payment.ApplyIfPossible(model.PaymentEventStartProcessing)
			payment.ApplyIfPossible(model.PaymentEventPend)
		} else {
			payment.AddProcessingError(result.Message)
			payment.ApplyIfPossible(model.PaymentEventFail)
		}
		return s.payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestCapture asks the gateway to capture the authorized amount and
// parks the payment in capture_pending until the confirmation webhook is
// processed. A payment already captured, awaiting capture, or carrying the
// capture reference metafield short-circuits to success with no call.
func (s *PaymentService) RequestCapture(ctx context.Context, responseCode string, paymentMethodID int64, amount decimal.Decimal) (*provider.Result, error) {
	_, method, order, err := s.loadPayment(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, err
	}

	var result *provider.Result
	err = s.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		// A concurrent caller or webhook processor may have moved the
		// payment while we waited on the lock; the short-circuit checks
		// and the write must operate on a fresh read.
		payment, err := s.payments.GetByResponseCode(ctx, responseCode, paymentMethodID)
		if err != nil {
			return err
		}

		if payment.Completed() || payment.CapturePending() || payment.HasMetafield(model.MetafieldCapturePSPReference) {
			result = &provider.Result{Success: true, Reference: responseCode}
			return nil
		}

		minorUnits := amount.Shift(2).Round(0).IntPart()
		if minorUnits == 0 {
			minorUnits = payment.AmountInMinorUnits()
		}

		result, err = s.gateway.CapturePayment(ctx, &provider.ModificationRequest{
			MerchantAccount:  method.MerchantAccount,
			PaymentReference: responseCode,
			AmountMinorUnits: minorUnits,
			Currency:         payment.Currency,
			Reference:        order.Number,
		})
		if err != nil {
			return err
		}

		if result.Success {
			payment.ApplyIfPossible(model.PaymentEventPendCapture)
		} else {
			payment.AddProcessingError(fmt.Sprintf("Capture request failed: %s", result.Message))
			payment.ApplyIfPossible(model.PaymentEventFail)
		}
		return s.payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Capture reports whether the capture has been confirmed by the gateway.
// It is a pure metafield read: the actual capture is requested in
// RequestCapture and applied by the capture event processor.
func (s *PaymentService) Capture(ctx context.Context, responseCode string, paymentMethodID int64) (*provider.Result, error) {
	payment, err := s.payments.GetByResponseCode(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, err
	}

	if !payment.HasMetafield(model.MetafieldCapturePSPReference) {
		return &provider.Result{
			Success: false,
			Message: fmt.Sprintf("%s - capture confirmation not received", responseCode),
		}, nil
	}
	return &provider.Result{Success: true, Reference: responseCode}, nil
}

// RequestVoid asks the gateway to cancel the authorization and parks the
// payment in void_pending until the confirmation webhook is processed.
func (s *PaymentService) RequestVoid(ctx context.Context, responseCode string, paymentMethodID int64) (*provider.Result, error) {
	_, method, order, err := s.loadPayment(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, err
	}

	var result *provider.Result
	err = s.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		// Same fresh-read discipline as RequestCapture: the pre-lock
		// snapshot must not decide anything.
		payment, err := s.payments.GetByResponseCode(ctx, responseCode, paymentMethodID)
		if err != nil {
			return err
		}

		if payment.Void() || payment.VoidPending() || payment.HasMetafield(model.MetafieldCancellationPSPReference) {
			result = &provider.Result{Success: true, Reference: responseCode}
			return nil
		}

		payment.ApplyIfPossible(model.PaymentEventStartProcessing)

		result, err = s.gateway.CancelPayment(ctx, &provider.ModificationRequest{
			MerchantAccount:  method.MerchantAccount,
			PaymentReference: responseCode,
			Reference:        order.Number,
		})
		if err != nil {
			return err
		}

		if result.Success {
			payment.ApplyIfPossible(model.PaymentEventPendVoid)
		} else {
			payment.AddProcessingError(fmt.Sprintf("Cancellation request failed: %s", result.Message))
			payment.ApplyIfPossible(model.PaymentEventFail)
		}
		return s.payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Void reports whether the cancellation has been confirmed by the gateway,
// by metafield presence only.
func (s *PaymentService) Void(ctx context.Context, responseCode string, paymentMethodID int64) (*provider.Result, error) {
	payment, err := s.payments.GetByResponseCode(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, err
	}

	if !payment.HasMetafield(model.MetafieldCancellationPSPReference) {
		return &provider.Result{
			Success: false,
			Message: fmt.Sprintf("%s - cancellation confirmation not received", responseCode),
		}, nil
	}
	return &provider.Result{Success: true, Reference: responseCode}, nil
}

// Refund refunds part or all of a captured payment.
func (s *PaymentService) Refund(ctx context.Context, responseCode string, paymentMethodID int64, amount decimal.Decimal) (*provider.Result, error) {
	payment, method, order, err := s.loadPayment(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, err
	}

	return s.gateway.RefundPayment(ctx, &provider.ModificationRequest{
		MerchantAccount:  method.MerchantAccount,
		PaymentReference: responseCode,
		AmountMinorUnits: amount.Shift(2).Round(0).IntPart(),
		Currency:         payment.Currency,
		Reference:        order.Number,
	})
}

func (s *PaymentService) loadPayment(ctx context.Context, responseCode string, paymentMethodID int64) (*model.Payment, *model.PaymentMethod, *model.Order, error) {
	payment, err := s.payments.GetByResponseCode(ctx, responseCode, paymentMethodID)
	if err != nil {
		return nil, nil, nil, err
	}
	method, err := s.methods.GetByID(ctx, paymentMethodID)
	if err != nil {
		return nil, nil, nil, err
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, nil, err
	}
	return payment, method, order, nil
}
