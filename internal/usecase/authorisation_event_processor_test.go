package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/usecase"
	"github.com/helioscommerce/payment-service/internal/webhook"
)

func authorisationEvent(success bool) *webhook.Event {
	return &webhook.Event{
		ID:                  "evt-auth-1",
		Code:                webhook.EventCodeAuthorisation,
		Success:             success,
		PSPReference:        "AUTH_PSP_REF",
		MerchantReference:   "R100003",
		MerchantAccountCode: "HeliosECOM",
		AmountValue:         9900,
		AmountCurrency:      "EUR",
		Reason:              "Refused",
	}
}

func TestAuthorisationEventProcessor_Process(t *testing.T) {
	ctx := context.Background()

	order := &model.Order{ID: 11, Number: "R100003", State: model.OrderStatePayment}
	method := &model.PaymentMethod{ID: 3, MerchantAccount: "HeliosECOM"}

	newPayment := func(state model.PaymentState, responseCode string) *model.Payment {
		payment := &model.Payment{
			ID:              71,
			OrderID:         order.ID,
			PaymentMethodID: method.ID,
			Amount:          decimal.NewFromFloat(99.00),
			Currency:        "EUR",
			State:           state,
		}
		if responseCode != "" {
			payment.ResponseCode = &responseCode
		}
		return payment
	}

	t.Run("rebinds session-keyed payment to the authorization reference", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)
		sessions := new(MockPaymentSessionRepository)

		payment := newPayment(model.PaymentStateCheckout, "CS_SESSION_ID")
		session := &model.PaymentSession{ID: 62, OrderID: order.ID, ExternalID: "CS_SESSION_ID", Status: model.SessionStatePending}
		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(nil, domainerrors.ErrPaymentNotFound)
		payments.On("GetLatestActiveByOrder", ctx, order.ID, method.ID).Return(payment, nil)
		payments.On("Update", ctx, payment).Return(nil)
		sessions.On("GetByExternalID", ctx, "CS_SESSION_ID").Return(session, nil)
		sessions.On("Update", ctx, session).Return(nil)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, sessions, passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(true))

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatePending, payment.State)
		if assert.NotNil(t, payment.ResponseCode) {
			assert.Equal(t, "AUTH_PSP_REF", *payment.ResponseCode)
		}
		// The shopper never completed the session storefront-side; the
		// confirmation settles it.
		assert.Equal(t, model.SessionStateCompleted, session.Status)
	})

	t.Run("rebind survives an already-deleted session", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)
		sessions := new(MockPaymentSessionRepository)

		payment := newPayment(model.PaymentStateCheckout, "CS_SESSION_ID")
		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(nil, domainerrors.ErrPaymentNotFound)
		payments.On("GetLatestActiveByOrder", ctx, order.ID, method.ID).Return(payment, nil)
		payments.On("Update", ctx, payment).Return(nil)
		sessions.On("GetByExternalID", ctx, "CS_SESSION_ID").Return(nil, domainerrors.ErrSessionNotFound)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, sessions, passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(true))

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatePending, payment.State)
		sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("finds payment directly by authorization reference", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)

		payment := newPayment(model.PaymentStateCheckout, "AUTH_PSP_REF")
		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(payment, nil)
		payments.On("Update", ctx, payment).Return(nil)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, new(MockPaymentSessionRepository), passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(true))

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatePending, payment.State)
		payments.AssertNotCalled(t, "GetLatestActiveByOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("redelivered authorisation for rebound pending payment is a no-op", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)

		payment := newPayment(model.PaymentStatePending, "AUTH_PSP_REF")
		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(payment, nil)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, new(MockPaymentSessionRepository), passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(true))

		assert.NoError(t, err)
		payments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("failed authorisation fails the payment", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)

		payment := newPayment(model.PaymentStateCheckout, "CS_SESSION_ID")
		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(nil, domainerrors.ErrPaymentNotFound)
		payments.On("GetLatestActiveByOrder", ctx, order.ID, method.ID).Return(payment, nil)
		payments.On("Update", ctx, payment).Return(nil)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, new(MockPaymentSessionRepository), passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(false))

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStateFailed, payment.State)
		assert.Contains(t, payment.ProcessingErrors, "Authorisation failed: Refused")
	})

	t.Run("no active payment fails the processing attempt", func(t *testing.T) {
		orders := new(MockOrderRepository)
		payments := new(MockPaymentRepository)
		methods := new(MockPaymentMethodRepository)

		orders.On("GetByNumber", ctx, "R100003").Return(order, nil)
		methods.On("GetByMerchantAccount", ctx, "HeliosECOM").Return(method, nil)
		payments.On("GetByResponseCode", ctx, "AUTH_PSP_REF", method.ID).Return(nil, domainerrors.ErrPaymentNotFound)
		payments.On("GetLatestActiveByOrder", ctx, order.ID, method.ID).Return(nil, domainerrors.ErrPaymentNotFound)

		processor := usecase.NewAuthorisationEventProcessor(orders, payments, methods, new(MockPaymentSessionRepository), passthroughLocker{}, zap.NewNop())
		err := processor.Process(ctx, authorisationEvent(true))

		assert.ErrorIs(t, err, domainerrors.ErrPaymentNotFound)
	})
}
