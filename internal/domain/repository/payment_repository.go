package repository

import (
	"context"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// PaymentRepository is the persistence port for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	// Update persists the payment's state, metafields and processing errors.
	Update(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	// GetByResponseCode looks a payment up by the gateway reference it was
	// created with, scoped to one payment method. Returns
	// errors.ErrPaymentNotFound when no row matches.
	GetByResponseCode(ctx context.Context, responseCode string, paymentMethodID int64) (*model.Payment, error)
	// GetLatestActiveByOrder returns the order's most recent payment for a
	// method that has not reached a terminal state. Used to rebind a
	// session-keyed payment to the gateway's authorization reference.
	GetLatestActiveByOrder(ctx context.Context, orderID, paymentMethodID int64) (*model.Payment, error)
}
