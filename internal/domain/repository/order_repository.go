package repository

import (
	"context"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// OrderRepository is the narrow order surface the payments module needs
// from the surrounding commerce system.
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// GetByNumber returns errors.ErrOrderNotFound when the merchant
	// reference does not match any order.
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	// MarkCompleted finalizes the order after a successful session payment.
	MarkCompleted(ctx context.Context, orderID int64) error
}

// PaymentMethodRepository is the lookup port for configured gateways.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id int64) (*model.PaymentMethod, error)
	// GetByMerchantAccount resolves the gateway a notification belongs to.
	GetByMerchantAccount(ctx context.Context, merchantAccount string) (*model.PaymentMethod, error)
	// Upsert seeds or refreshes a configured gateway at startup.
	Upsert(ctx context.Context, method *model.PaymentMethod) error
}
