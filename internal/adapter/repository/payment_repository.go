package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	domainrepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new gorm-backed payment repository.
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainrepo.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.Int64("order_id", payment.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	err := r.db.WithContext(ctx).
		Model(payment).
		Select("state", "response_code", "amount", "metafields", "processing_errors", "source_required", "updated_at").
		Updates(payment).Error
	if err != nil {
		r.logger.Error("Failed to update payment",
			zap.Int64("payment_id", payment.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByResponseCode(ctx context.Context, responseCode string, paymentMethodID int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("response_code = ? AND payment_method_id = ?", responseCode, paymentMethodID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by response code: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetLatestActiveByOrder(ctx context.Context, orderID, paymentMethodID int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND payment_method_id = ? AND state NOT IN ?",
			orderID, paymentMethodID,
			[]model.PaymentState{model.PaymentStateCompleted, model.PaymentStateVoid, model.PaymentStateFailed}).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get latest active payment: %w", err)
	}
	return &payment, nil
}
