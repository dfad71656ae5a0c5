package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	domainrepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

type paymentMethodRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentMethodRepository creates a new gorm-backed payment method repository.
func NewPaymentMethodRepository(db *gorm.DB, logger *zap.Logger) domainrepo.PaymentMethodRepository {
	return &paymentMethodRepository{db: db, logger: logger}
}

func (r *paymentMethodRepository) GetByID(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	err := r.db.WithContext(ctx).First(&method, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return &method, nil
}

func (r *paymentMethodRepository) GetByMerchantAccount(ctx context.Context, merchantAccount string) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("merchant_account = ?", merchantAccount).
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to get payment method by merchant account: %w", err)
	}
	return &method, nil
}

// Upsert inserts the payment method or refreshes its credentials when a row
// with the same merchant account already exists. Used when seeding from config.
func (r *paymentMethodRepository) Upsert(ctx context.Context, method *model.PaymentMethod) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "merchant_account"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "api_key", "client_key", "hmac_key",
				"previous_hmac_key", "test_mode", "auto_capture", "updated_at",
			}),
		}).
		Create(method).Error
	if err != nil {
		r.logger.Error("Failed to upsert payment method",
			zap.String("merchant_account", method.MerchantAccount),
			zap.Error(err))
		return fmt.Errorf("failed to upsert payment method: %w", err)
	}
	return nil
}
