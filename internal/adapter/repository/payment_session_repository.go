package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	domainrepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

type paymentSessionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentSessionRepository creates a new gorm-backed session repository.
func NewPaymentSessionRepository(db *gorm.DB, logger *zap.Logger) domainrepo.PaymentSessionRepository {
	return &paymentSessionRepository{db: db, logger: logger}
}

func (r *paymentSessionRepository) Create(ctx context.Context, session *model.PaymentSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.logger.Error("Failed to create payment session",
			zap.Int64("order_id", session.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment session: %w", err)
	}
	return nil
}

func (r *paymentSessionRepository) Update(ctx context.Context, session *model.PaymentSession) error {
	err := r.db.WithContext(ctx).
		Model(session).
		Select("status", "amount", "external_data", "payment_id", "updated_at").
		Updates(session).Error
	if err != nil {
		r.logger.Error("Failed to update payment session",
			zap.Int64("session_id", session.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update payment session: %w", err)
	}
	return nil
}

func (r *paymentSessionRepository) GetByID(ctx context.Context, id int64) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}
	return &session, nil
}

func (r *paymentSessionRepository) GetByExternalID(ctx context.Context, externalID string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get payment session by external id: %w", err)
	}
	return &session, nil
}

func (r *paymentSessionRepository) FindReusable(ctx context.Context, match domainrepo.SessionMatch) (*model.PaymentSession, error) {
	query := r.db.WithContext(ctx).
		Where("order_id = ? AND payment_method_id = ? AND status = ? AND expires_at > ?",
			match.OrderID, match.PaymentMethodID, model.SessionStateInitial, match.Now).
		Where("amount = ? AND currency = ?", match.Amount, match.Currency).
		Where("external_data ->> 'channel' = ?", match.Channel)

	if match.CustomerID != nil {
		query = query.Where("customer_id = ?", *match.CustomerID)
	} else {
		query = query.Where("customer_id IS NULL")
	}

	var session model.PaymentSession
	err := query.Order("created_at DESC").First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find reusable payment session: %w", err)
	}
	return &session, nil
}

func (r *paymentSessionRepository) DeleteStale(ctx context.Context, orderID int64, amount decimal.Decimal, currency string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, model.SessionStateInitial).
		Where("amount <> ? OR currency <> ?", amount, currency).
		Delete(&model.PaymentSession{})
	if result.Error != nil {
		r.logger.Error("Failed to delete stale payment sessions",
			zap.Int64("order_id", orderID),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to delete stale payment sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
