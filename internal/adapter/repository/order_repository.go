package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	domainrepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new gorm-backed order repository.
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) domainrepo.OrderRepository {
	return &orderRepository{db: db, logger: logger}
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("number = ?", number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) MarkCompleted(ctx context.Context, orderID int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND completed_at IS NULL", orderID).
		Updates(map[string]interface{}{
			"state":        model.OrderStateComplete,
			"completed_at": &now,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark order completed",
			zap.Int64("order_id", orderID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark order completed: %w", result.Error)
	}
	return nil
}
