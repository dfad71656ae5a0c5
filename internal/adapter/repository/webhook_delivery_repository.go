package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helioscommerce/payment-service/internal/domain/model"
	domainrepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

// ErrWebhookDeliveryNotFound is returned when a delivery lookup misses.
var ErrWebhookDeliveryNotFound = errors.New("webhook delivery not found")

type webhookDeliveryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookDeliveryRepository creates a new gorm-backed webhook delivery repository.
func NewWebhookDeliveryRepository(db *gorm.DB, logger *zap.Logger) domainrepo.WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db, logger: logger}
}

func (r *webhookDeliveryRepository) Save(ctx context.Context, delivery *model.WebhookDelivery) error {
	// The gateway redelivers items until it gets an accepting response, so a
	// second copy of the same (event code, psp reference, success) item is
	// expected and not an error.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(delivery).Error
	if err != nil {
		return fmt.Errorf("failed to save webhook delivery: %w", err)
	}
	return nil
}

func (r *webhookDeliveryRepository) GetByEventID(ctx context.Context, eventID string) (*model.WebhookDelivery, error) {
	var delivery model.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get webhook delivery: %w", err)
	}
	return &delivery, nil
}

func (r *webhookDeliveryRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.WebhookDelivery{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusCompleted,
			"processed_at":        &now,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
			"last_error":          nil,
		}).Error
	if err != nil {
		r.logger.Error("Failed to mark webhook delivery processed",
			zap.String("event_id", eventID),
			zap.Error(err))
		return fmt.Errorf("failed to mark webhook delivery processed: %w", err)
	}
	return nil
}

func (r *webhookDeliveryRepository) MarkFailed(ctx context.Context, eventID string, procErr error, dead bool) error {
	status := model.WebhookStatusFailed
	if dead {
		status = model.WebhookStatusDead
	}
	msg := procErr.Error()
	err := r.db.WithContext(ctx).
		Model(&model.WebhookDelivery{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":              status,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
			"last_error":          &msg,
		}).Error
	if err != nil {
		r.logger.Error("Failed to mark webhook delivery failed",
			zap.String("event_id", eventID),
			zap.Error(err))
		return fmt.Errorf("failed to mark webhook delivery failed: %w", err)
	}
	return nil
}
