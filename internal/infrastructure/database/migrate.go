package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.PaymentMethod{},
		&model.Order{},
		&model.Payment{},
		&model.PaymentSession{},
		&model.WebhookDelivery{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM's tag syntax cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// Reusable-session lookups filter on the channel stored inside the
	// session's external data.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_sessions_channel ON payment_sessions ((external_data ->> 'channel'))`).Error; err != nil {
		return err
	}

	// The worker requeue scan touches only unfinished deliveries.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_unprocessed ON webhook_deliveries (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	return nil
}
