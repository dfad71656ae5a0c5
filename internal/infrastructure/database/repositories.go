package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/helioscommerce/payment-service/internal/adapter/repository"
	domainRepo "github.com/helioscommerce/payment-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Payment         domainRepo.PaymentRepository
	PaymentSession  domainRepo.PaymentSessionRepository
	Order           domainRepo.OrderRepository
	PaymentMethod   domainRepo.PaymentMethodRepository
	WebhookDelivery domainRepo.WebhookDeliveryRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Payment:         repository.NewPaymentRepository(db, logger),
		PaymentSession:  repository.NewPaymentSessionRepository(db, logger),
		Order:           repository.NewOrderRepository(db, logger),
		PaymentMethod:   repository.NewPaymentMethodRepository(db, logger),
		WebhookDelivery: repository.NewWebhookDeliveryRepository(db, logger),
	}
}
