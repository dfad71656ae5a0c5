package usecase_test

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/provider"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
)

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByResponseCode(ctx context.Context, responseCode string, paymentMethodID int64) (*model.Payment, error) {
	args := m.Called(ctx, responseCode, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestActiveByOrder(ctx context.Context, orderID, paymentMethodID int64) (*model.Payment, error) {
	args := m.Called(ctx, orderID, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkCompleted(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockPaymentMethodRepository is a mock implementation of PaymentMethodRepository
type MockPaymentMethodRepository struct {
	mock.Mock
}

func (m *MockPaymentMethodRepository) GetByID(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetByMerchantAccount(ctx context.Context, merchantAccount string) (*model.PaymentMethod, error) {
	args := m.Called(ctx, merchantAccount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) Upsert(ctx context.Context, method *model.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

// MockPaymentSessionRepository is a mock implementation of PaymentSessionRepository
type MockPaymentSessionRepository struct {
	mock.Mock
}

func (m *MockPaymentSessionRepository) Create(ctx context.Context, session *model.PaymentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockPaymentSessionRepository) Update(ctx context.Context, session *model.PaymentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockPaymentSessionRepository) GetByID(ctx context.Context, id int64) (*model.PaymentSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentSession), args.Error(1)
}

func (m *MockPaymentSessionRepository) GetByExternalID(ctx context.Context, externalID string) (*model.PaymentSession, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentSession), args.Error(1)
}

func (m *MockPaymentSessionRepository) FindReusable(ctx context.Context, match repository.SessionMatch) (*model.PaymentSession, error) {
	args := m.Called(ctx, match)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentSession), args.Error(1)
}

func (m *MockPaymentSessionRepository) DeleteStale(ctx context.Context, orderID int64, amount decimal.Decimal, currency string) (int64, error) {
	args := m.Called(ctx, orderID, amount, currency)
	return args.Get(0).(int64), args.Error(1)
}

// MockGatewayClient is a mock implementation of provider.GatewayClient
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) AuthorizeOrPurchase(ctx context.Context, req *provider.PaymentRequest) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func (m *MockGatewayClient) CapturePayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func (m *MockGatewayClient) CancelPayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func (m *MockGatewayClient) RefundPayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func (m *MockGatewayClient) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.SessionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SessionResult), args.Error(1)
}

func (m *MockGatewayClient) GetSessionResult(ctx context.Context, sessionID, sessionResult string) (*provider.SessionStatus, error) {
	args := m.Called(ctx, sessionID, sessionResult)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SessionStatus), args.Error(1)
}

// passthroughLocker runs the critical section inline. Mutual exclusion
// behavior is covered by the locker's own tests.
type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
