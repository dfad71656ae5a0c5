package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/lock"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/provider"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
)

// SessionNotAllowedError rejects session creation for an order whose state
// does not take payments.
type SessionNotAllowedError struct {
	OrderState string
}

func (e *SessionNotAllowedError) Error() string {
	return fmt.Sprintf("cannot create payment session for the order in the %s state", e.OrderState)
}

// FindOrCreateSessionParams are the shopper-supplied session parameters.
type FindOrCreateSessionParams struct {
	OrderID         int64
	PaymentMethodID int64
	CustomerID      *string
	Amount          *decimal.Decimal
	Channel         string
	ReturnURL       string
}

// PaymentSessionService owns the gateway checkout session lifecycle:
// find-or-create with strict reuse matching, stale-session invalidation,
// and the completion protocol that resolves a session into a payment.
type PaymentSessionService struct {
	sessions          repository.PaymentSessionRepository
	payments          repository.PaymentRepository
	orders            repository.OrderRepository
	methods           repository.PaymentMethodRepository
	gateway           provider.GatewayClient
	locker            lock.OrderLocker
	sessionExpiration time.Duration
	defaultReturnURL  string
	logger            *zap.Logger
	now               func() time.Time
}

// NewPaymentSessionService creates a new PaymentSessionService.
func NewPaymentSessionService(
	sessions repository.PaymentSessionRepository,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	methods repository.PaymentMethodRepository,
	gateway provider.GatewayClient,
	locker lock.OrderLocker,
	sessionExpiration time.Duration,
	defaultReturnURL string,
	logger *zap.Logger,
) *PaymentSessionService {
	return &PaymentSessionService{
		sessions:          sessions,
		payments:          payments,
		orders:            orders,
		methods:           methods,
		gateway:           gateway,
		locker:            locker,
		sessionExpiration: sessionExpiration,
		defaultReturnURL:  defaultReturnURL,
		logger:            logger,
		now:               time.Now,
	}
}

// Get returns one of the order's sessions.
func (s *PaymentSessionService) Get(ctx context.Context, sessionID, orderID int64) (*model.PaymentSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OrderID != orderID {
		return nil, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

// FindOrCreate returns an existing reusable session or opens a new one on
// the gateway. A session is reusable only while initial, non-expired and
// matching the order, method, customer, amount, currency and channel the
// gateway bound it to; any mismatch forces a new session.
func (s *PaymentSessionService) FindOrCreate(ctx context.Context, params FindOrCreateSessionParams) (*model.PaymentSession, error) {
	order, err := s.orders.GetByID(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.CanCreatePaymentSession() {
		return nil, &SessionNotAllowedError{OrderState: order.State}
	}

	method, err := s.methods.GetByID(ctx, params.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	// Sessions created for terms the order no longer has can never be
	// completed; drop them before looking for a reusable one.
	if _, err := s.sessions.DeleteStale(ctx, order.ID, order.Total, order.Currency); err != nil {
		return nil, err
	}

	amount := order.Total
	if params.Amount != nil {
		amount = *params.Amount
	}
	channel := normalizeChannel(params.Channel)
	returnURL := params.ReturnURL
	if returnURL == "" {
		returnURL = s.defaultReturnURL
	}

	existing, err := s.sessions.FindReusable(ctx, repository.SessionMatch{
		OrderID:         order.ID,
		PaymentMethodID: method.ID,
		CustomerID:      params.CustomerID,
		Amount:          amount,
		Currency:        order.Currency,
		Channel:         channel,
		Now:             s.now(),
	})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrSessionNotFound) {
		return nil, err
	}

	result, err := s.gateway.CreateSession(ctx, &provider.SessionRequest{
		MerchantAccount:  method.MerchantAccount,
		AmountMinorUnits: amount.Shift(2).Round(0).IntPart(),
		Currency:         order.Currency,
		Reference:        order.Number,
		Channel:          channel,
		ReturnURL:        returnURL,
		ShopperReference: shopperReference(params.CustomerID),
		ExpiresAt:        s.now().Add(s.sessionExpiration),
	})
	if err != nil {
		return nil, err
	}

	expiresAt := result.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(s.sessionExpiration)
	}

	session := &model.PaymentSession{
		OrderID:         order.ID,
		PaymentMethodID: method.ID,
		CustomerID:      params.CustomerID,
		Amount:          amount,
		Currency:        order.Currency,
		Status:          model.SessionStateInitial,
		ExternalID:      result.ID,
		ExpiresAt:       expiresAt,
		ExternalData: model.JSONB{
			"session_data": result.SessionData,
			"channel":      channel,
			"return_url":   returnURL,
		},
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Payment session created",
		zap.Int64("session_id", session.ID),
		zap.String("external_id", session.ExternalID),
		zap.String("order_number", order.Number),
		zap.String("channel", channel))
	return session, nil
}

// Complete queries the gateway for the session's authoritative outcome and
// resolves it into the underlying payment under the order's lock.
func (s *PaymentSessionService) Complete(ctx context.Context, sessionID int64, sessionResult string) (*model.PaymentSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, session.OrderID)
	if err != nil {
		return nil, err
	}

	status, err := s.gateway.GetSessionResult(ctx, session.ExternalID, sessionResult)
	if err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, order.Number, func(ctx context.Context) error {
		payment, err := s.findOrCreatePayment(ctx, session)
		if err != nil {
			return err
		}

		// Normalize the entry state before applying the outcome.
		if payment.Checkout() {
			if err := payment.Apply(model.PaymentEventStartProcessing); err != nil {
				return err
			}
		}

		orderCompletion := false
		switch status.Status {
		case provider.SessionResultCompleted:
			session.ApplyIfPossible(model.SessionEventComplete)
			payment.ApplyIfPossible(model.PaymentEventComplete)
			orderCompletion = !order.Completed()
		case provider.SessionResultCanceled:
			payment.ApplyIfPossible(model.PaymentEventVoid)
			session.ApplyIfPossible(model.SessionEventCancel)
		case provider.SessionResultRefused, provider.SessionResultExpired:
			if !payment.Failed() {
				payment.ApplyIfPossible(model.PaymentEventFail)
			}
			session.ApplyIfPossible(model.SessionEventRefuse)
		case provider.SessionResultPaymentPending:
			session.ApplyIfPossible(model.SessionEventProcess)
		default:
			// Reported for operator visibility; an unknown status is not
			// fatal for the completion attempt.
			s.logger.Error("Unexpected payment session status",
				zap.Int64("session_id", session.ID),
				zap.String("order_number", order.Number),
				zap.String("status", status.Status))
		}

		if err := s.payments.Update(ctx, payment); err != nil {
			return err
		}
		session.PaymentID = &payment.ID
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}

		if orderCompletion {
			return s.orders.MarkCompleted(ctx, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// OutdateSessions destroys the order's initial sessions whose terms no
// longer match the order. The commerce system calls this whenever an
// order's total or currency changes.
func (s *PaymentSessionService) OutdateSessions(ctx context.Context, orderID int64) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	removed, err := s.sessions.DeleteStale(ctx, order.ID, order.Total, order.Currency)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("Outdated stale payment sessions",
			zap.String("order_number", order.Number),
			zap.Int64("removed", removed))
	}
	return nil
}

// findOrCreatePayment resolves the session's underlying payment, creating
// it keyed by the session's external id when missing. The payment source is
// resolved later from gateway-provided details, not supplied by the
// shopper, so the source requirement is waived.
func (s *PaymentSessionService) findOrCreatePayment(ctx context.Context, session *model.PaymentSession) (*model.Payment, error) {
	payment, err := s.payments.GetByResponseCode(ctx, session.ExternalID, session.PaymentMethodID)
	if err == nil {
		payment.Amount = session.Amount
		payment.SourceRequired = false
		return payment, nil
	}
	if !errors.Is(err, domainerrors.ErrPaymentNotFound) {
		return nil, err
	}

	externalID := session.ExternalID
	payment = &model.Payment{
		OrderID:         session.OrderID,
		PaymentMethodID: session.PaymentMethodID,
		Amount:          session.Amount,
		Currency:        session.Currency,
		ResponseCode:    &externalID,
		State:           model.PaymentStateCheckout,
		SourceRequired:  false,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// normalizeChannel maps the storefront's channel value onto the casing the
// gateway expects.
func normalizeChannel(channel string) string {
	switch strings.ToLower(channel) {
	case "ios":
		return model.ChannelIOS
	case "android":
		return model.ChannelAndroid
	default:
		return model.ChannelWeb
	}
}

func shopperReference(customerID *string) string {
	if customerID == nil {
		return ""
	}
	return *customerID
}
