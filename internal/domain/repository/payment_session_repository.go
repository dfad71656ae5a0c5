package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// SessionMatch carries the parameters a reusable session must equal. The
// gateway binds sessions to these at creation time, so any mismatch forces
// a new session.
type SessionMatch struct {
	OrderID         int64
	PaymentMethodID int64
	CustomerID      *string
	Amount          decimal.Decimal
	Currency        string
	Channel         string
	Now             time.Time
}

// PaymentSessionRepository is the persistence port for gateway checkout
// sessions.
type PaymentSessionRepository interface {
	Create(ctx context.Context, session *model.PaymentSession) error
	Update(ctx context.Context, session *model.PaymentSession) error
	GetByID(ctx context.Context, id int64) (*model.PaymentSession, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.PaymentSession, error)
	// FindReusable returns an initial, non-expired session matching every
	// field of match, or errors.ErrSessionNotFound.
	FindReusable(ctx context.Context, match SessionMatch) (*model.PaymentSession, error)
	// DeleteStale removes the order's initial sessions whose amount or
	// currency no longer match the order's current charge terms. Returns
	// the number of sessions removed.
	DeleteStale(ctx context.Context, orderID int64, amount decimal.Decimal, currency string) (int64, error)
}
