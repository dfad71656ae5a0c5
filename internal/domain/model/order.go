package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order states relevant to the payments flow. The order lifecycle itself is
// owned by the surrounding commerce system; payments only needs to know
// whether an order can take a payment session and whether it is completed.
const (
	OrderStateCart     = "cart"
	OrderStatePayment  = "payment"
	OrderStateConfirm  = "confirm"
	OrderStateComplete = "complete"
)

// Order is the minimal order surface the payments module depends on.
type Order struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Number      string          `gorm:"size:50;not null;uniqueIndex" json:"number"`
	State       string          `gorm:"size:50;not null;default:'cart'" json:"state"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

func (o *Order) Completed() bool {
	return o.CompletedAt != nil
}

// CanCreatePaymentSession reports whether the order is in a state that
// allows opening a gateway checkout session.
func (o *Order) CanCreatePaymentSession() bool {
	return o.State == OrderStatePayment || o.State == OrderStateConfirm
}
