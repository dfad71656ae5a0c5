package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Metafield keys used to persist gateway references across the
// request/webhook round trip. Presence of the key means the matching
// operation has been confirmed by the gateway.
const (
	MetafieldCapturePSPReference      = "adyen.capture_psp_reference"
	MetafieldCancellationPSPReference = "adyen.cancellation_psp_reference"
)

// PaymentState is the lifecycle state of a single payment attempt.
type PaymentState string

const (
	PaymentStateCheckout       PaymentState = "checkout"
	PaymentStatePending        PaymentState = "pending"
	PaymentStateProcessing     PaymentState = "processing"
	PaymentStateCapturePending PaymentState = "capture_pending"
	PaymentStateVoidPending    PaymentState = "void_pending"
	PaymentStateCompleted      PaymentState = "completed"
	PaymentStateVoid           PaymentState = "void"
	PaymentStateFailed         PaymentState = "failed"
)

// PaymentEvent is a transition trigger on the payment state machine.
type PaymentEvent string

const (
	PaymentEventStartProcessing PaymentEvent = "start_processing"
	PaymentEventPend            PaymentEvent = "pend"
	PaymentEventPendCapture     PaymentEvent = "pend_capture"
	PaymentEventPendVoid        PaymentEvent = "pend_void"
	PaymentEventComplete        PaymentEvent = "complete"
	PaymentEventVoid            PaymentEvent = "void"
	PaymentEventFail            PaymentEvent = "fail"
)

// paymentTransitions enumerates every allowed (event, from) pair.
// capture_pending and void_pending are gateway-pending states: the local
// intent was sent and the confirmation arrives via webhook.
var paymentTransitions = map[PaymentEvent]map[PaymentState]PaymentState{
	PaymentEventStartProcessing: {
		PaymentStateCheckout:       PaymentStateProcessing,
		PaymentStatePending:        PaymentStateProcessing,
		PaymentStateCompleted:      PaymentStateProcessing,
		PaymentStateProcessing:     PaymentStateProcessing,
		PaymentStateCapturePending: PaymentStateProcessing,
		PaymentStateVoidPending:    PaymentStateProcessing,
	},
	PaymentEventPend: {
		PaymentStateProcessing: PaymentStatePending,
	},
	PaymentEventPendCapture: {
		PaymentStateCheckout:   PaymentStateCapturePending,
		PaymentStatePending:    PaymentStateCapturePending,
		PaymentStateProcessing: PaymentStateCapturePending,
	},
	PaymentEventPendVoid: {
		PaymentStateCheckout:   PaymentStateVoidPending,
		PaymentStatePending:    PaymentStateVoidPending,
		PaymentStateProcessing: PaymentStateVoidPending,
	},
	PaymentEventComplete: {
		PaymentStatePending:        PaymentStateCompleted,
		PaymentStateProcessing:     PaymentStateCompleted,
		PaymentStateCapturePending: PaymentStateCompleted,
	},
	PaymentEventVoid: {
		PaymentStatePending:     PaymentStateVoid,
		PaymentStateProcessing:  PaymentStateVoid,
		PaymentStateVoidPending: PaymentStateVoid,
	},
	PaymentEventFail: {
		PaymentStateCheckout:       PaymentStateFailed,
		PaymentStatePending:        PaymentStateFailed,
		PaymentStateProcessing:     PaymentStateFailed,
		PaymentStateCapturePending: PaymentStateFailed,
		PaymentStateVoidPending:    PaymentStateFailed,
	},
}

// PaymentTransition returns the state reached by applying event to state,
// or an error when the transition is not allowed.
func PaymentTransition(state PaymentState, event PaymentEvent) (PaymentState, error) {
	targets, ok := paymentTransitions[event]
	if !ok {
		return state, fmt.Errorf("unknown payment event %q", event)
	}
	next, ok := targets[state]
	if !ok {
		return state, fmt.Errorf("cannot apply %q to payment in state %q", event, state)
	}
	return next, nil
}

// CanTransitionPayment reports whether event is applicable in state.
func CanTransitionPayment(state PaymentState, event PaymentEvent) bool {
	_, err := PaymentTransition(state, event)
	return err == nil
}

// Payment represents a single attempt to move funds for an order through
// one gateway. response_code holds the gateway reference the payment is
// looked up by when a webhook confirmation arrives.
type Payment struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64           `gorm:"not null;index" json:"order_id"`
	PaymentMethodID  int64           `gorm:"not null;index" json:"payment_method_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;not null" json:"currency"`
	ResponseCode     *string         `gorm:"size:255;index:idx_payments_response_code" json:"response_code,omitempty"`
	State            PaymentState    `gorm:"size:50;not null;default:'checkout'" json:"state"`
	Metafields       JSONB           `gorm:"type:jsonb" json:"metafields,omitempty"`
	ProcessingErrors StringList      `gorm:"type:jsonb" json:"processing_errors,omitempty"`
	SourceRequired   bool            `gorm:"not null;default:true" json:"source_required"`
	CreatedAt        time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Order         *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// Apply transitions the payment in place.
func (p *Payment) Apply(event PaymentEvent) error {
	next, err := PaymentTransition(p.State, event)
	if err != nil {
		return err
	}
	p.State = next
	return nil
}

// ApplyIfPossible transitions the payment when the event is applicable and
// reports whether a transition happened.
func (p *Payment) ApplyIfPossible(event PaymentEvent) bool {
	next, err := PaymentTransition(p.State, event)
	if err != nil {
		return false
	}
	p.State = next
	return true
}

func (p *Payment) Completed() bool      { return p.State == PaymentStateCompleted }
func (p *Payment) Void() bool           { return p.State == PaymentStateVoid }
func (p *Payment) Failed() bool         { return p.State == PaymentStateFailed }
func (p *Payment) Checkout() bool       { return p.State == PaymentStateCheckout }
func (p *Payment) CapturePending() bool { return p.State == PaymentStateCapturePending }
func (p *Payment) VoidPending() bool    { return p.State == PaymentStateVoidPending }

// HasMetafield reports whether key holds a non-empty value.
func (p *Payment) HasMetafield(key string) bool {
	if p.Metafields == nil {
		return false
	}
	v, ok := p.Metafields[key]
	if !ok {
		return false
	}
	s, isString := v.(string)
	return !isString || s != ""
}

// SetMetafield sets key on the payment's metafield store.
func (p *Payment) SetMetafield(key string, value interface{}) {
	if p.Metafields == nil {
		p.Metafields = make(JSONB)
	}
	p.Metafields[key] = value
}

// Metafield returns the string value stored under key.
func (p *Payment) Metafield(key string) string {
	if p.Metafields == nil {
		return ""
	}
	s, _ := p.Metafields[key].(string)
	return s
}

// AddProcessingError appends a human-readable gateway processing error.
func (p *Payment) AddProcessingError(message string) {
	p.ProcessingErrors = append(p.ProcessingErrors, message)
}

// AmountInMinorUnits returns the amount in the gateway's minor units
// (cents for two-decimal currencies).
func (p *Payment) AmountInMinorUnits() int64 {
	return p.Amount.Shift(2).Round(0).IntPart()
}
