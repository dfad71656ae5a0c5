package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Channels accepted by the gateway when creating a checkout session.
const (
	ChannelWeb     = "Web"
	ChannelIOS     = "iOS"
	ChannelAndroid = "Android"
)

// PaymentSessionState is the lifecycle state of a gateway checkout session.
type PaymentSessionState string

const (
	SessionStateInitial   PaymentSessionState = "initial"
	SessionStatePending   PaymentSessionState = "pending"
	SessionStateCompleted PaymentSessionState = "completed"
	SessionStateCanceled  PaymentSessionState = "canceled"
	SessionStateRefused   PaymentSessionState = "refused"
)

// PaymentSessionEvent is a transition trigger on the session state machine.
type PaymentSessionEvent string

const (
	SessionEventProcess  PaymentSessionEvent = "process"
	SessionEventComplete PaymentSessionEvent = "complete"
	SessionEventCancel   PaymentSessionEvent = "cancel"
	SessionEventRefuse   PaymentSessionEvent = "refuse"
)

var sessionTransitions = map[PaymentSessionEvent]map[PaymentSessionState]PaymentSessionState{
	SessionEventProcess: {
		SessionStateInitial: SessionStatePending,
	},
	SessionEventComplete: {
		SessionStateInitial: SessionStateCompleted,
		SessionStatePending: SessionStateCompleted,
	},
	SessionEventCancel: {
		SessionStateInitial: SessionStateCanceled,
		SessionStatePending: SessionStateCanceled,
	},
	SessionEventRefuse: {
		SessionStateInitial: SessionStateRefused,
		SessionStatePending: SessionStateRefused,
	},
}

// SessionTransition returns the state reached by applying event to state,
// or an error when the transition is not allowed.
func SessionTransition(state PaymentSessionState, event PaymentSessionEvent) (PaymentSessionState, error) {
	targets, ok := sessionTransitions[event]
	if !ok {
		return state, fmt.Errorf("unknown payment session event %q", event)
	}
	next, ok := targets[state]
	if !ok {
		return state, fmt.Errorf("cannot apply %q to payment session in state %q", event, state)
	}
	return next, nil
}

// PaymentSession is a gateway-side checkout reservation created for a
// redirect/session payment flow. Terms (order, amount, currency, channel)
// are fixed at creation time on the gateway side, so a session is reusable
// only while those still match the order.
type PaymentSession struct {
	ID              int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64               `gorm:"not null;index" json:"order_id"`
	PaymentMethodID int64               `gorm:"not null;index" json:"payment_method_id"`
	CustomerID      *string             `gorm:"size:100;index" json:"customer_id,omitempty"`
	Amount          decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string              `gorm:"size:3;not null" json:"currency"`
	Status          PaymentSessionState `gorm:"size:50;not null;default:'initial'" json:"status"`
	ExternalID      string              `gorm:"size:255;uniqueIndex" json:"external_id"`
	ExpiresAt       time.Time           `gorm:"not null" json:"expires_at"`
	ExternalData    JSONB               `gorm:"type:jsonb" json:"external_data,omitempty"`
	PaymentID       *int64              `gorm:"index" json:"payment_id,omitempty"`
	CreatedAt       time.Time           `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"default:now()" json:"updated_at"`

	// Relations
	Order         *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
	Payment       *Payment       `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// TableName specifies the table name for GORM
func (PaymentSession) TableName() string {
	return "payment_sessions"
}

// Apply transitions the session in place.
func (s *PaymentSession) Apply(event PaymentSessionEvent) error {
	next, err := SessionTransition(s.Status, event)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// ApplyIfPossible transitions the session when the event is applicable and
// reports whether a transition happened.
func (s *PaymentSession) ApplyIfPossible(event PaymentSessionEvent) bool {
	next, err := SessionTransition(s.Status, event)
	if err != nil {
		return false
	}
	s.Status = next
	return true
}

func (s *PaymentSession) Completed() bool { return s.Status == SessionStateCompleted }
func (s *PaymentSession) Initial() bool   { return s.Status == SessionStateInitial }

// Expired reports whether the gateway-side session has expired at now.
func (s *PaymentSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Channel returns the channel the session was created for.
func (s *PaymentSession) Channel() string {
	if s.ExternalData == nil {
		return ChannelWeb
	}
	if ch, ok := s.ExternalData["channel"].(string); ok && ch != "" {
		return ch
	}
	return ChannelWeb
}

// ReturnURL returns the redirect return URL stored at creation time.
func (s *PaymentSession) ReturnURL() string {
	if s.ExternalData == nil {
		return ""
	}
	u, _ := s.ExternalData["return_url"].(string)
	return u
}

// SessionData returns the opaque gateway session payload handed to the
// client-side drop-in.
func (s *PaymentSession) SessionData() string {
	if s.ExternalData == nil {
		return ""
	}
	d, _ := s.ExternalData["session_data"].(string)
	return d
}
