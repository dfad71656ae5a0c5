package provider

import (
	"context"
	"time"
)

// GatewayClient is the outbound surface of the payment gateway's checkout
// API. Implementations tag every call with a fresh idempotency token so a
// transport-level retry of the same outbound call is absorbed by the
// gateway's own deduplication; no retry logic lives here.
//
// Transport and credential failures are returned as errors. A reply the
// gateway delivered but rejected (refused capture, unknown reference) is a
// Result with Success=false, not an error.
type GatewayClient interface {
	// AuthorizeOrPurchase places a payment against a stored source.
	AuthorizeOrPurchase(ctx context.Context, req *PaymentRequest) (*Result, error)
	// CapturePayment requests capture of a previous authorization. The
	// definitive outcome arrives later via webhook.
	CapturePayment(ctx context.Context, req *ModificationRequest) (*Result, error)
	// CancelPayment requests cancellation of a previous authorization. The
	// definitive outcome arrives later via webhook.
	CancelPayment(ctx context.Context, req *ModificationRequest) (*Result, error)
	// RefundPayment refunds a captured payment.
	RefundPayment(ctx context.Context, req *ModificationRequest) (*Result, error)
	// CreateSession opens a gateway checkout session for a redirect flow.
	CreateSession(ctx context.Context, req *SessionRequest) (*SessionResult, error)
	// GetSessionResult queries the authoritative outcome of a session.
	GetSessionResult(ctx context.Context, sessionID, sessionResult string) (*SessionStatus, error)
}

// PaymentRequest is a provider-agnostic authorize/purchase request.
type PaymentRequest struct {
	MerchantAccount  string                 `json:"merchant_account"`
	AmountMinorUnits int64                  `json:"amount_minor_units"`
	Currency         string                 `json:"currency"`
	Reference        string                 `json:"reference"`
	ShopperReference string                 `json:"shopper_reference,omitempty"`
	ReturnURL        string                 `json:"return_url,omitempty"`
	ManualCapture    bool                   `json:"manual_capture"`
	PaymentMethod    map[string]interface{} `json:"payment_method,omitempty"`
}

// ModificationRequest targets a previous operation by its gateway
// reference (capture, cancel, refund).
type ModificationRequest struct {
	MerchantAccount  string `json:"merchant_account"`
	PaymentReference string `json:"payment_reference"`
	AmountMinorUnits int64  `json:"amount_minor_units,omitempty"`
	Currency         string `json:"currency,omitempty"`
	Reference        string `json:"reference,omitempty"`
}

// SessionRequest opens a checkout session bound to the order's charge
// terms at creation time.
type SessionRequest struct {
	MerchantAccount  string    `json:"merchant_account"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	Currency         string    `json:"currency"`
	Reference        string    `json:"reference"`
	Channel          string    `json:"channel"`
	ReturnURL        string    `json:"return_url"`
	ShopperReference string    `json:"shopper_reference,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Result is the normalized outcome of an outbound gateway call.
type Result struct {
	Success   bool                   `json:"success"`
	Reference string                 `json:"reference,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

// SessionResult is the normalized outcome of a session creation.
type SessionResult struct {
	ID          string                 `json:"id"`
	SessionData string                 `json:"session_data"`
	ExpiresAt   time.Time              `json:"expires_at"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// Session statuses reported by the gateway's session-result endpoint.
const (
	SessionResultCompleted      = "completed"
	SessionResultCanceled       = "canceled"
	SessionResultRefused        = "refused"
	SessionResultExpired        = "expired"
	SessionResultPaymentPending = "paymentPending"
)

// SessionStatus is the authoritative session outcome reported by the
// gateway.
type SessionStatus struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Raw    map[string]interface{} `json:"raw,omitempty"`
}
