package webhook

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

// Event codes this service knows how to process.
const (
	EventCodeAuthorisation = "AUTHORISATION"
	EventCodeCapture       = "CAPTURE"
	EventCodeCancellation  = "CANCELLATION"
)

// Amount is the monetary value of a notification, in minor units.
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// NotificationRequestItem is one item of the gateway's webhook envelope,
// exactly as delivered on the wire.
type NotificationRequestItem struct {
	AdditionalData      map[string]string `json:"additionalData,omitempty"`
	Amount              Amount            `json:"amount"`
	EventCode           string            `json:"eventCode"`
	EventDate           string            `json:"eventDate,omitempty"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	MerchantReference   string            `json:"merchantReference"`
	OriginalReference   string            `json:"originalReference,omitempty"`
	PSPReference        string            `json:"pspReference"`
	Reason              string            `json:"reason,omitempty"`
	Success             string            `json:"success"`
}

// IsSuccess interprets the wire-level success flag.
func (i NotificationRequestItem) IsSuccess() bool {
	return i.Success == "true"
}

// HMACSignature returns the signature the gateway attached to the item.
func (i NotificationRequestItem) HMACSignature() string {
	return i.AdditionalData["hmacSignature"]
}

type notificationItem struct {
	NotificationRequestItem NotificationRequestItem `json:"NotificationRequestItem"`
}

// Notification is the webhook envelope: one delivery may carry several
// items, each validated and routed independently.
type Notification struct {
	Live              string             `json:"live"`
	NotificationItems []notificationItem `json:"notificationItems"`
}

// Items returns the envelope's notification items in delivery order.
func (n Notification) Items() []NotificationRequestItem {
	items := make([]NotificationRequestItem, 0, len(n.NotificationItems))
	for _, it := range n.NotificationItems {
		items = append(items, it.NotificationRequestItem)
	}
	return items
}

// Event is the validated, normalized form of one notification item. It is
// not persisted as such: it is serialized onto the queue and reconstructed
// per processing attempt.
type Event struct {
	ID                  string      `json:"id"`
	Code                string      `json:"code"`
	Success             bool        `json:"success"`
	PSPReference        string      `json:"psp_reference"`
	OriginalReference   string      `json:"original_reference,omitempty"`
	MerchantReference   string      `json:"merchant_reference"`
	MerchantAccountCode string      `json:"merchant_account_code"`
	AmountValue         int64       `json:"amount_value"`
	AmountCurrency      string      `json:"amount_currency"`
	Reason              string      `json:"reason,omitempty"`
	Payload             model.JSONB `json:"payload"`
	// Attempt counts completed processing attempts; the queue carries it so
	// redelivery backoff survives process restarts.
	Attempt int `json:"attempt,omitempty"`
}

// NewEvent normalizes a notification item into an Event with a fresh id.
func NewEvent(item NotificationRequestItem) *Event {
	payload := make(model.JSONB)
	if raw, err := json.Marshal(item); err == nil {
		_ = json.Unmarshal(raw, &payload)
	}

	return &Event{
		ID:                  uuid.NewString(),
		Code:                item.EventCode,
		Success:             item.IsSuccess(),
		PSPReference:        item.PSPReference,
		OriginalReference:   item.OriginalReference,
		MerchantReference:   item.MerchantReference,
		MerchantAccountCode: item.MerchantAccountCode,
		AmountValue:         item.Amount.Value,
		AmountCurrency:      item.Amount.Currency,
		Reason:              item.Reason,
		Payload:             payload,
	}
}

// Reference returns the gateway reference of the operation the event
// confirms: the original reference when present (capture and cancellation
// confirmations point back at the authorization), the psp reference
// otherwise.
func (e *Event) Reference() string {
	if e.OriginalReference != "" {
		return e.OriginalReference
	}
	return e.PSPReference
}
