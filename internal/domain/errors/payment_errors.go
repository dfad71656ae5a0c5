package errors

import (
	"errors"
	"fmt"
)

// Lookup failures during webhook processing are data-consistency problems
// (wrong environment, replayed test traffic, out-of-band records), not
// transient conditions. They fail the processing attempt and are reported
// instead of being retried.
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrSessionNotFound       = errors.New("payment session not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

// GatewayError is an outbound transport or credential failure on a call to
// the gateway API. It is surfaced to the caller, never swallowed.
type GatewayError struct {
	Operation string
	Message   string
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Operation, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps an outbound gateway failure.
func NewGatewayError(operation, message string, err error) *GatewayError {
	return &GatewayError{Operation: operation, Message: message, Err: err}
}
