package adyen

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/domain/provider"
)

// Result codes returned by POST /payments.
const (
	resultCodeAuthorised = "Authorised"
	resultCodeReceived   = "Received"
	resultCodePending    = "Pending"
)

// AuthorizeOrPurchase places a payment against a stored payment source.
// POST /payments
func (c *Client) AuthorizeOrPurchase(ctx context.Context, req *provider.PaymentRequest) (*provider.Result, error) {
	body := map[string]interface{}{
		"merchantAccount": req.MerchantAccount,
		"reference":       req.Reference,
		"amount": map[string]interface{}{
			"value":    req.AmountMinorUnits,
			"currency": req.Currency,
		},
	}
	if req.PaymentMethod != nil {
		body["paymentMethod"] = req.PaymentMethod
	}
	if req.ShopperReference != "" {
		body["shopperReference"] = req.ShopperReference
		body["shopperInteraction"] = "ContAuth"
		body["recurringProcessingModel"] = "CardOnFile"
	}
	if req.ReturnURL != "" {
		body["returnUrl"] = req.ReturnURL
	}
	if req.ManualCapture {
		body["additionalData"] = map[string]interface{}{
			"manualCapture": "true",
		}
	}

	resp, status, err := c.do(ctx, "payment", http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}

	resultCode := getStringFromMap(resp, "resultCode")
	pspReference := getStringFromMap(resp, "pspReference")
	refusalReason := getStringFromMap(resp, "refusalReason")

	success := status == http.StatusOK &&
		(resultCode == resultCodeAuthorised || resultCode == resultCodeReceived || resultCode == resultCodePending)

	result := &provider.Result{
		Success:   success,
		Reference: pspReference,
		Message:   resultCode,
		Raw:       resp,
	}
	if !success {
		if refusalReason != "" {
			result.Message = refusalReason
		} else if resultCode == "" {
			result.Message = getStringFromMap(resp, "message")
		}
		c.logger.Warn("AdyenClient: payment not authorised",
			zap.String("reference", req.Reference),
			zap.String("result_code", resultCode),
			zap.String("refusal_reason", refusalReason))
		return result, nil
	}

	c.logger.Info("AdyenClient: payment placed",
		zap.String("reference", req.Reference),
		zap.String("psp_reference", pspReference),
		zap.String("result_code", resultCode))
	return result, nil
}

// CapturePayment requests capture of a previous authorization. The gateway
// answers "received"; the definitive outcome arrives later via webhook.
// POST /payments/{paymentPspReference}/captures
func (c *Client) CapturePayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	return c.modify(ctx, "capture", "captures", req)
}

// CancelPayment requests cancellation of a previous authorization. The
// definitive outcome arrives later via webhook.
// POST /payments/{paymentPspReference}/cancels
func (c *Client) CancelPayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	return c.modify(ctx, "cancel", "cancels", req)
}

// RefundPayment refunds a captured payment.
// POST /payments/{paymentPspReference}/refunds
func (c *Client) RefundPayment(ctx context.Context, req *provider.ModificationRequest) (*provider.Result, error) {
	return c.modify(ctx, "refund", "refunds", req)
}

func (c *Client) modify(ctx context.Context, operation, action string, req *provider.ModificationRequest) (*provider.Result, error) {
	body := map[string]interface{}{
		"merchantAccount": req.MerchantAccount,
	}
	if req.AmountMinorUnits > 0 {
		body["amount"] = map[string]interface{}{
			"value":    req.AmountMinorUnits,
			"currency": req.Currency,
		}
	}
	if req.Reference != "" {
		body["reference"] = req.Reference
	}

	path := fmt.Sprintf("/payments/%s/%s", req.PaymentReference, action)
	resp, status, err := c.do(ctx, operation, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	// Modification requests are acknowledged with 201 and status "received".
	if status != http.StatusCreated {
		message := getStringFromMap(resp, "message")
		if message == "" {
			message = fmt.Sprintf("gateway returned status %d", status)
		}
		c.logger.Warn("AdyenClient: modification rejected",
			zap.String("operation", operation),
			zap.String("payment_reference", req.PaymentReference),
			zap.Int("status_code", status),
			zap.String("message", message))
		return &provider.Result{Success: false, Message: message, Raw: resp}, nil
	}

	pspReference := getStringFromMap(resp, "pspReference")
	c.logger.Info("AdyenClient: modification accepted",
		zap.String("operation", operation),
		zap.String("payment_reference", req.PaymentReference),
		zap.String("psp_reference", pspReference))

	return &provider.Result{
		Success:   true,
		Reference: pspReference,
		Message:   getStringFromMap(resp, "status"),
		Raw:       resp,
	}, nil
}
