package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/model"
	"github.com/helioscommerce/payment-service/internal/domain/repository"
	"github.com/helioscommerce/payment-service/internal/usecase"
)

// PaymentHandler exposes payment readback and the capture/void/refund
// surface the commerce backend calls after fulfilment decisions.
type PaymentHandler struct {
	payments repository.PaymentRepository
	service  *usecase.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments repository.PaymentRepository, service *usecase.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		service:  service,
		logger:   logger,
	}
}

type amountRequest struct {
	Amount string `json:"amount,omitempty"`
}

// GetPayment returns the payment's state and metafields.
// GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// Capture asks the gateway to capture the payment's authorization. A
// successful response means the request was accepted; the definitive
// outcome arrives later via webhook.
// POST /api/v1/payments/:id/capture
func (h *PaymentHandler) Capture(c echo.Context) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return h.renderError(c, err)
	}
	responseCode, err := paymentReference(payment)
	if err != nil {
		return h.renderError(c, err)
	}

	amount, done, err := h.bindAmount(c)
	if done || err != nil {
		return err
	}

	result, err := h.service.RequestCapture(c.Request().Context(), responseCode, payment.PaymentMethodID, amount)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Void asks the gateway to cancel the payment's authorization.
// POST /api/v1/payments/:id/void
func (h *PaymentHandler) Void(c echo.Context) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return h.renderError(c, err)
	}
	responseCode, err := paymentReference(payment)
	if err != nil {
		return h.renderError(c, err)
	}

	result, err := h.service.RequestVoid(c.Request().Context(), responseCode, payment.PaymentMethodID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Refund refunds part or all of a captured payment. An empty amount
// refunds the full payment amount.
// POST /api/v1/payments/:id/refund
func (h *PaymentHandler) Refund(c echo.Context) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return h.renderError(c, err)
	}
	responseCode, err := paymentReference(payment)
	if err != nil {
		return h.renderError(c, err)
	}

	amount, done, err := h.bindAmount(c)
	if done || err != nil {
		return err
	}
	if amount.IsZero() {
		amount = payment.Amount
	}

	result, err := h.service.Refund(c.Request().Context(), responseCode, payment.PaymentMethodID, amount)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) loadPayment(c echo.Context) (*model.Payment, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, errInvalidPaymentID
	}
	return h.payments.GetByID(c.Request().Context(), id)
}

// bindAmount parses the optional amount from the request body. When it
// writes an error response itself, done is true and the handler should
// return err as-is.
func (h *PaymentHandler) bindAmount(c echo.Context) (decimal.Decimal, bool, error) {
	var req amountRequest
	if err := c.Bind(&req); err != nil {
		return decimal.Zero, true, c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_REQUEST",
		})
	}
	if req.Amount == "" {
		return decimal.Zero, false, nil
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, true, c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid amount",
			"code":  "INVALID_AMOUNT",
		})
	}
	return amount, false, nil
}

var (
	errInvalidPaymentID    = errors.New("invalid payment id")
	errPaymentNotSubmitted = errors.New("payment has no gateway reference")
)

func paymentReference(payment *model.Payment) (string, error) {
	if payment.ResponseCode == nil || *payment.ResponseCode == "" {
		return "", errPaymentNotSubmitted
	}
	return *payment.ResponseCode, nil
}

func (h *PaymentHandler) renderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errInvalidPaymentID):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid payment id",
			"code":  "INVALID_PAYMENT_ID",
		})
	case errors.Is(err, errPaymentNotSubmitted):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "Payment has not been submitted to the gateway",
			"code":  "PAYMENT_NOT_SUBMITTED",
		})
	case errors.Is(err, domainerrors.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Payment not found",
			"code":  "PAYMENT_NOT_FOUND",
		})
	case errors.Is(err, domainerrors.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Order not found",
			"code":  "ORDER_NOT_FOUND",
		})
	}

	var gatewayErr *domainerrors.GatewayError
	if errors.As(err, &gatewayErr) {
		h.logger.Error("Gateway call failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "Payment gateway unavailable",
			"code":  "GATEWAY_ERROR",
		})
	}

	h.logger.Error("Payment request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}
