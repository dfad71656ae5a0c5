package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/middleware/auth"
	"github.com/helioscommerce/payment-service/internal/usecase"
)

// PaymentSessionHandler exposes the checkout session lifecycle to the
// storefront.
type PaymentSessionHandler struct {
	sessions *usecase.PaymentSessionService
	logger   *zap.Logger
}

// NewPaymentSessionHandler creates a new PaymentSessionHandler instance
func NewPaymentSessionHandler(sessions *usecase.PaymentSessionService, logger *zap.Logger) *PaymentSessionHandler {
	return &PaymentSessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type createSessionRequest struct {
	OrderID         int64   `json:"order_id" validate:"required"`
	PaymentMethodID int64   `json:"payment_method_id" validate:"required"`
	Amount          *string `json:"amount,omitempty"`
	Channel         string  `json:"channel,omitempty" validate:"omitempty,oneof=web ios android"`
	ReturnURL       string  `json:"return_url,omitempty" validate:"omitempty,url"`
}

type completeSessionRequest struct {
	OrderID       int64  `json:"order_id" validate:"required"`
	SessionResult string `json:"session_result" validate:"required"`
}

// FindOrCreate returns the order's reusable session or opens a new one.
// POST /api/v2/storefront/payment_sessions
func (h *PaymentSessionHandler) FindOrCreate(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "Validation failed",
			"code":    "VALIDATION_FAILED",
			"details": err.Error(),
		})
	}

	params := usecase.FindOrCreateSessionParams{
		OrderID:         req.OrderID,
		PaymentMethodID: req.PaymentMethodID,
		Channel:         req.Channel,
		ReturnURL:       req.ReturnURL,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid amount",
				"code":  "INVALID_AMOUNT",
			})
		}
		params.Amount = &amount
	}
	if user, err := auth.GetUserFromContext(c); err == nil && user.CustomerID != "" {
		params.CustomerID = &user.CustomerID
	}

	session, err := h.sessions.FindOrCreate(c.Request().Context(), params)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusCreated, session)
}

// Complete resolves the session against the gateway's authoritative result.
// POST /api/v2/storefront/payment_sessions/:id/complete
func (h *PaymentSessionHandler) Complete(c echo.Context) error {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid session id",
			"code":  "INVALID_SESSION_ID",
		})
	}

	var req completeSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "Validation failed",
			"code":    "VALIDATION_FAILED",
			"details": err.Error(),
		})
	}

	// Ownership check before touching the gateway.
	if _, err := h.sessions.Get(c.Request().Context(), sessionID, req.OrderID); err != nil {
		return h.renderError(c, err)
	}

	session, err := h.sessions.Complete(c.Request().Context(), sessionID, req.SessionResult)
	if err != nil {
		var gatewayErr *domainerrors.GatewayError
		if errors.As(err, &gatewayErr) {
			// The session stays open; the storefront may retry completion.
			h.logger.Error("Session completion gateway call failed",
				zap.Int64("session_id", sessionID),
				zap.Error(err))
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": "Could not resolve session with the payment gateway",
				"code":  "SESSION_COMPLETION_FAILED",
			})
		}
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// Get returns one of the order's sessions.
// GET /api/v2/storefront/payment_sessions/:id?order_id=
func (h *PaymentSessionHandler) Get(c echo.Context) error {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid session id",
			"code":  "INVALID_SESSION_ID",
		})
	}
	orderID, err := strconv.ParseInt(c.QueryParam("order_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "order_id query parameter is required",
			"code":  "INVALID_ORDER_ID",
		})
	}

	session, err := h.sessions.Get(c.Request().Context(), sessionID, orderID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, session)
}

// OutdateSessions drops the order's stale sessions so the next checkout
// attempt starts from a fresh gateway session. Called by the commerce
// backend when the order's total or currency changes.
// DELETE /api/v1/orders/:order_id/payment_sessions
func (h *PaymentSessionHandler) OutdateSessions(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid order id",
			"code":  "INVALID_ORDER_ID",
		})
	}

	if err := h.sessions.OutdateSessions(c.Request().Context(), orderID); err != nil {
		return h.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PaymentSessionHandler) renderError(c echo.Context, err error) error {
	var notAllowed *usecase.SessionNotAllowedError
	if errors.As(err, &notAllowed) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "Order state does not allow a payment session",
			"code":  "SESSION_NOT_ALLOWED",
			"state": notAllowed.OrderState,
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

	switch {
	case errors.Is(err, domainerrors.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Order not found",
			"code":  "ORDER_NOT_FOUND",
		})
	case errors.Is(err, domainerrors.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Payment session not found",
			"code":  "SESSION_NOT_FOUND",
		})
	case errors.Is(err, domainerrors.ErrPaymentMethodNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Payment method not found",
			"code":  "PAYMENT_METHOD_NOT_FOUND",
		})
	}

	h.logger.Error("Payment session request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}
