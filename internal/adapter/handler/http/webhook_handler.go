package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/helioscommerce/payment-service/internal/domain/repository"
	"github.com/helioscommerce/payment-service/internal/webhook"
)

// WebhookHandler receives the gateway's notification envelope, authenticates
// each item and hands valid ones to the router. The accepting response body
// is what the gateway looks for to stop redelivering.
type WebhookHandler struct {
	logger    *zap.Logger
	methods   repository.PaymentMethodRepository
	validator *webhook.HMACValidator
	router    *webhook.Router
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(
	logger *zap.Logger,
	methods repository.PaymentMethodRepository,
	validator *webhook.HMACValidator,
	router *webhook.Router,
) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		methods:   methods,
		validator: validator,
		router:    router,
	}
}

// Handle processes one webhook delivery.
func (h *WebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var notification webhook.Notification
	if err := c.Bind(&notification); err != nil {
		h.logger.Warn("Failed to parse webhook envelope", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid notification payload",
			"code":  "INVALID_PAYLOAD",
		})
	}

	items := notification.Items()

	// Authenticate every item before routing any: one forged item rejects
	// the whole delivery so the gateway redelivers it intact.
	for _, item := range items {
		method, err := h.methods.GetByMerchantAccount(ctx, item.MerchantAccountCode)
		if err != nil {
			h.logger.Warn("Webhook item for unknown merchant account",
				zap.String("merchant_account", item.MerchantAccountCode),
				zap.String("event_code", item.EventCode),
				zap.String("psp_reference", item.PSPReference))
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "Invalid notification signature",
				"code":  "INVALID_SIGNATURE",
			})
		}
		if !h.validator.Validate(item, method.HMACKeys()) {
			h.logger.Warn("Webhook item failed HMAC validation",
				zap.String("merchant_account", item.MerchantAccountCode),
				zap.String("event_code", item.EventCode),
				zap.String("psp_reference", item.PSPReference))
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "Invalid notification signature",
				"code":  "INVALID_SIGNATURE",
			})
		}
	}

	for _, item := range items {
		if err := h.router.Route(ctx, item); err != nil {
			// The event never reached the queue; answering "[accepted]"
			// would stop redelivery and lose it. Failing the response makes
			// the gateway redeliver the envelope, and the processors are
			// idempotent for the items that did get queued.
			h.logger.Error("Failed to route webhook item",
				zap.String("event_code", item.EventCode),
				zap.String("psp_reference", item.PSPReference),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Notification could not be accepted",
				"code":  "ACCEPTANCE_FAILED",
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notificationResponse": "[accepted]",
	})
}
