package adyen

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/provider"
)

// CreateSession opens a hosted checkout session.
// POST /sessions
func (c *Client) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.SessionResult, error) {
	body := map[string]interface{}{
		"merchantAccount": req.MerchantAccount,
		"reference":       req.Reference,
		"returnUrl":       req.ReturnURL,
		"channel":         req.Channel,
		"amount": map[string]interface{}{
			"value":    req.AmountMinorUnits,
			"currency": req.Currency,
		},
		"expiresAt": req.ExpiresAt.Format(time.RFC3339),
	}
	if req.ShopperReference != "" {
		body["shopperReference"] = req.ShopperReference
	}

	resp, status, err := c.do(ctx, "create_session", http.MethodPost, "/sessions", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		message := getStringFromMap(resp, "message")
		c.logger.Error("AdyenClient: session creation rejected",
			zap.String("reference", req.Reference),
			zap.Int("status_code", status),
			zap.String("message", message))
		return nil, domainerrors.NewGatewayError("create_session",
			fmt.Sprintf("session creation rejected: %s", message), nil)
	}

	result := &provider.SessionResult{
		ID:          getStringFromMap(resp, "id"),
		SessionData: getStringFromMap(resp, "sessionData"),
		ExpiresAt:   req.ExpiresAt,
		Raw:         resp,
	}
	if expires := getStringFromMap(resp, "expiresAt"); expires != "" {
		if parsed, err := time.Parse(time.RFC3339, expires); err == nil {
			result.ExpiresAt = parsed
		}
	}

	c.logger.Info("AdyenClient: session created",
		zap.String("reference", req.Reference),
		zap.String("session_id", result.ID))
	return result, nil
}

// GetSessionResult queries the authoritative outcome of a session. The
// sessionResult token returned to the shopper on redirect is required by the
// gateway to authorize the lookup.
// GET /sessions/{id}?sessionResult={sessionResult}
func (c *Client) GetSessionResult(ctx context.Context, sessionID, sessionResult string) (*provider.SessionStatus, error) {
	path := fmt.Sprintf("/sessions/%s?sessionResult=%s",
		url.PathEscape(sessionID), url.QueryEscape(sessionResult))
	resp, status, err := c.do(ctx, "session_result", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		message := getStringFromMap(resp, "message")
		c.logger.Error("AdyenClient: session result lookup failed",
			zap.String("session_id", sessionID),
			zap.Int("status_code", status),
			zap.String("message", message))
		return nil, domainerrors.NewGatewayError("session_result",
			fmt.Sprintf("session result lookup failed: %s", message), nil)
	}

	return &provider.SessionStatus{
		ID:     getStringFromMap(resp, "id"),
		Status: getStringFromMap(resp, "status"),
		Raw:    resp,
	}, nil
}
