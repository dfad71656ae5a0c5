package adyen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainerrors "github.com/helioscommerce/payment-service/internal/domain/errors"
	"github.com/helioscommerce/payment-service/internal/domain/provider"
)

const (
	testCheckoutBaseURL = "https://checkout-test.adyen.com"
	liveCheckoutBaseURL = "https://checkout-live.adyen.com"
	checkoutAPIVersion  = "v71"

	defaultTimeout = 30 * time.Second
)

// Client talks to the Adyen Checkout API. It implements
// provider.GatewayClient.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// Config carries the gateway credentials and environment selection.
type Config struct {
	APIKey   string
	TestMode bool
	// BaseURL overrides the environment default. Used in tests.
	BaseURL string
}

// NewClient creates an Adyen Checkout API client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.TestMode {
			baseURL = testCheckoutBaseURL
		} else {
			baseURL = liveCheckoutBaseURL
		}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

var _ provider.GatewayClient = (*Client)(nil)

// do sends one request to the checkout API and returns the decoded response
// body. Every call carries a fresh Idempotency-Key so a transport retry of
// the same logical call is absorbed by the gateway's deduplication.
func (c *Client) do(ctx context.Context, operation, method, path string, body interface{}) (map[string]interface{}, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, domainerrors.NewGatewayError(operation, "failed to prepare request", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	url := fmt.Sprintf("%s/%s%s", c.baseURL, checkoutAPIVersion, path)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, domainerrors.NewGatewayError(operation, "failed to create request", err)
	}

	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("AdyenClient: request failed",
			zap.String("operation", operation),
			zap.String("url", url),
			zap.Error(err))
		return nil, 0, domainerrors.NewGatewayError(operation, "gateway API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, domainerrors.NewGatewayError(operation, "failed to read response", err)
	}

	var decoded map[string]interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return nil, resp.StatusCode, domainerrors.NewGatewayError(operation, "failed to parse response", err)
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Error("AdyenClient: authentication rejected",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode))
		return decoded, resp.StatusCode, domainerrors.NewGatewayError(operation,
			fmt.Sprintf("gateway rejected credentials (status %d)", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("AdyenClient: gateway error response",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return decoded, resp.StatusCode, domainerrors.NewGatewayError(operation,
			fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil)
	}

	return decoded, resp.StatusCode, nil
}

func getStringFromMap(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
