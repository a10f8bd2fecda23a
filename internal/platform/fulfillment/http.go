package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/httpx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

const serviceName = "fulfillment service"

type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func HTTPConfigFromEnv() HTTPConfig {
	return HTTPConfig{
		BaseURL:    envutil.String("FULFILLMENT_BASE_URL", ""),
		APIKey:     envutil.String("FULFILLMENT_API_KEY", ""),
		Timeout:    envutil.Seconds("FULFILLMENT_TIMEOUT_SECONDS", 15*time.Second),
		MaxRetries: envutil.Int("FULFILLMENT_MAX_RETRIES", 2),
	}
}

type httpClient struct {
	log  *logger.Logger
	http *resty.Client
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

// NewHTTP posts orders to the fulfillment API. Retries are safe because every
// request carries the session id as idempotency key.
func NewHTTP(log *logger.Logger, cfg HTTPConfig) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing FULFILLMENT_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(httpx.RetryCondition).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}
	return &httpClient{log: log.With("client", "FulfillmentHTTPClient"), http: rc}, nil
}

func (c *httpClient) CreateOrder(ctx context.Context, order Order) (string, error) {
	var out createOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", order.IdempotencyKey).
		SetBody(order).
		SetResult(&out).
		Post("/orders")
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		c.log.Warn("create order failed", "session_id", order.SessionID, "error", err)
		return "", err
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return "", fmt.Errorf("%s: response missing orderId", serviceName)
	}
	return out.OrderID, nil
}
