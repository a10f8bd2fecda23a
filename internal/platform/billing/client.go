package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/httpx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

const serviceName = "billing service"

// ErrNoCredential means the user has no stored payment credential.
var ErrNoCredential = errors.New("no stored payment credential")

// Credential is the stored payment credential of a user.
type Credential struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

// Client resolves user ids to stored payment credentials.
type Client interface {
	ResolveCredential(ctx context.Context, userID string) (*Credential, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.String("BILLING_BASE_URL", ""),
		APIKey:     envutil.String("BILLING_API_KEY", ""),
		Timeout:    envutil.Seconds("BILLING_TIMEOUT_SECONDS", 10*time.Second),
		MaxRetries: envutil.Int("BILLING_MAX_RETRIES", 2),
	}
}

type client struct {
	log  *logger.Logger
	http *resty.Client
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing BILLING_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(httpx.RetryCondition).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}
	return &client{
		log:  log.With("client", "BillingClient"),
		http: rc,
	}, nil
}

func (c *client) ResolveCredential(ctx context.Context, userID string) (*Credential, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("missing user id")
	}
	var out Credential
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("userId", userID).
		SetResult(&out).
		Get("/customers/{userId}/payment-credential")
	if err == nil && resp != nil && resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoCredential
	}
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		c.log.Warn("resolve credential failed", "user_id", userID, "error", err)
		return nil, err
	}
	if strings.TrimSpace(out.CustomerID) == "" || strings.TrimSpace(out.PaymentMethodID) == "" {
		return nil, ErrNoCredential
	}
	return &out, nil
}

// Static serves fixed credentials; used for local runs without a billing service.
type Static map[string]Credential

func (s Static) ResolveCredential(_ context.Context, userID string) (*Credential, error) {
	cred, ok := s[userID]
	if !ok {
		return nil, ErrNoCredential
	}
	return &cred, nil
}
