package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/httpx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

const serviceName = "payment processor"

// Client is the payment processor call contract.
type Client interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, paymentIntentID, reason string) (string, error)
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error)
}

type Config struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:  envutil.String("PAYMENTS_BASE_URL", ""),
		APIKey:   envutil.String("PAYMENTS_API_KEY", ""),
		Currency: envutil.String("PAYMENTS_CURRENCY", "usd"),
		Timeout:  envutil.Seconds("PAYMENTS_TIMEOUT_SECONDS", 20*time.Second),
	}
}

// Metadata is attached to every charge. The processor only sees the session,
// the payer and the breakdown.
type Metadata struct {
	SessionID string               `json:"sessionId"`
	UserID    string               `json:"userId"`
	Breakdown grouporder.Breakdown `json:"breakdown"`
}

type ChargeRequest struct {
	CustomerID      string   `json:"customerId"`
	PaymentMethodID string   `json:"paymentMethodId"`
	Amount          int64    `json:"amount"`
	Currency        string   `json:"currency"`
	Metadata        Metadata `json:"metadata"`
	IdempotencyKey  string   `json:"-"`
}

type Charge struct {
	PaymentIntentID string `json:"id"`
	Status          string `json:"status"`
}

type IntentRequest struct {
	CustomerID     string   `json:"customerId"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	Metadata       Metadata `json:"metadata"`
	IdempotencyKey string   `json:"-"`
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type refundRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Reason          string `json:"reason,omitempty"`
}

type refundResponse struct {
	ID string `json:"id"`
}

type confirmRequest struct {
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

type client struct {
	log      *logger.Logger
	http     *resty.Client
	currency string
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

// New builds a processor client. Charges are attempted exactly once: the client
// never retries, the idempotency key only protects against duplicate delivery.
func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing PAYMENTS_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "usd"
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}
	return &client{
		log:      log.With("client", "PaymentProcessorClient"),
		http:     rc,
		currency: strings.ToLower(cfg.Currency),
	}, nil
}

func (c *client) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("charge amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}
	var out Charge
	r := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out)
	if req.IdempotencyKey != "" {
		r.SetHeader("Idempotency-Key", req.IdempotencyKey)
	}
	resp, err := r.Post("/charges")
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		c.log.Warn("charge failed", "session_id", req.Metadata.SessionID, "payer_id", req.Metadata.UserID, "error", err)
		return nil, err
	}
	if strings.TrimSpace(out.PaymentIntentID) == "" {
		return nil, fmt.Errorf("%s: charge response missing id", serviceName)
	}
	return &out, nil
}

func (c *client) Refund(ctx context.Context, paymentIntentID, reason string) (string, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return "", fmt.Errorf("missing payment intent id")
	}
	var out refundResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", "refund:"+paymentIntentID).
		SetBody(refundRequest{PaymentIntentID: paymentIntentID, Reason: reason}).
		SetResult(&out).
		Post("/refunds")
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("intent amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}
	var out Intent
	r := c.http.R().SetContext(ctx).SetBody(req).SetResult(&out)
	if req.IdempotencyKey != "" {
		r.SetHeader("Idempotency-Key", req.IdempotencyKey)
	}
	resp, err := r.Post("/payment_intents")
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, fmt.Errorf("missing intent id")
	}
	var out Intent
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", intentID).
		SetBody(confirmRequest{PaymentMethodID: paymentMethodID}).
		SetResult(&out).
		Post("/payment_intents/{id}/confirm")
	if err := httpx.CheckResponse(serviceName, resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("payment processor not configured")

// Disabled fails every call; charges then surface as payment_failed.
type Disabled struct{}

func (Disabled) Charge(context.Context, ChargeRequest) (*Charge, error) { return nil, ErrNotConfigured }
func (Disabled) Refund(context.Context, string, string) (string, error) { return "", ErrNotConfigured }
func (Disabled) CreateIntent(context.Context, IntentRequest) (*Intent, error) {
	return nil, ErrNotConfigured
}
func (Disabled) ConfirmIntent(context.Context, string, string) (*Intent, error) {
	return nil, ErrNotConfigured
}
