package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snippepay/internal/metrics"
	"snippepay/internal/pkg/httpclient"
)

// Version is reported in the User-Agent header.
const Version = "1.0.0"

const (
	DefaultBaseURL = "https://api.snippe.sh"
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the Snippe REST API. It never retries: a payment creation
// is sent exactly once per checkout attempt.
type Client struct {
	base   string
	apiKey string
	http   *httpclient.Client
	log    *zap.Logger
}

// NewClient builds a client. log should be the gated payment logger.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:   cfg.BaseURL,
		apiKey: cfg.APIKey,
		http: httpclient.New().
			WithBaseURL(cfg.BaseURL).
			WithTimeout(cfg.Timeout).
			WithBearerToken(cfg.APIKey).
			WithHeader("User-Agent", "Snippe-Go/"+Version),
		log: log,
	}
}

// HasKey reports whether an API key was configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// CreatePayment sends a new payment with a fresh idempotency key.
func (c *Client) CreatePayment(ctx context.Context, req *Request) (*Response, error) {
	var out Response
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	if err := c.do(ctx, "create_payment", http.MethodPost, "/v1/payments", req, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaymentStatus fetches a single payment by reference.
func (c *Client) GetPaymentStatus(ctx context.Context, reference string) (*Response, error) {
	var out Response
	if err := c.do(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(reference), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPayments returns a page of payments, newest first.
func (c *Client) ListPayments(ctx context.Context, limit, offset int) (*PaymentList, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	path := "/v1/payments?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var out PaymentList
	if err := c.do(ctx, "list_payments", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns the merchant account balance.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := c.do(ctx, "balance", http.MethodGet, "/v1/payments/balance", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	log := c.log.With(zap.String("method", method), zap.String("url", c.base+path))
	log.Info("API request")
	if body != nil {
		if raw, err := json.Marshal(body); err == nil {
			log.Info("API request data", zap.ByteString("body", raw))
		}
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, method, path, body, headers)
	metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeNetwork).Inc()
		log.Warn("API error", zap.Error(err))
		return &APIError{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	log.Info("API response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", resp.Body),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeRemote).Inc()
		return &APIError{Kind: KindRemote, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{
			Kind:    KindRemote,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("invalid response body: %v", err),
			Err:     err,
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return "Unknown error"
}
