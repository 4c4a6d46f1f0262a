// Package gateway — HTTP-клиент платёжного провайдера (hosted payment page:
// создание сессии и возвраты).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shop-service/internal/service"

	"go.uber.org/zap"
)

type Config struct {
	APIURL      string
	StoreID     string
	AuthKey     string
	TestMode    bool
	SuccessURL  string
	DeclinedURL string
	CancelURL   string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

var _ service.PaymentGateway = (*Client)(nil)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionResponse struct {
	Order struct {
		Ref string `json:"ref"`
		URL string `json:"url"`
	} `json:"order"`
	Error *apiError `json:"error,omitempty"`
}

type refundResponse struct {
	Error *apiError `json:"error,omitempty"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, in service.CheckoutSessionInput) (service.CheckoutSession, error) {
	test := 0
	if c.cfg.TestMode {
		test = 1
	}
	payload := map[string]any{
		"method":  "create",
		"store":   c.cfg.StoreID,
		"authkey": c.cfg.AuthKey,
		"order": map[string]any{
			"cartid":      in.OrderRef,
			"test":        test,
			"amount":      formatAmount(in.AmountCents),
			"currency":    in.Currency,
			"description": in.Description,
		},
		"customer": map[string]any{
			"email": in.CustomerEmail,
		},
		"return": map[string]string{
			"authorised": c.cfg.SuccessURL,
			"declined":   c.cfg.DeclinedURL,
			"cancelled":  c.cfg.CancelURL,
		},
	}

	var resp sessionResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return service.CheckoutSession{}, err
	}
	if resp.Error != nil {
		return service.CheckoutSession{}, fmt.Errorf("gateway error: %s", resp.Error.Message)
	}
	if resp.Order.URL == "" {
		return service.CheckoutSession{}, fmt.Errorf("gateway returned empty payment URL")
	}
	return service.CheckoutSession{RedirectURL: resp.Order.URL, Reference: resp.Order.Ref}, nil
}

// Refund: amountCents == nil — полный возврат
func (c *Client) Refund(ctx context.Context, transactionID string, amountCents *int64) error {
	tx := map[string]any{"ref": transactionID}
	if amountCents != nil {
		tx["amount"] = formatAmount(*amountCents)
	}
	payload := map[string]any{
		"method":      "refund",
		"store":       c.cfg.StoreID,
		"authkey":     c.cfg.AuthKey,
		"transaction": tx,
	}

	var resp refundResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("gateway refund error: %s", resp.Error.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("gateway returned non-200",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return fmt.Errorf("gateway API error (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
