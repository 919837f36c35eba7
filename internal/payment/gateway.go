package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var (
	// ErrMisconfigured is returned when gateway credentials are absent or
	// still placeholders.
	ErrMisconfigured = errors.New("payment gateway credentials are not configured")
	// ErrGateway is returned when the upstream gateway call fails; the
	// upstream detail is wrapped for diagnostics.
	ErrGateway = errors.New("payment gateway request failed")
)

// Config holds gateway credentials and settings resolved from the
// environment.
type Config struct {
	KeyID     string
	KeySecret string
	APIBase   string
	Currency  string
}

// ConfigFromEnv reads gateway settings. It fails with ErrMisconfigured when
// the key pair is missing or left at the placeholder values shipped in
// .env.example.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		KeyID:     os.Getenv("PAYMENT_KEY_ID"),
		KeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
		APIBase:   os.Getenv("PAYMENT_API_BASE"),
		Currency:  os.Getenv("PAYMENT_CURRENCY"),
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.razorpay.com/v1"
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.KeyID == "" || cfg.KeySecret == "" ||
		cfg.KeyID == "your_key_id" || cfg.KeySecret == "your_key_secret" {
		return Config{}, ErrMisconfigured
	}
	return cfg, nil
}

// Order is the gateway's view of a payment order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Gateway creates payment orders with an external provider. Amounts are in
// minor currency units (paise for INR).
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
}

// HTTPGateway talks to a Razorpay-compatible orders API over HTTPS with
// basic auth.
type HTTPGateway struct {
	cfg    Config
	client *http.Client
}

// NewHTTPGateway creates a gateway client.
func NewHTTPGateway(cfg Config) *HTTPGateway {
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder requests a new payment order from the gateway.
func (g *HTTPGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIBase+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, detail)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	return &order, nil
}

// Sign computes the gateway payment signature: HMAC-SHA256 over
// "<orderID>|<paymentID>" with the shared key secret, hex encoded.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a supplied signature against the recomputed one in
// constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
