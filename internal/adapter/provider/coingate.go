package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
)

const coingateName = "coingate"

// coingateStatusMap is the fixed translation table from CoinGate order
// statuses to the canonical enum. Unknown raw statuses stay PENDING so the
// poller keeps watching the payment instead of guessing.
var coingateStatusMap = map[string]domain.PaymentStatus{
	"new":        domain.PaymentPending,
	"pending":    domain.PaymentPending,
	"confirming": domain.PaymentPending,
	"paid":       domain.PaymentCompleted,
	"invalid":    domain.PaymentFailed,
	"canceled":   domain.PaymentFailed,
	"refunded":   domain.PaymentFailed,
	"expired":    domain.PaymentExpired,
}

// CoinGateConfig holds the credentials and endpoint for the CoinGate adapter.
type CoinGateConfig struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
}

// CoinGateProvider integrates the CoinGate crypto gateway. Callbacks are
// authenticated by a per-payment token minted at checkout time and echoed
// back by the gateway.
type CoinGateProvider struct {
	cfg    CoinGateConfig
	client HTTPClient
}

func NewCoinGateProvider(cfg CoinGateConfig, client HTTPClient) *CoinGateProvider {
	return &CoinGateProvider{cfg: cfg, client: client}
}

func (p *CoinGateProvider) Name() string { return coingateName }

type coingateOrderRequest struct {
	OrderID       string `json:"order_id"`
	PriceAmount   string `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	Token         string `json:"token"`
	CallbackURL   string `json:"callback_url,omitempty"`
}

type coingateOrderResponse struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url"`
}

func (p *CoinGateProvider) CreateCheckout(ctx context.Context, pay *domain.Payment) (*ports.CheckoutResult, error) {
	nonce := uuid.NewString()
	reqBody := coingateOrderRequest{
		OrderID:       pay.ID.String(),
		PriceAmount:   fmt.Sprintf("%d.%02d", pay.AmountCents/100, pay.AmountCents%100),
		PriceCurrency: pay.Currency,
		Token:         nonce,
		CallbackURL:   p.cfg.CallbackURL,
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal coingate order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v2/orders", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build coingate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+p.cfg.APIKey)

	var resp coingateOrderResponse
	if err := p.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return &ports.CheckoutResult{
		ProviderRef: fmt.Sprintf("%d", resp.ID),
		Nonce:       nonce,
		PayURL:      resp.PaymentURL,
	}, nil
}

// ParseCallback reads the gateway's form-encoded callback. JSON bodies are
// accepted as well since CoinGate's sandbox posts them.
func (p *CoinGateProvider) ParseCallback(header http.Header, body []byte) (*ports.ProviderCallback, error) {
	var ref, status, token string
	if json.Valid(body) {
		var payload struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
			Token  string `json:"token"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, apperror.Wrap("SYS_001", "malformed callback body", http.StatusBadRequest, err)
		}
		ref = fmt.Sprintf("%d", payload.ID)
		status = payload.Status
		token = payload.Token
	} else {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, apperror.Wrap("SYS_001", "malformed callback body", http.StatusBadRequest, err)
		}
		ref = values.Get("id")
		status = values.Get("status")
		token = values.Get("token")
	}
	if ref == "" || ref == "0" {
		return nil, apperror.New("SYS_001", "callback missing order id", http.StatusBadRequest)
	}
	return &ports.ProviderCallback{
		ProviderRef: ref,
		RawStatus:   status,
		Token:       token,
		Body:        body,
		Header:      header,
	}, nil
}

// VerifyCallback compares the echoed token against the nonce stored in the
// payment metadata at checkout time.
func (p *CoinGateProvider) VerifyCallback(cb *ports.ProviderCallback, pay *domain.Payment) error {
	stored := pay.Metadata[domain.MetaCheckoutNonce]
	if stored == "" || cb.Token == "" || !constantTimeEqual(cb.Token, stored) {
		return apperror.ErrProviderVerificationFailed()
	}
	return nil
}

func (p *CoinGateProvider) GetStatus(ctx context.Context, providerRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v2/orders/"+providerRef, nil)
	if err != nil {
		return "", fmt.Errorf("build coingate request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.cfg.APIKey)

	var resp coingateOrderResponse
	if err := p.doJSON(req, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (p *CoinGateProvider) MapStatus(raw string) domain.PaymentStatus {
	if mapped, ok := coingateStatusMap[raw]; ok {
		return mapped
	}
	return domain.PaymentPending
}

func (p *CoinGateProvider) doJSON(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("coingate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read coingate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("coingate returned status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode coingate response: %w", err)
	}
	return nil
}
