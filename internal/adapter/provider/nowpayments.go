package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
)

const (
	nowpaymentsName      = "nowpayments"
	nowpaymentsSigHeader = "x-nowpayments-sig"
)

var nowpaymentsStatusMap = map[string]domain.PaymentStatus{
	"waiting":        domain.PaymentPending,
	"confirming":     domain.PaymentPending,
	"confirmed":      domain.PaymentPending,
	"sending":        domain.PaymentPending,
	"partially_paid": domain.PaymentPartiallyPaid,
	"finished":       domain.PaymentCompleted,
	"failed":         domain.PaymentFailed,
	"refunded":       domain.PaymentFailed,
	"expired":        domain.PaymentExpired,
}

// NOWPaymentsConfig holds the credentials and endpoint for the NOWPayments
// adapter. IPNSecret signs instant payment notifications.
type NOWPaymentsConfig struct {
	BaseURL     string
	APIKey      string
	IPNSecret   string
	CallbackURL string
}

// NOWPaymentsProvider integrates the NOWPayments crypto gateway. IPN
// callbacks carry an HMAC-SHA512 signature computed over the JSON body with
// its keys in lexical order.
type NOWPaymentsProvider struct {
	cfg    NOWPaymentsConfig
	client HTTPClient
}

func NewNOWPaymentsProvider(cfg NOWPaymentsConfig, client HTTPClient) *NOWPaymentsProvider {
	return &NOWPaymentsProvider{cfg: cfg, client: client}
}

func (p *NOWPaymentsProvider) Name() string { return nowpaymentsName }

type nowpaymentsInvoiceRequest struct {
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
	OrderID       string  `json:"order_id"`
	IPNCallback   string  `json:"ipn_callback_url,omitempty"`
}

type nowpaymentsInvoiceResponse struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
}

type nowpaymentsPaymentResponse struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
}

func (p *NOWPaymentsProvider) CreateCheckout(ctx context.Context, pay *domain.Payment) (*ports.CheckoutResult, error) {
	reqBody := nowpaymentsInvoiceRequest{
		PriceAmount:   float64(pay.AmountCents) / 100,
		PriceCurrency: pay.Currency,
		OrderID:       pay.ID.String(),
		IPNCallback:   p.cfg.CallbackURL,
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal nowpayments invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/invoice", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build nowpayments request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)

	var resp nowpaymentsInvoiceResponse
	if err := p.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return &ports.CheckoutResult{
		ProviderRef: resp.ID,
		PayURL:      resp.InvoiceURL,
	}, nil
}

func (p *NOWPaymentsProvider) ParseCallback(header http.Header, body []byte) (*ports.ProviderCallback, error) {
	var payload nowpaymentsPaymentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperror.Wrap("SYS_001", "malformed callback body", http.StatusBadRequest, err)
	}
	if payload.PaymentID.String() == "" {
		return nil, apperror.New("SYS_001", "callback missing payment id", http.StatusBadRequest)
	}
	return &ports.ProviderCallback{
		ProviderRef: payload.PaymentID.String(),
		RawStatus:   payload.PaymentStatus,
		Token:       header.Get(nowpaymentsSigHeader),
		Body:        body,
		Header:      header,
	}, nil
}

// VerifyCallback recomputes the IPN signature over the sorted body and
// compares it against the header value.
func (p *NOWPaymentsProvider) VerifyCallback(cb *ports.ProviderCallback, _ *domain.Payment) error {
	if cb.Token == "" {
		return apperror.ErrProviderVerificationFailed()
	}
	sorted, err := sortedJSON(cb.Body)
	if err != nil {
		return apperror.ErrProviderVerificationFailed()
	}
	if !verifyHMACSHA512([]byte(p.cfg.IPNSecret), sorted, cb.Token) {
		return apperror.ErrProviderVerificationFailed()
	}
	return nil
}

func (p *NOWPaymentsProvider) GetStatus(ctx context.Context, providerRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/payment/"+providerRef, nil)
	if err != nil {
		return "", fmt.Errorf("build nowpayments request: %w", err)
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)

	var resp nowpaymentsPaymentResponse
	if err := p.doJSON(req, &resp); err != nil {
		return "", err
	}
	return resp.PaymentStatus, nil
}

func (p *NOWPaymentsProvider) MapStatus(raw string) domain.PaymentStatus {
	if mapped, ok := nowpaymentsStatusMap[raw]; ok {
		return mapped
	}
	return domain.PaymentPending
}

func (p *NOWPaymentsProvider) doJSON(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("nowpayments request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read nowpayments response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nowpayments returned status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode nowpayments response: %w", err)
	}
	return nil
}
