package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
)

const (
	stripeName      = "stripe"
	stripeSigHeader = "Stripe-Signature"
)

var stripeStatusMap = map[string]domain.PaymentStatus{
	"requires_payment_method": domain.PaymentPending,
	"requires_confirmation":   domain.PaymentPending,
	"requires_action":         domain.PaymentPending,
	"requires_capture":        domain.PaymentPending,
	"processing":              domain.PaymentPending,
	"succeeded":               domain.PaymentCompleted,
	"canceled":                domain.PaymentFailed,
}

// StripeConfig holds the credentials for the Stripe adapter.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// StripeProvider integrates Stripe as the fiat on-ramp. Payments are
// PaymentIntents; webhook deliveries are authenticated with Stripe's signed
// event scheme.
type StripeProvider struct {
	cfg StripeConfig
	sc  *stripeclient.API
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	sc := &stripeclient.API{}
	sc.Init(cfg.APIKey, nil)
	return &StripeProvider{cfg: cfg, sc: sc}
}

func (p *StripeProvider) Name() string { return stripeName }

func (p *StripeProvider) CreateCheckout(ctx context.Context, pay *domain.Payment) (*ports.CheckoutResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(pay.AmountCents),
		Currency: stripe.String(strings.ToLower(pay.Currency)),
	}
	params.Context = ctx
	params.AddMetadata("payment_id", pay.ID.String())
	params.AddMetadata("purpose", string(pay.Purpose))

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	// The client secret goes back to the frontend, which finishes the flow
	// with Stripe.js; there is no hosted pay URL for intents.
	return &ports.CheckoutResult{
		ProviderRef: pi.ID,
		PayURL:      pi.ClientSecret,
	}, nil
}

// ParseCallback extracts the intent reference from the event body without
// verifying it; VerifyCallback owns the signature check.
func (p *StripeProvider) ParseCallback(header http.Header, body []byte) (*ports.ProviderCallback, error) {
	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, apperror.Wrap("SYS_001", "malformed callback body", http.StatusBadRequest, err)
	}
	if event.Data.Object.ID == "" {
		return nil, apperror.New("SYS_001", "callback missing intent id", http.StatusBadRequest)
	}
	return &ports.ProviderCallback{
		ProviderRef: event.Data.Object.ID,
		RawStatus:   event.Data.Object.Status,
		Token:       header.Get(stripeSigHeader),
		Body:        body,
		Header:      header,
	}, nil
}

func (p *StripeProvider) VerifyCallback(cb *ports.ProviderCallback, _ *domain.Payment) error {
	if cb.Token == "" {
		return apperror.ErrProviderVerificationFailed()
	}
	if _, err := webhook.ConstructEvent(cb.Body, cb.Token, p.cfg.WebhookSecret); err != nil {
		return apperror.ErrProviderVerificationFailed()
	}
	return nil
}

func (p *StripeProvider) GetStatus(ctx context.Context, providerRef string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.sc.PaymentIntents.Get(providerRef, params)
	if err != nil {
		return "", fmt.Errorf("get payment intent: %w", err)
	}
	return string(pi.Status), nil
}

func (p *StripeProvider) MapStatus(raw string) domain.PaymentStatus {
	if mapped, ok := stripeStatusMap[raw]; ok {
		return mapped
	}
	return domain.PaymentPending
}
