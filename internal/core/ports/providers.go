package ports

import (
	"context"
	"net/http"

	"creator-ledger/internal/core/domain"
)

// ProviderCallback is the canonical shape every provider adapter extracts
// from a webhook delivery. RawStatus is advisory only; the pipeline always
// re-fetches the status from the provider before acting.
type ProviderCallback struct {
	ProviderRef string
	RawStatus   string
	Token       string // authenticity token or signature, provider-specific
	Body        []byte // raw payload, kept for signature verification
	Header      http.Header
}

// CheckoutResult is what a provider returns when a checkout is initiated.
type CheckoutResult struct {
	ProviderRef string
	Nonce       string // stored at checkout time, compared on callback
	PayURL      string // where the user completes the payment
}

// PaymentProvider is the outbound adapter for one external payment rail.
type PaymentProvider interface {
	Name() string
	// CreateCheckout registers the payment with the provider.
	CreateCheckout(ctx context.Context, p *domain.Payment) (*CheckoutResult, error)
	// ParseCallback extracts the canonical callback fields from a webhook
	// delivery without trusting them.
	ParseCallback(header http.Header, body []byte) (*ProviderCallback, error)
	// VerifyCallback checks callback provenance against the secrets or
	// nonce stored at checkout time.
	VerifyCallback(cb *ProviderCallback, p *domain.Payment) error
	// GetStatus fetches the provider's current raw status for a payment.
	GetStatus(ctx context.Context, providerRef string) (string, error)
	// MapStatus translates a provider raw status into the canonical enum
	// via a fixed lookup table.
	MapStatus(raw string) domain.PaymentStatus
}

// ProviderRegistry resolves provider adapters by name.
type ProviderRegistry interface {
	Get(name string) (PaymentProvider, error)
	Names() []string
}
