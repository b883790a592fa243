package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentPurpose declares what a completed payment pays for.
type PaymentPurpose string

const (
	PurposeSubscription  PaymentPurpose = "SUBSCRIPTION"
	PurposeMediaPurchase PaymentPurpose = "MEDIA_PURCHASE"
	PurposePPVUnlock     PaymentPurpose = "PPV_UNLOCK"
	PurposeTip           PaymentPurpose = "TIP"
	PurposeCredits       PaymentPurpose = "CREDITS"
)

// PaymentStatus is the canonical lifecycle state of an external payment.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentCompleted     PaymentStatus = "COMPLETED"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentExpired       PaymentStatus = "EXPIRED"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
)

// IsTerminal reports whether the status is final. PARTIALLY_PAID is not a
// stored state: the payment stays PENDING until the gateway reports the
// remainder or the poller expires it.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentExpired
}

// Recognized metadata bag keys. The bag doubles as provider bookkeeping and
// as the idempotency marker for completion processing.
const (
	MetaProcessedAt   = "processed_at"
	MetaProcessedBy   = "processed_by" // "webhook" or "poller"
	MetaCheckoutNonce = "checkout_nonce"
	MetaLastRawStatus = "last_raw_status"
	MetaProviderFee   = "provider_fee"
	MetaBillingPeriod = "billing_period" // subscription interval, e.g. "720h"
	MetaTargetRef     = "target_ref"     // media/message id for unlock purposes
	MetaCreatorSlug   = "creator_slug"
	MetaChatterID     = "chatter_id" // sale attribution, carried to distribution
	MetaPersonaID     = "persona_id"
	MetaPayURL        = "pay_url" // where the user completes the checkout
)

// Metadata is the opaque provider-specific key-value bag on a payment.
type Metadata map[string]string

// Merge returns a copy of m with patch applied on top.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Payment is one attempt to receive external money.
type Payment struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Purpose     PaymentPurpose `json:"purpose"`
	AmountCents int64          `json:"amount_cents"`
	Currency    string         `json:"currency"`
	Provider    string         `json:"provider"`
	ProviderRef string         `json:"provider_ref"`
	Status      PaymentStatus  `json:"status"`
	Metadata    Metadata       `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CanTransitionTo reports whether a status change is legal. Same-status
// transitions are callers' no-ops, not errors, and are handled upstream.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	if p.Status != PaymentPending {
		return false
	}
	return next == PaymentCompleted || next == PaymentFailed || next == PaymentExpired
}

// bonusTiers maps minimum purchase amounts (cents) to promotional bonus
// percentages, largest tier first.
var bonusTiers = []struct {
	MinCents int64
	Percent  int64
}{
	{10000, 30},
	{5000, 25},
	{2500, 20},
	{1000, 15},
	{500, 10},
}

// BonusPercent returns the promotional bonus percentage for a credit
// purchase of the given amount. Purchases under the lowest tier earn none.
func BonusPercent(amountCents int64) int64 {
	for _, t := range bonusTiers {
		if amountCents >= t.MinCents {
			return t.Percent
		}
	}
	return 0
}

// CreditsForPurchase converts a completed CREDITS payment into paid and
// bonus credit amounts. One cent buys one paid credit; the bonus is floored.
func CreditsForPurchase(amountCents int64) (paid, bonus int64) {
	paid = amountCents
	bonus = paid * BonusPercent(amountCents) / 100
	return paid, bonus
}
