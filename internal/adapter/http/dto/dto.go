package dto

// CheckoutRequest is the request body for creating a provider checkout.
type CheckoutRequest struct {
	Purpose       string `json:"purpose" binding:"required,oneof=CREDITS SUBSCRIPTION MEDIA_PURCHASE PPV_UNLOCK TIP"`
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Provider      string `json:"provider" binding:"required,safe_id"`
	CreatorSlug   string `json:"creator_slug,omitempty" binding:"omitempty,safe_id"`
	TargetRef     string `json:"target_ref,omitempty" binding:"omitempty,uuid"`
	BillingPeriod string `json:"billing_period,omitempty"`
	ChatterID     string `json:"chatter_id,omitempty" binding:"omitempty,uuid"`
	PersonaID     string `json:"persona_id,omitempty" binding:"omitempty,uuid"`
}

// SpendRequest is the request body for spending wallet credits on content.
type SpendRequest struct {
	CreatorSlug string  `json:"creator_slug" binding:"required,safe_id"`
	AmountCents int64   `json:"amount_cents" binding:"required,gt=0"`
	Kind        string  `json:"kind" binding:"required,oneof=SPEND_MEDIA_UNLOCK SPEND_PPV SPEND_TIP"`
	RefType     string  `json:"ref_type" binding:"required,oneof=MEDIA MESSAGE"`
	RefID       string  `json:"ref_id" binding:"required,uuid"`
	ChatterID   *string `json:"chatter_id,omitempty" binding:"omitempty,uuid"`
	PersonaID   *string `json:"persona_id,omitempty" binding:"omitempty,uuid"`
}

// PayoutRequestBody is the request body for requesting a payout.
type PayoutRequestBody struct {
	BeneficiaryType string `json:"beneficiary_type" binding:"required,oneof=CREATOR AGENCY CHATTER"`
	BeneficiaryID   string `json:"beneficiary_id" binding:"required,uuid"`
	Destination     string `json:"destination,omitempty" binding:"omitempty,max=200"`
}

// PayoutResolveBody is the request body for resolving a payout request.
type PayoutResolveBody struct {
	Status string `json:"status" binding:"required,oneof=PAID REJECTED"`
}

// WalletResponse is the response for a wallet balance query.
type WalletResponse struct {
	UserID     string `json:"user_id"`
	PaidCents  int64  `json:"paid_cents"`
	BonusCents int64  `json:"bonus_cents"`
	TotalCents int64  `json:"total_cents"`
}

// LedgerEntryResponse is one row of a wallet's transaction log.
type LedgerEntryResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	PaidDelta    int64  `json:"paid_delta"`
	BonusDelta   int64  `json:"bonus_delta"`
	PaidBalance  int64  `json:"paid_balance"`
	BonusBalance int64  `json:"bonus_balance"`
	RefType      string `json:"ref_type,omitempty"`
	RefID        string `json:"ref_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ReplayCheckResponse reports whether the entry log reproduces the wallet
// balances.
type ReplayCheckResponse struct {
	Consistent bool `json:"consistent"`
}

// PaymentResponse is the response body for payment queries and checkout
// creation.
type PaymentResponse struct {
	ID          string `json:"id"`
	Purpose     string `json:"purpose"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Provider    string `json:"provider"`
	Status      string `json:"status"`
	PayURL      string `json:"pay_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// PayoutResponse is the response body for a created payout request.
type PayoutResponse struct {
	ID              string `json:"id"`
	BeneficiaryType string `json:"beneficiary_type"`
	BeneficiaryID   string `json:"beneficiary_id"`
	AmountCents     int64  `json:"amount_cents"`
	Destination     string `json:"destination"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	PaidAt          string `json:"paid_at,omitempty"`
}
