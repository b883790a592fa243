package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the lifecycle state of a payout request.
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "PENDING"
	PayoutPaid     PayoutStatus = "PAID"
	PayoutRejected PayoutStatus = "REJECTED"
)

// PayoutRequest asks to cash out a beneficiary's full pending balance.
// PAID and REJECTED are terminal and set by an out-of-band approval step.
type PayoutRequest struct {
	ID              uuid.UUID       `json:"id"`
	BeneficiaryType BeneficiaryType `json:"beneficiary_type"`
	BeneficiaryID   uuid.UUID       `json:"beneficiary_id"`
	AmountCents     int64           `json:"amount_cents"`
	Destination     string          `json:"destination"` // wallet descriptor on file
	Status          PayoutStatus    `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// IsResolved reports whether the request reached a terminal state.
func (p *PayoutRequest) IsResolved() bool {
	return p.Status == PayoutPaid || p.Status == PayoutRejected
}
