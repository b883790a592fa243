package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditPool identifies which wallet pool a ledger delta applies to.
type CreditPool string

const (
	PoolPaid  CreditPool = "PAID"
	PoolBonus CreditPool = "BONUS"
)

// Wallet holds a user's spendable credits, split into two pools.
// Paid credits originate from real money and spend on anything; bonus
// credits are promotional and spend only on media unlocks.
type Wallet struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	PaidCents  int64     `json:"paid_cents"`
	BonusCents int64     `json:"bonus_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Total returns the combined balance of both pools.
func (w *Wallet) Total() int64 {
	return w.PaidCents + w.BonusCents
}

// Available returns the balance spendable for a given operation.
func (w *Wallet) Available(allowBonus bool) int64 {
	if allowBonus {
		return w.PaidCents + w.BonusCents
	}
	return w.PaidCents
}
