package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind is the business reason for a ledger mutation.
type TransactionKind string

const (
	KindPurchase      TransactionKind = "PURCHASE"       // paid credits from a completed CREDITS payment
	KindPurchaseBonus TransactionKind = "PURCHASE_BONUS" // promotional credits granted alongside a purchase
	KindSpendMedia    TransactionKind = "SPEND_MEDIA_UNLOCK"
	KindSpendPPV      TransactionKind = "SPEND_PPV"
	KindSpendTip      TransactionKind = "SPEND_TIP"
)

// AllowsBonus reports whether this spend kind may draw on the bonus pool.
// Only catalog media unlocks are bonus-eligible.
func (k TransactionKind) AllowsBonus() bool {
	return k == KindSpendMedia
}

// LedgerRefType identifies what a ledger entry points back at.
type LedgerRefType string

const (
	RefPayment LedgerRefType = "PAYMENT"
	RefMedia   LedgerRefType = "MEDIA"
	RefMessage LedgerRefType = "MESSAGE"
)

// LedgerRef is an optional link from a ledger entry to the sale that caused it.
type LedgerRef struct {
	Type LedgerRefType
	ID   uuid.UUID
}

// LedgerEntry is one immutable row in a wallet's append-only transaction log.
//
// A single entry records the full effect of one mutation, including spends
// that split across both pools: PaidDelta and BonusDelta carry the signed
// per-pool amounts and PaidBalance/BonusBalance snapshot the balances after
// applying them. Summing PaidDelta (resp. BonusDelta) over all entries for a
// wallet reproduces its current paid (resp. bonus) balance.
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Kind         TransactionKind `json:"kind"`
	PaidDelta    int64           `json:"paid_delta"`
	BonusDelta   int64           `json:"bonus_delta"`
	PaidBalance  int64           `json:"paid_balance"`
	BonusBalance int64           `json:"bonus_balance"`
	RefType      *LedgerRefType  `json:"ref_type,omitempty"`
	RefID        *uuid.UUID      `json:"ref_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Delta returns the total signed amount of the entry across both pools.
func (e *LedgerEntry) Delta() int64 {
	return e.PaidDelta + e.BonusDelta
}
