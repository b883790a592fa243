package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBonusPercent_Tiers(t *testing.T) {
	tests := []struct {
		cents    int64
		expected int64
	}{
		{499, 0},
		{500, 10},
		{999, 10},
		{1000, 15},
		{2500, 20},
		{5000, 25},
		{9999, 25},
		{10000, 30},
		{25000, 30},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BonusPercent(tt.cents), "amount %d cents", tt.cents)
	}
}

func TestCreditsForPurchase(t *testing.T) {
	paid, bonus := CreditsForPurchase(5000)
	assert.Equal(t, int64(5000), paid)
	assert.Equal(t, int64(1250), bonus)

	paid, bonus = CreditsForPurchase(499)
	assert.Equal(t, int64(499), paid)
	assert.Equal(t, int64(0), bonus)

	// Bonus is floored: $25.01 at 20% -> 500.2 -> 500
	_, bonus = CreditsForPurchase(2501)
	assert.Equal(t, int64(500), bonus)
}

func TestPayment_CanTransitionTo(t *testing.T) {
	p := &Payment{Status: PaymentPending}
	assert.True(t, p.CanTransitionTo(PaymentCompleted))
	assert.True(t, p.CanTransitionTo(PaymentFailed))
	assert.True(t, p.CanTransitionTo(PaymentExpired))
	assert.False(t, p.CanTransitionTo(PaymentPending))
	assert.False(t, p.CanTransitionTo(PaymentPartiallyPaid))

	p.Status = PaymentCompleted
	assert.False(t, p.CanTransitionTo(PaymentFailed))
	assert.False(t, p.CanTransitionTo(PaymentExpired))

	p.Status = PaymentFailed
	assert.False(t, p.CanTransitionTo(PaymentCompleted))
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentPending.IsTerminal())
	assert.False(t, PaymentPartiallyPaid.IsTerminal())
	assert.True(t, PaymentCompleted.IsTerminal())
	assert.True(t, PaymentFailed.IsTerminal())
	assert.True(t, PaymentExpired.IsTerminal())
}

func TestMetadata_Merge(t *testing.T) {
	base := Metadata{MetaCheckoutNonce: "abc", MetaLastRawStatus: "waiting"}
	merged := base.Merge(Metadata{MetaLastRawStatus: "confirmed", MetaProcessedBy: "poller"})

	assert.Equal(t, "abc", merged[MetaCheckoutNonce])
	assert.Equal(t, "confirmed", merged[MetaLastRawStatus])
	assert.Equal(t, "poller", merged[MetaProcessedBy])

	// Original is untouched.
	assert.Equal(t, "waiting", base[MetaLastRawStatus])
	_, ok := base[MetaProcessedBy]
	assert.False(t, ok)
}

func TestWallet_Available(t *testing.T) {
	w := &Wallet{PaidCents: 500, BonusCents: 1000}
	assert.Equal(t, int64(1500), w.Available(true))
	assert.Equal(t, int64(500), w.Available(false))
	assert.Equal(t, int64(1500), w.Total())
}

func TestTransactionKind_AllowsBonus(t *testing.T) {
	assert.True(t, KindSpendMedia.AllowsBonus())
	assert.False(t, KindSpendPPV.AllowsBonus())
	assert.False(t, KindSpendTip.AllowsBonus())
	assert.False(t, KindPurchase.AllowsBonus())
}

func TestValidSharePct(t *testing.T) {
	assert.True(t, ValidSharePct(0))
	assert.True(t, ValidSharePct(100))
	assert.False(t, ValidSharePct(-1))
	assert.False(t, ValidSharePct(101))
}
