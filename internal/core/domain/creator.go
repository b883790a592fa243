package domain

import (
	"github.com/google/uuid"
)

// Creator is the read-only slice of a creator profile this subsystem needs:
// fee and ownership configuration plus the pending payout balance it owns.
type Creator struct {
	ID             uuid.UUID  `json:"id"`
	Slug           string     `json:"slug"`
	PlatformFeePct int64      `json:"platform_fee_pct"` // platform's cut of gross, 0-100
	AgencyID       *uuid.UUID `json:"agency_id,omitempty"`
	AgencyManaged  bool       `json:"agency_managed"` // payouts go through the agency
	PendingCents   int64      `json:"pending_cents"`
	PayoutWallet   string     `json:"payout_wallet"`
}

// Agency manages creators and takes a share of their net revenue.
type Agency struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	RevenueSharePct int64     `json:"revenue_share_pct"` // cut of creator net, 0-100
	PendingCents    int64     `json:"pending_cents"`
	PayoutWallet    string    `json:"payout_wallet"`
}

// Chatter is a human operator paid a commission on sales their messages
// trigger.
type Chatter struct {
	ID            uuid.UUID `json:"id"`
	AgencyID      uuid.UUID `json:"agency_id"`
	CommissionPct int64     `json:"commission_pct"` // cut of gross, 0-100
	PendingCents  int64     `json:"pending_cents"`
	PayoutWallet  string    `json:"payout_wallet"`
}

// AIPersona is an automated chat persona. Sales it triggers credit its
// owner (the agency when set, otherwise the creator).
type AIPersona struct {
	ID            uuid.UUID  `json:"id"`
	CreatorID     uuid.UUID  `json:"creator_id"`
	AgencyID      *uuid.UUID `json:"agency_id,omitempty"`
	CommissionPct int64      `json:"commission_pct"` // cut of gross, 0-100
}

// ValidSharePct reports whether a configured percentage is usable. Out of
// range values fall back to the safe default split (everything to the
// creator) rather than failing the sale.
func ValidSharePct(pct int64) bool {
	return pct >= 0 && pct <= 100
}
