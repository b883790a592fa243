package domain

import (
	"time"

	"github.com/google/uuid"
)

// SaleType classifies the sale an earning record derives from.
type SaleType string

const (
	SaleSubscription SaleType = "SUBSCRIPTION"
	SalePPV          SaleType = "PPV"
	SaleTip          SaleType = "TIP"
	SaleMediaUnlock  SaleType = "MEDIA_UNLOCK"
)

// BeneficiaryType identifies who an earning or payout belongs to.
type BeneficiaryType string

const (
	BeneficiaryCreator BeneficiaryType = "CREATOR"
	BeneficiaryAgency  BeneficiaryType = "AGENCY"
	BeneficiaryChatter BeneficiaryType = "CHATTER"
)

// OriginType identifies the event a distribution traces back to.
type OriginType string

const (
	OriginPayment     OriginType = "PAYMENT"
	OriginLedgerSpend OriginType = "LEDGER_SPEND"
)

// Origin links an earning record to the payment or ledger spend that
// produced it. Its uniqueness per beneficiary tier is the idempotency
// guard for distribution.
type Origin struct {
	Type OriginType
	ID   uuid.UUID
}

// EarningRole names the distribution tier a record belongs to. One origin
// produces at most one record per role, which is what the database enforces
// for the exactly-once distribution rule. Beneficiary alone cannot carry
// that uniqueness: a persona commission may credit the same creator or
// agency that already holds the primary or agency-cut record.
type EarningRole string

const (
	RoleCreatorShare EarningRole = "CREATOR_SHARE"
	RoleAgencyCut    EarningRole = "AGENCY_CUT"
	RoleSecondary    EarningRole = "SECONDARY"
)

// EarningRecord is one beneficiary's share of one completed sale.
// Created once, immutable afterward.
type EarningRecord struct {
	ID              uuid.UUID       `json:"id"`
	BeneficiaryType BeneficiaryType `json:"beneficiary_type"`
	BeneficiaryID   uuid.UUID       `json:"beneficiary_id"`
	Role            EarningRole     `json:"role"`
	SaleType        SaleType        `json:"sale_type"`
	GrossCents      int64           `json:"gross_cents"`
	NetCents        int64           `json:"net_cents"`
	OriginType      OriginType      `json:"origin_type"`
	OriginID        uuid.UUID       `json:"origin_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Attribution says who produced the sale-triggering message, if anyone.
// At most one of ChatterID / PersonaID is set.
type Attribution struct {
	ChatterID *uuid.UUID
	PersonaID *uuid.UUID
}
