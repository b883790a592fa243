package ports

import (
	"context"
	"time"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Service Ports (Business Logic) ---

// LedgerService maintains wallet balances and the append-only entry log.
type LedgerService interface {
	// AddCredits credits amount to one pool and returns the new total
	// balance. Runs in its own transaction.
	AddCredits(ctx context.Context, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, pool domain.CreditPool, ref *domain.LedgerRef) (int64, error)
	// AddCreditsTx is AddCredits inside an existing transaction, used by
	// the reconciliation pipeline so the credit lands atomically with the
	// payment status transition.
	AddCreditsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, pool domain.CreditPool, ref *domain.LedgerRef) (int64, error)
	// SpendCredits debits amount, bonus pool first when allowBonus, and
	// returns the appended ledger entry.
	SpendCredits(ctx context.Context, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, allowBonus bool, ref *domain.LedgerRef) (*domain.LedgerEntry, error)
	// SpendCreditsTx is SpendCredits inside an existing transaction, used
	// by the content spend flow so the debit lands atomically with the
	// unlock marker and the commission fan-out.
	SpendCreditsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, allowBonus bool, ref *domain.LedgerRef) (*domain.LedgerEntry, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// CheckReplay verifies that replaying the entry log reproduces the
	// wallet's current balances.
	CheckReplay(ctx context.Context, userID uuid.UUID) (bool, error)
}

// CreatePaymentInput holds validated input for checkout creation.
type CreatePaymentInput struct {
	UserID      uuid.UUID
	Purpose     domain.PaymentPurpose
	AmountCents int64
	Currency    string
	Provider    string
	Metadata    domain.Metadata
}

// PaymentService tracks external payment attempts.
type PaymentService interface {
	// CreatePending initiates a checkout with the provider and records the
	// payment; rate limited per user.
	CreatePending(ctx context.Context, in CreatePaymentInput) (*domain.Payment, error)
	// TransitionStatus moves a payment to a new canonical status, merging
	// the metadata patch. Same-status transitions are no-ops.
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus, patch domain.Metadata) error
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// ReconcileSummary reports a poller run.
type ReconcileSummary struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Errors    int `json:"errors"`
	Expired   int `json:"expired"`
}

// CompletionTrigger identifies which path applied a completion.
type CompletionTrigger string

const (
	TriggerWebhook CompletionTrigger = "webhook"
	TriggerPoller  CompletionTrigger = "poller"
)

// ReconcileService converges webhook and poller notifications onto
// idempotent payment completion.
type ReconcileService interface {
	// HandleCallback processes one provider webhook delivery.
	HandleCallback(ctx context.Context, providerName string, cb *ProviderCallback) error
	// RunOnce polls pending payments against their providers and sweeps
	// expired ones.
	RunOnce(ctx context.Context) (*ReconcileSummary, error)
	// ApplyCompletion atomically transitions the payment and applies its
	// purpose effects exactly once.
	ApplyCompletion(ctx context.Context, paymentID uuid.UUID, mapped domain.PaymentStatus, trigger CompletionTrigger) error
}

// DistributeInput describes one attributable sale to split.
type DistributeInput struct {
	CreatorSlug string
	GrossCents  int64
	SaleType    domain.SaleType
	Attribution domain.Attribution
	Origin      domain.Origin
}

// CommissionService fans a completed sale out into earning records.
type CommissionService interface {
	// Distribute runs in its own transaction.
	Distribute(ctx context.Context, in DistributeInput) error
	// DistributeTx runs inside an existing transaction (payment completion).
	DistributeTx(ctx context.Context, tx pgx.Tx, in DistributeInput) error
}

// SpendInput describes one credit spend on creator content.
type SpendInput struct {
	UserID      uuid.UUID
	CreatorSlug string
	AmountCents int64
	Kind        domain.TransactionKind
	RefType     domain.LedgerRefType
	RefID       uuid.UUID
	Attribution domain.Attribution
}

// SpendService runs the full content purchase flow: debit, unlock marker
// and commission fan-out in one transaction.
type SpendService interface {
	Spend(ctx context.Context, in SpendInput) (*domain.LedgerEntry, error)
}

// PayoutInput identifies the requesting beneficiary and destination.
type PayoutInput struct {
	BeneficiaryType domain.BeneficiaryType
	BeneficiaryID   uuid.UUID
	Destination     string
}

// PayoutService gates and records cash-out requests. Pending balances are
// only read at request time; the PAID resolution is what consumes them.
type PayoutService interface {
	RequestPayout(ctx context.Context, in PayoutInput) (*domain.PayoutRequest, error)
	// ResolvePayout finalizes a PENDING request. PAID deducts the
	// requested amount from the beneficiary's pending balance; REJECTED
	// leaves the balance untouched.
	ResolvePayout(ctx context.Context, id uuid.UUID, status domain.PayoutStatus) (*domain.PayoutRequest, error)
}

// RateLimiter bounds payment creations per user over a sliding window.
type RateLimiter interface {
	// Allow records an attempt under key and reports whether it stays
	// within limit for the window.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// TokenClaims holds the parsed user identity claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// TokenService validates bearer tokens issued by the platform's (external)
// auth service.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}
