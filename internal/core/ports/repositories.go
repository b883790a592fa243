package ports

import (
	"context"
	"time"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for user wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type WalletRepository interface {
	// Create inserts the wallet inside tx; a concurrent insert for the
	// same user is a silent no-op, the caller re-locks to get the winner.
	Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, paidCents, bonusCents int64) error
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error)
	// SumDeltas reproduces the wallet balances from the log (replay check).
	SumDeltas(ctx context.Context, walletID uuid.UUID) (paidCents, bonusCents int64, err error)
}

// PaymentRepository defines persistence for external payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByProviderRef(ctx context.Context, provider, providerRef string) (*domain.Payment, error)
	// GetByIDForUpdate locks the payment row; the already-completed check
	// must happen under this lock.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, metadata domain.Metadata) error
	// ListPending returns PENDING payments created after since, oldest first.
	ListPending(ctx context.Context, since time.Time, limit int) ([]domain.Payment, error)
	// ListPendingBefore returns PENDING payments created before cutoff,
	// oldest first (expiry sweep).
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
}

// EarningRepository defines persistence for earning records.
type EarningRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.EarningRecord) error
	// ExistsByOrigin is the distribution idempotency guard; called inside
	// the distribution transaction.
	ExistsByOrigin(ctx context.Context, tx pgx.Tx, origin domain.Origin) (bool, error)
	ListByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) ([]domain.EarningRecord, error)
}

// CreatorRepository reads creator/agency/chatter/persona configuration and
// owns their pending payout balances.
type CreatorRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Creator, error)
	GetCreator(ctx context.Context, id uuid.UUID) (*domain.Creator, error)
	GetAgency(ctx context.Context, id uuid.UUID) (*domain.Agency, error)
	GetChatter(ctx context.Context, id uuid.UUID) (*domain.Chatter, error)
	GetPersona(ctx context.Context, id uuid.UUID) (*domain.AIPersona, error)
	// AddPending adjusts a beneficiary's pending payout balance; negative
	// deltas are used when a payout request drains it.
	AddPending(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, deltaCents int64) error
	GetPendingForUpdate(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID) (int64, error)
	UpdatePayoutWallet(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, wallet string) error
}

// PayoutRepository defines persistence for payout requests.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error)
	HasPending(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (bool, error)
	// GetLatestByBeneficiary returns the most recently created request
	// regardless of its outcome (cooldown check).
	GetLatestByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (*domain.PayoutRequest, error)
	// Resolve marks a request PAID or REJECTED inside the resolution
	// transaction. Only PENDING rows transition.
	Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, paidAt *time.Time) error
}

// UnlockRepository marks content as unlocked for a user.
type UnlockRepository interface {
	MarkUnlocked(ctx context.Context, tx pgx.Tx, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) error
	IsUnlocked(ctx context.Context, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) (bool, error)
}

// SubscriptionRepository creates or renews a user's subscription to a creator.
type SubscriptionRepository interface {
	CreateOrRenew(ctx context.Context, tx pgx.Tx, userID, creatorID uuid.UUID, period time.Duration) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
