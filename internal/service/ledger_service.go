package service

import (
	"context"
	"fmt"
	"time"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
	metrics    *Metrics
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
	metrics *Metrics,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
		metrics:    metrics,
	}
}

// AddCredits credits one pool in its own transaction.
func (s *LedgerServiceImpl) AddCredits(ctx context.Context, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, pool domain.CreditPool, ref *domain.LedgerRef) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	total, err := s.AddCreditsTx(ctx, dbTx, userID, amountCents, kind, pool, ref)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return total, nil
}

// AddCreditsTx credits one pool inside an existing transaction.
func (s *LedgerServiceImpl) AddCreditsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, pool domain.CreditPool, ref *domain.LedgerRef) (int64, error) {
	if amountCents <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}

	wallet, err := s.lockOrCreateWallet(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	var paidDelta, bonusDelta int64
	if pool == domain.PoolBonus {
		bonusDelta = amountCents
	} else {
		paidDelta = amountCents
	}

	newPaid := wallet.PaidCents + paidDelta
	newBonus := wallet.BonusCents + bonusDelta

	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet.ID, newPaid, newBonus); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}
	if err := s.appendEntry(ctx, tx, wallet.ID, kind, paidDelta, bonusDelta, newPaid, newBonus, ref); err != nil {
		return 0, err
	}

	s.metrics.LedgerEntries.WithLabelValues(string(kind)).Inc()
	s.log.Info().
		Str("user_id", userID.String()).
		Str("kind", string(kind)).
		Str("pool", string(pool)).
		Int64("amount_cents", amountCents).
		Msg("credits added")

	return newPaid + newBonus, nil
}

// SpendCredits debits the wallet in its own transaction.
func (s *LedgerServiceImpl) SpendCredits(ctx context.Context, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, allowBonus bool, ref *domain.LedgerRef) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.SpendCreditsTx(ctx, dbTx, userID, amountCents, kind, allowBonus, ref)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

// SpendCreditsTx debits the wallet inside an existing transaction, bonus
// pool first when the kind allows it.
func (s *LedgerServiceImpl) SpendCreditsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountCents int64, kind domain.TransactionKind, allowBonus bool, ref *domain.LedgerRef) (*domain.LedgerEntry, error) {
	if amountCents <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if allowBonus && !kind.AllowsBonus() {
		return nil, apperror.ErrBonusNotAllowed()
	}

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrInsufficientCredits()
	}
	if wallet.Available(allowBonus) < amountCents {
		return nil, apperror.ErrInsufficientCredits()
	}

	// Bonus credits drain first so paid credits stay cashable longest.
	var bonusSpend int64
	if allowBonus {
		bonusSpend = wallet.BonusCents
		if bonusSpend > amountCents {
			bonusSpend = amountCents
		}
	}
	paidSpend := amountCents - bonusSpend

	newPaid := wallet.PaidCents - paidSpend
	newBonus := wallet.BonusCents - bonusSpend

	if err := s.walletRepo.UpdateBalances(ctx, tx, wallet.ID, newPaid, newBonus); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	entry := newEntry(wallet.ID, kind, -paidSpend, -bonusSpend, newPaid, newBonus, ref)
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	s.metrics.LedgerEntries.WithLabelValues(string(kind)).Inc()
	s.log.Info().
		Str("user_id", userID.String()).
		Str("kind", string(kind)).
		Int64("paid_spend", paidSpend).
		Int64("bonus_spend", bonusSpend).
		Msg("credits spent")

	return entry, nil
}

// GetWallet returns the user's wallet; users with no ledger activity yet get
// a zero-balance view.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return &domain.Wallet{UserID: userID}, nil
	}
	return wallet, nil
}

// CheckReplay verifies that summing the entry log reproduces the wallet's
// stored balances, per pool.
func (s *LedgerServiceImpl) CheckReplay(ctx context.Context, userID uuid.UUID) (bool, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return false, apperror.ErrNotFound("wallet")
	}

	paidSum, bonusSum, err := s.ledgerRepo.SumDeltas(ctx, wallet.ID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("sum ledger deltas: %w", err))
	}

	ok := paidSum == wallet.PaidCents && bonusSum == wallet.BonusCents
	if !ok {
		s.log.Error().
			Str("wallet_id", wallet.ID.String()).
			Int64("paid_sum", paidSum).
			Int64("paid_balance", wallet.PaidCents).
			Int64("bonus_sum", bonusSum).
			Int64("bonus_balance", wallet.BonusCents).
			Msg("ledger replay mismatch")
	}
	return ok, nil
}

// lockOrCreateWallet locks the user's wallet row, creating it first when the
// user has no ledger activity yet.
func (s *LedgerServiceImpl) lockOrCreateWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	fresh := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The insert tolerates a concurrent first credit for the same user;
	// re-locking returns whichever row won.
	if err := s.walletRepo.Create(ctx, tx, fresh); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	wallet, err = s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.InternalError(fmt.Errorf("wallet vanished after create: %s", userID))
	}
	return wallet, nil
}

func (s *LedgerServiceImpl) appendEntry(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.TransactionKind, paidDelta, bonusDelta, paidBalance, bonusBalance int64, ref *domain.LedgerRef) error {
	entry := newEntry(walletID, kind, paidDelta, bonusDelta, paidBalance, bonusBalance, ref)
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}
	return nil
}

func newEntry(walletID uuid.UUID, kind domain.TransactionKind, paidDelta, bonusDelta, paidBalance, bonusBalance int64, ref *domain.LedgerRef) *domain.LedgerEntry {
	e := &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         kind,
		PaidDelta:    paidDelta,
		BonusDelta:   bonusDelta,
		PaidBalance:  paidBalance,
		BonusBalance: bonusBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if ref != nil {
		e.RefType = &ref.Type
		e.RefID = &ref.ID
	}
	return e
}
