package service

import (
	"context"
	"fmt"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// SpendServiceImpl implements ports.SpendService: one transaction covers the
// wallet debit, the unlock marker and the commission fan-out, so a content
// purchase either fully happens or not at all.
type SpendServiceImpl struct {
	ledger     ports.LedgerService
	commission ports.CommissionService
	unlockRepo ports.UnlockRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewSpendService creates a new SpendServiceImpl.
func NewSpendService(
	ledger ports.LedgerService,
	commission ports.CommissionService,
	unlockRepo ports.UnlockRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SpendServiceImpl {
	return &SpendServiceImpl{
		ledger:     ledger,
		commission: commission,
		unlockRepo: unlockRepo,
		transactor: transactor,
		log:        log,
	}
}

// Spend debits the wallet for a content purchase and fans the sale out.
func (s *SpendServiceImpl) Spend(ctx context.Context, in ports.SpendInput) (*domain.LedgerEntry, error) {
	saleType, err := saleTypeForKind(in.Kind)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ref := &domain.LedgerRef{Type: in.RefType, ID: in.RefID}
	entry, err := s.ledger.SpendCreditsTx(ctx, dbTx, in.UserID, in.AmountCents, in.Kind, in.Kind.AllowsBonus(), ref)
	if err != nil {
		return nil, err
	}

	// Tips buy nothing, so there is nothing to unlock.
	if in.Kind != domain.KindSpendTip {
		if err := s.unlockRepo.MarkUnlocked(ctx, dbTx, in.UserID, in.RefType, in.RefID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("mark unlocked: %w", err))
		}
	}

	if err := s.commission.DistributeTx(ctx, dbTx, ports.DistributeInput{
		CreatorSlug: in.CreatorSlug,
		GrossCents:  in.AmountCents,
		SaleType:    saleType,
		Attribution: in.Attribution,
		Origin:      domain.Origin{Type: domain.OriginLedgerSpend, ID: entry.ID},
	}); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", in.UserID.String()).
		Str("creator_slug", in.CreatorSlug).
		Str("kind", string(in.Kind)).
		Int64("amount_cents", in.AmountCents).
		Msg("content spend completed")
	return entry, nil
}

func saleTypeForKind(kind domain.TransactionKind) (domain.SaleType, error) {
	switch kind {
	case domain.KindSpendMedia:
		return domain.SaleMediaUnlock, nil
	case domain.KindSpendPPV:
		return domain.SalePPV, nil
	case domain.KindSpendTip:
		return domain.SaleTip, nil
	}
	return "", apperror.Validation("kind is not a spend kind")
}
