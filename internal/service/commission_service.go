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

// CommissionServiceImpl implements ports.CommissionService. One completed
// sale fans out into at most three earning records: the creator's share, the
// agency's cut of it, and one secondary commission resolved from the sale's
// attribution.
type CommissionServiceImpl struct {
	earningRepo ports.EarningRepository
	creatorRepo ports.CreatorRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
	metrics     *Metrics
}

// NewCommissionService creates a new CommissionServiceImpl.
func NewCommissionService(
	earningRepo ports.EarningRepository,
	creatorRepo ports.CreatorRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
	metrics *Metrics,
) *CommissionServiceImpl {
	return &CommissionServiceImpl{
		earningRepo: earningRepo,
		creatorRepo: creatorRepo,
		transactor:  transactor,
		log:         log,
		metrics:     metrics,
	}
}

// Distribute splits a sale in its own transaction.
func (s *CommissionServiceImpl) Distribute(ctx context.Context, in ports.DistributeInput) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.DistributeTx(ctx, dbTx, in); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// DistributeTx splits a sale inside an existing transaction. A repeated
// origin is a no-op, which makes the fan-out safe to retry.
func (s *CommissionServiceImpl) DistributeTx(ctx context.Context, tx pgx.Tx, in ports.DistributeInput) error {
	if in.GrossCents <= 0 {
		return apperror.ErrInvalidAmount()
	}

	exists, err := s.earningRepo.ExistsByOrigin(ctx, tx, in.Origin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check origin: %w", err))
	}
	if exists {
		s.log.Debug().
			Str("origin_type", string(in.Origin.Type)).
			Str("origin_id", in.Origin.ID.String()).
			Msg("sale already distributed, skipping")
		return nil
	}

	creator, err := s.creatorRepo.GetBySlug(ctx, in.CreatorSlug)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get creator: %w", err))
	}
	if creator == nil {
		return apperror.ErrNotFound("creator")
	}

	// Out-of-range fee config falls back to the safe split: everything to
	// the creator.
	feePct := creator.PlatformFeePct
	if !domain.ValidSharePct(feePct) {
		s.log.Warn().
			Str("creator_id", creator.ID.String()).
			Int64("platform_fee_pct", feePct).
			Msg("invalid platform fee, defaulting to 0")
		feePct = 0
	}
	creatorNet := in.GrossCents * (100 - feePct) / 100

	var agencyCut int64
	if creator.AgencyID != nil {
		agency, err := s.creatorRepo.GetAgency(ctx, *creator.AgencyID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get agency: %w", err))
		}
		if agency != nil {
			sharePct := agency.RevenueSharePct
			if !domain.ValidSharePct(sharePct) {
				s.log.Warn().
					Str("agency_id", agency.ID.String()).
					Int64("revenue_share_pct", sharePct).
					Msg("invalid agency share, defaulting to 0")
				sharePct = 0
			}
			agencyCut = creatorNet * sharePct / 100
			if agencyCut > 0 {
				if err := s.record(ctx, tx, domain.BeneficiaryAgency, agency.ID, domain.RoleAgencyCut, in, agencyCut); err != nil {
					return err
				}
			}
		}
	}

	creatorTake := creatorNet - agencyCut
	if err := s.record(ctx, tx, domain.BeneficiaryCreator, creator.ID, domain.RoleCreatorShare, in, creatorTake); err != nil {
		return err
	}

	if err := s.resolveSecondary(ctx, tx, creator, in); err != nil {
		return err
	}

	s.log.Info().
		Str("creator_slug", in.CreatorSlug).
		Str("sale_type", string(in.SaleType)).
		Int64("gross_cents", in.GrossCents).
		Int64("creator_cents", creatorTake).
		Int64("agency_cents", agencyCut).
		Msg("sale distributed")
	return nil
}

// resolveSecondary walks the attribution chain: a human chatter first, then
// an AI persona credited to its owner, then nothing. At most one secondary
// record is created.
func (s *CommissionServiceImpl) resolveSecondary(ctx context.Context, tx pgx.Tx, creator *domain.Creator, in ports.DistributeInput) error {
	switch {
	case in.Attribution.ChatterID != nil:
		chatter, err := s.creatorRepo.GetChatter(ctx, *in.Attribution.ChatterID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get chatter: %w", err))
		}
		if chatter == nil || !domain.ValidSharePct(chatter.CommissionPct) {
			return nil
		}
		cut := in.GrossCents * chatter.CommissionPct / 100
		if cut <= 0 {
			return nil
		}
		return s.record(ctx, tx, domain.BeneficiaryChatter, chatter.ID, domain.RoleSecondary, in, cut)

	case in.Attribution.PersonaID != nil:
		persona, err := s.creatorRepo.GetPersona(ctx, *in.Attribution.PersonaID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get persona: %w", err))
		}
		if persona == nil || !domain.ValidSharePct(persona.CommissionPct) {
			return nil
		}
		cut := in.GrossCents * persona.CommissionPct / 100
		if cut <= 0 {
			return nil
		}
		// The persona's commission credits its owner: the agency when one
		// is set, otherwise the creator.
		if persona.AgencyID != nil {
			return s.record(ctx, tx, domain.BeneficiaryAgency, *persona.AgencyID, domain.RoleSecondary, in, cut)
		}
		return s.record(ctx, tx, domain.BeneficiaryCreator, creator.ID, domain.RoleSecondary, in, cut)
	}
	return nil
}

// record creates one earning record and credits the beneficiary's pending
// payout balance, atomically with the caller's transaction.
func (s *CommissionServiceImpl) record(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, role domain.EarningRole, in ports.DistributeInput, netCents int64) error {
	rec := &domain.EarningRecord{
		ID:              uuid.New(),
		BeneficiaryType: bt,
		BeneficiaryID:   id,
		Role:            role,
		SaleType:        in.SaleType,
		GrossCents:      in.GrossCents,
		NetCents:        netCents,
		OriginType:      in.Origin.Type,
		OriginID:        in.Origin.ID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.earningRepo.Create(ctx, tx, rec); err != nil {
		return apperror.InternalError(fmt.Errorf("create earning record: %w", err))
	}
	if err := s.creatorRepo.AddPending(ctx, tx, bt, id, netCents); err != nil {
		return apperror.InternalError(fmt.Errorf("credit pending balance: %w", err))
	}
	s.metrics.EarningsDistributed.WithLabelValues(string(bt)).Inc()
	return nil
}
