package service

import (
	"context"
	"fmt"
	"time"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PayoutConfig tunes the payout request gates.
type PayoutConfig struct {
	MinimumCents int64
	Cooldown     time.Duration
}

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	payoutRepo  ports.PayoutRepository
	creatorRepo ports.CreatorRepository
	transactor  ports.DBTransactor
	cfg         PayoutConfig
	log         zerolog.Logger
	metrics     *Metrics
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	payoutRepo ports.PayoutRepository,
	creatorRepo ports.CreatorRepository,
	transactor ports.DBTransactor,
	cfg PayoutConfig,
	log zerolog.Logger,
	metrics *Metrics,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo:  payoutRepo,
		creatorRepo: creatorRepo,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
		metrics:     metrics,
	}
}

// RequestPayout runs the gate sequence and, when all gates pass, snapshots
// the beneficiary's full pending balance into a PENDING request. The balance
// itself is left untouched until the request is resolved PAID.
func (s *PayoutServiceImpl) RequestPayout(ctx context.Context, in ports.PayoutInput) (*domain.PayoutRequest, error) {
	walletOnFile, err := s.checkBeneficiary(ctx, in)
	if err != nil {
		return nil, err
	}

	destination := in.Destination
	if destination == "" {
		destination = walletOnFile
	}
	if destination == "" {
		return nil, apperror.Validation("payout destination required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	pending, err := s.creatorRepo.GetPendingForUpdate(ctx, dbTx, in.BeneficiaryType, in.BeneficiaryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pending balance: %w", err))
	}
	if pending < s.cfg.MinimumCents {
		return nil, apperror.ErrPayoutBelowMinimum(s.cfg.MinimumCents)
	}

	hasPending, err := s.payoutRepo.HasPending(ctx, in.BeneficiaryType, in.BeneficiaryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check pending request: %w", err))
	}
	if hasPending {
		return nil, apperror.ErrPayoutAlreadyPending()
	}

	// Cooldown counts from the last request's creation, whatever became of it.
	latest, err := s.payoutRepo.GetLatestByBeneficiary(ctx, in.BeneficiaryType, in.BeneficiaryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get latest request: %w", err))
	}
	now := time.Now().UTC()
	if latest != nil && now.Sub(latest.CreatedAt) < s.cfg.Cooldown {
		return nil, apperror.ErrPayoutCooldownActive()
	}

	if in.Destination != "" && in.Destination != walletOnFile {
		if err := s.creatorRepo.UpdatePayoutWallet(ctx, dbTx, in.BeneficiaryType, in.BeneficiaryID, in.Destination); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update payout wallet: %w", err))
		}
	}

	req := &domain.PayoutRequest{
		ID:              uuid.New(),
		BeneficiaryType: in.BeneficiaryType,
		BeneficiaryID:   in.BeneficiaryID,
		AmountCents:     pending,
		Destination:     destination,
		Status:          domain.PayoutPending,
		CreatedAt:       now,
	}
	if err := s.payoutRepo.Create(ctx, dbTx, req); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payout request: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.PayoutsRequested.Inc()
	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("beneficiary_type", string(in.BeneficiaryType)).
		Str("beneficiary_id", in.BeneficiaryID.String()).
		Int64("amount_cents", pending).
		Msg("payout requested")
	return req, nil
}

// ResolvePayout finalizes a PENDING request as PAID or REJECTED. PAID
// deducts the requested amount from the pending balance, which cannot have
// shrunk below it: earnings only accrue, and HasPending blocks a second
// request while this one is open. REJECTED leaves the balance as it was, so
// nothing is lost and the beneficiary can request again after the cooldown.
func (s *PayoutServiceImpl) ResolvePayout(ctx context.Context, id uuid.UUID, status domain.PayoutStatus) (*domain.PayoutRequest, error) {
	if status != domain.PayoutPaid && status != domain.PayoutRejected {
		return nil, apperror.Validation("payout resolution must be PAID or REJECTED")
	}

	req, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payout request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("payout request")
	}
	if req.Status != domain.PayoutPending {
		return nil, apperror.ErrIllegalStatusTransition(string(req.Status), string(status))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var paidAt *time.Time
	if status == domain.PayoutPaid {
		now := time.Now().UTC()
		paidAt = &now
	}
	// The conditional UPDATE is the serialization point: a concurrent
	// resolution of the same request loses here.
	if err := s.payoutRepo.Resolve(ctx, dbTx, id, status, paidAt); err != nil {
		return nil, apperror.ErrIllegalStatusTransition(string(domain.PayoutPending), string(status))
	}
	if status == domain.PayoutPaid {
		if err := s.creatorRepo.AddPending(ctx, dbTx, req.BeneficiaryType, req.BeneficiaryID, -req.AmountCents); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("consume pending balance: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	req.Status = status
	req.PaidAt = paidAt
	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("status", string(status)).
		Int64("amount_cents", req.AmountCents).
		Msg("payout resolved")
	return req, nil
}

// checkBeneficiary loads the beneficiary's profile, applies the agency
// management gate, and returns the payout wallet on file.
func (s *PayoutServiceImpl) checkBeneficiary(ctx context.Context, in ports.PayoutInput) (string, error) {
	switch in.BeneficiaryType {
	case domain.BeneficiaryCreator:
		creator, err := s.creatorRepo.GetCreator(ctx, in.BeneficiaryID)
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("get creator: %w", err))
		}
		if creator == nil {
			return "", apperror.ErrNotFound("creator")
		}
		if creator.AgencyManaged {
			return "", apperror.ErrPayoutAgencyManaged()
		}
		return creator.PayoutWallet, nil

	case domain.BeneficiaryAgency:
		agency, err := s.creatorRepo.GetAgency(ctx, in.BeneficiaryID)
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("get agency: %w", err))
		}
		if agency == nil {
			return "", apperror.ErrNotFound("agency")
		}
		return agency.PayoutWallet, nil

	case domain.BeneficiaryChatter:
		chatter, err := s.creatorRepo.GetChatter(ctx, in.BeneficiaryID)
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("get chatter: %w", err))
		}
		if chatter == nil {
			return "", apperror.ErrNotFound("chatter")
		}
		return chatter.PayoutWallet, nil
	}
	return "", apperror.Validation("unknown beneficiary type")
}
