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

// RateLimitConfig bounds checkout creations per user.
type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	paymentRepo ports.PaymentRepository
	registry    ports.ProviderRegistry
	limiter     ports.RateLimiter
	transactor  ports.DBTransactor
	rateCfg     RateLimitConfig
	log         zerolog.Logger
	metrics     *Metrics
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	registry ports.ProviderRegistry,
	limiter ports.RateLimiter,
	transactor ports.DBTransactor,
	rateCfg RateLimitConfig,
	log zerolog.Logger,
	metrics *Metrics,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo: paymentRepo,
		registry:    registry,
		limiter:     limiter,
		transactor:  transactor,
		rateCfg:     rateCfg,
		log:         log,
		metrics:     metrics,
	}
}

// CreatePending initiates a checkout with the provider and records the
// payment as PENDING.
func (s *PaymentServiceImpl) CreatePending(ctx context.Context, in ports.CreatePaymentInput) (*domain.Payment, error) {
	if in.AmountCents <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if in.Currency == "" {
		return nil, apperror.Validation("currency is required")
	}

	provider, err := s.registry.Get(in.Provider)
	if err != nil {
		return nil, err
	}

	key := "payment:create:" + in.UserID.String()
	allowed, err := s.limiter.Allow(ctx, key, s.rateCfg.Limit, s.rateCfg.Window)
	if err != nil {
		// A broken limiter should not block checkouts.
		s.log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
	} else if !allowed {
		return nil, apperror.ErrRateLimited()
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:          uuid.New(),
		UserID:      in.UserID,
		Purpose:     in.Purpose,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Provider:    in.Provider,
		Status:      domain.PaymentPending,
		Metadata:    domain.Metadata{}.Merge(in.Metadata),
		CreatedAt:   now,
	}

	checkout, err := provider.CreateCheckout(ctx, payment)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create checkout with %s: %w", in.Provider, err))
	}
	payment.ProviderRef = checkout.ProviderRef
	if checkout.Nonce != "" {
		payment.Metadata[domain.MetaCheckoutNonce] = checkout.Nonce
	}
	if checkout.PayURL != "" {
		payment.Metadata[domain.MetaPayURL] = checkout.PayURL
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	s.metrics.PaymentsCreated.WithLabelValues(in.Provider, string(in.Purpose)).Inc()
	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("user_id", in.UserID.String()).
		Str("provider", in.Provider).
		Str("purpose", string(in.Purpose)).
		Int64("amount_cents", in.AmountCents).
		Msg("pending payment created")

	return payment, nil
}

// TransitionStatus moves a payment to a new canonical status under a row
// lock. A same-status transition only merges the metadata patch.
func (s *PaymentServiceImpl) TransitionStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus, patch domain.Metadata) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, dbTx, paymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrPaymentNotFound()
	}

	if payment.Status != status && !payment.CanTransitionTo(status) {
		return apperror.ErrIllegalStatusTransition(string(payment.Status), string(status))
	}

	if err := s.paymentRepo.UpdateStatus(ctx, dbTx, paymentID, status, payment.Metadata.Merge(patch)); err != nil {
		return apperror.InternalError(fmt.Errorf("update payment status: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("payment_id", paymentID.String()).
		Str("from", string(payment.Status)).
		Str("to", string(status)).
		Msg("payment status transitioned")
	return nil
}

// GetPayment fetches a payment by id.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	return payment, nil
}
