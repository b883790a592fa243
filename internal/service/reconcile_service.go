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

// ReconcileConfig tunes the poller and the expiry sweep.
type ReconcileConfig struct {
	BatchSize     int
	PendingWindow time.Duration // poller only revisits payments younger than this
	ExpireAfter   time.Duration // pending payments older than this are swept to EXPIRED
	DefaultPeriod time.Duration // subscription length when the metadata has none
}

// ReconcileServiceImpl implements ports.ReconcileService. Webhook deliveries
// and poller runs converge on ApplyCompletion, which is idempotent per
// payment, so the two paths can race freely.
type ReconcileServiceImpl struct {
	paymentRepo ports.PaymentRepository
	creatorRepo ports.CreatorRepository
	unlockRepo  ports.UnlockRepository
	subRepo     ports.SubscriptionRepository
	registry    ports.ProviderRegistry
	ledger      ports.LedgerService
	commission  ports.CommissionService
	transactor  ports.DBTransactor
	cfg         ReconcileConfig
	log         zerolog.Logger
	metrics     *Metrics
}

// NewReconcileService creates a new ReconcileServiceImpl.
func NewReconcileService(
	paymentRepo ports.PaymentRepository,
	creatorRepo ports.CreatorRepository,
	unlockRepo ports.UnlockRepository,
	subRepo ports.SubscriptionRepository,
	registry ports.ProviderRegistry,
	ledger ports.LedgerService,
	commission ports.CommissionService,
	transactor ports.DBTransactor,
	cfg ReconcileConfig,
	log zerolog.Logger,
	metrics *Metrics,
) *ReconcileServiceImpl {
	return &ReconcileServiceImpl{
		paymentRepo: paymentRepo,
		creatorRepo: creatorRepo,
		unlockRepo:  unlockRepo,
		subRepo:     subRepo,
		registry:    registry,
		ledger:      ledger,
		commission:  commission,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
		metrics:     metrics,
	}
}

// HandleCallback processes one provider webhook delivery. The callback's own
// status claim is never trusted: after verification the canonical status is
// fetched from the provider's API.
func (s *ReconcileServiceImpl) HandleCallback(ctx context.Context, providerName string, cb *ports.ProviderCallback) error {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return err
	}

	payment, err := s.paymentRepo.GetByProviderRef(ctx, providerName, cb.ProviderRef)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get payment by provider ref: %w", err))
	}
	if payment == nil {
		return apperror.ErrPaymentNotFound()
	}

	if err := provider.VerifyCallback(cb, payment); err != nil {
		s.log.Warn().
			Str("provider", providerName).
			Str("provider_ref", cb.ProviderRef).
			Msg("webhook verification failed")
		return err
	}

	raw, err := provider.GetStatus(ctx, cb.ProviderRef)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get provider status: %w", err))
	}
	mapped := provider.MapStatus(raw)

	s.log.Info().
		Str("provider", providerName).
		Str("payment_id", payment.ID.String()).
		Str("raw_status", raw).
		Str("mapped_status", string(mapped)).
		Msg("webhook verified")

	return s.applyStatus(ctx, payment.ID, mapped, raw, ports.TriggerWebhook)
}

// RunOnce polls pending payments against their providers and sweeps expired
// ones. Per-payment errors are counted, never abort the batch.
func (s *ReconcileServiceImpl) RunOnce(ctx context.Context) (*ports.ReconcileSummary, error) {
	s.metrics.ReconcileRuns.Inc()
	summary := &ports.ReconcileSummary{}
	now := time.Now().UTC()

	pending, err := s.paymentRepo.ListPending(ctx, now.Add(-s.cfg.PendingWindow), s.cfg.BatchSize)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending payments: %w", err))
	}

	for i := range pending {
		p := &pending[i]
		summary.Checked++
		s.metrics.ReconcileChecked.Inc()

		if err := s.checkOne(ctx, p, summary); err != nil {
			summary.Errors++
			s.metrics.ReconcileErrors.Inc()
			s.log.Error().Err(err).
				Str("payment_id", p.ID.String()).
				Str("provider", p.Provider).
				Msg("reconcile check failed")
		}
	}

	if err := s.sweepExpired(ctx, now, summary); err != nil {
		s.log.Error().Err(err).Msg("expiry sweep failed")
	}

	s.log.Info().
		Int("checked", summary.Checked).
		Int("completed", summary.Completed).
		Int("errors", summary.Errors).
		Int("expired", summary.Expired).
		Msg("reconcile run finished")
	return summary, nil
}

func (s *ReconcileServiceImpl) checkOne(ctx context.Context, p *domain.Payment, summary *ports.ReconcileSummary) error {
	provider, err := s.registry.Get(p.Provider)
	if err != nil {
		return err
	}
	raw, err := provider.GetStatus(ctx, p.ProviderRef)
	if err != nil {
		return fmt.Errorf("get provider status: %w", err)
	}

	mapped := provider.MapStatus(raw)
	if err := s.applyStatus(ctx, p.ID, mapped, raw, ports.TriggerPoller); err != nil {
		return err
	}
	if mapped == domain.PaymentCompleted {
		summary.Completed++
	}
	return nil
}

// sweepExpired transitions long-pending payments to EXPIRED.
func (s *ReconcileServiceImpl) sweepExpired(ctx context.Context, now time.Time, summary *ports.ReconcileSummary) error {
	stale, err := s.paymentRepo.ListPendingBefore(ctx, now.Add(-s.cfg.ExpireAfter), s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list stale payments: %w", err)
	}
	for i := range stale {
		p := &stale[i]
		if err := s.applyStatus(ctx, p.ID, domain.PaymentExpired, "", ports.TriggerPoller); err != nil {
			summary.Errors++
			s.metrics.ReconcileErrors.Inc()
			s.log.Error().Err(err).
				Str("payment_id", p.ID.String()).
				Msg("expiry transition failed")
			continue
		}
		summary.Expired++
		s.metrics.PaymentsExpired.Inc()
	}
	return nil
}

// ApplyCompletion atomically transitions the payment and applies its purpose
// effects exactly once.
func (s *ReconcileServiceImpl) ApplyCompletion(ctx context.Context, paymentID uuid.UUID, mapped domain.PaymentStatus, trigger ports.CompletionTrigger) error {
	return s.applyStatus(ctx, paymentID, mapped, "", trigger)
}

func (s *ReconcileServiceImpl) applyStatus(ctx context.Context, paymentID uuid.UUID, mapped domain.PaymentStatus, raw string, trigger ports.CompletionTrigger) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// The already-completed check must happen under the row lock: two
	// concurrent deliveries serialize here and the loser sees COMPLETED.
	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, dbTx, paymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrPaymentNotFound()
	}
	if payment.Status == domain.PaymentCompleted {
		return nil
	}

	patch := domain.Metadata{}
	if raw != "" {
		patch[domain.MetaLastRawStatus] = raw
	}

	switch mapped {
	case domain.PaymentPending, domain.PaymentPartiallyPaid:
		// Not final yet; PARTIALLY_PAID is recorded but the payment stays
		// PENDING until the remainder arrives or the sweep expires it.
		if payment.Status != domain.PaymentPending || len(patch) == 0 {
			return nil
		}
		if err := s.paymentRepo.UpdateStatus(ctx, dbTx, paymentID, domain.PaymentPending, payment.Metadata.Merge(patch)); err != nil {
			return apperror.InternalError(fmt.Errorf("record raw status: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return nil

	case domain.PaymentFailed, domain.PaymentExpired:
		// A redelivered terminal status is a defined no-op, not a
		// transition: erroring here would make the provider retry forever.
		if payment.Status == mapped {
			return nil
		}
		if !payment.CanTransitionTo(mapped) {
			return apperror.ErrIllegalStatusTransition(string(payment.Status), string(mapped))
		}
		if err := s.paymentRepo.UpdateStatus(ctx, dbTx, paymentID, mapped, payment.Metadata.Merge(patch)); err != nil {
			return apperror.InternalError(fmt.Errorf("update payment status: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return nil

	case domain.PaymentCompleted:
		if !payment.CanTransitionTo(domain.PaymentCompleted) {
			return apperror.ErrIllegalStatusTransition(string(payment.Status), string(domain.PaymentCompleted))
		}
		patch[domain.MetaProcessedAt] = time.Now().UTC().Format(time.RFC3339)
		patch[domain.MetaProcessedBy] = string(trigger)
		if err := s.paymentRepo.UpdateStatus(ctx, dbTx, paymentID, domain.PaymentCompleted, payment.Metadata.Merge(patch)); err != nil {
			return apperror.InternalError(fmt.Errorf("update payment status: %w", err))
		}
		if err := s.applyPurpose(ctx, dbTx, payment); err != nil {
			return err
		}
		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}

		s.metrics.PaymentsCompleted.WithLabelValues(string(trigger)).Inc()
		s.log.Info().
			Str("payment_id", paymentID.String()).
			Str("purpose", string(payment.Purpose)).
			Str("trigger", string(trigger)).
			Msg("payment completed")
		return nil
	}

	return apperror.InternalError(fmt.Errorf("unexpected mapped status %q", mapped))
}

// applyPurpose runs the purpose-specific side effects inside the completion
// transaction.
func (s *ReconcileServiceImpl) applyPurpose(ctx context.Context, dbTx pgx.Tx, p *domain.Payment) error {
	ref := &domain.LedgerRef{Type: domain.RefPayment, ID: p.ID}
	origin := domain.Origin{Type: domain.OriginPayment, ID: p.ID}

	switch p.Purpose {
	case domain.PurposeCredits:
		paid, bonus := domain.CreditsForPurchase(p.AmountCents)
		if _, err := s.ledger.AddCreditsTx(ctx, dbTx, p.UserID, paid, domain.KindPurchase, domain.PoolPaid, ref); err != nil {
			return err
		}
		if bonus > 0 {
			if _, err := s.ledger.AddCreditsTx(ctx, dbTx, p.UserID, bonus, domain.KindPurchaseBonus, domain.PoolBonus, ref); err != nil {
				return err
			}
		}
		return nil

	case domain.PurposeSubscription:
		creator, err := s.creatorBySlug(ctx, p)
		if err != nil {
			return err
		}
		period := s.billingPeriod(p)
		if err := s.subRepo.CreateOrRenew(ctx, dbTx, p.UserID, creator.ID, period); err != nil {
			return apperror.InternalError(fmt.Errorf("create or renew subscription: %w", err))
		}
		return s.distribute(ctx, dbTx, p, domain.SaleSubscription, origin)

	case domain.PurposeMediaPurchase:
		if err := s.markUnlocked(ctx, dbTx, p, domain.RefMedia); err != nil {
			return err
		}
		return s.distribute(ctx, dbTx, p, domain.SaleMediaUnlock, origin)

	case domain.PurposePPVUnlock:
		if err := s.markUnlocked(ctx, dbTx, p, domain.RefMessage); err != nil {
			return err
		}
		return s.distribute(ctx, dbTx, p, domain.SalePPV, origin)

	case domain.PurposeTip:
		return s.distribute(ctx, dbTx, p, domain.SaleTip, origin)
	}

	return apperror.InternalError(fmt.Errorf("unknown payment purpose %q", p.Purpose))
}

func (s *ReconcileServiceImpl) distribute(ctx context.Context, dbTx pgx.Tx, p *domain.Payment, saleType domain.SaleType, origin domain.Origin) error {
	return s.commission.DistributeTx(ctx, dbTx, ports.DistributeInput{
		CreatorSlug: p.Metadata[domain.MetaCreatorSlug],
		GrossCents:  p.AmountCents,
		SaleType:    saleType,
		Attribution: paymentAttribution(p),
		Origin:      origin,
	})
}

// paymentAttribution recovers the sale attribution stashed in the metadata
// bag at checkout. The handler validated the ids, so a parse failure just
// means no attribution was recorded.
func paymentAttribution(p *domain.Payment) domain.Attribution {
	var attr domain.Attribution
	if id, err := uuid.Parse(p.Metadata[domain.MetaChatterID]); err == nil {
		attr.ChatterID = &id
	}
	if id, err := uuid.Parse(p.Metadata[domain.MetaPersonaID]); err == nil {
		attr.PersonaID = &id
	}
	return attr
}

func (s *ReconcileServiceImpl) markUnlocked(ctx context.Context, dbTx pgx.Tx, p *domain.Payment, refType domain.LedgerRefType) error {
	targetID, err := uuid.Parse(p.Metadata[domain.MetaTargetRef])
	if err != nil {
		return apperror.InternalError(fmt.Errorf("payment %s has no usable target ref: %w", p.ID, err))
	}
	if err := s.unlockRepo.MarkUnlocked(ctx, dbTx, p.UserID, refType, targetID); err != nil {
		return apperror.InternalError(fmt.Errorf("mark unlocked: %w", err))
	}
	return nil
}

func (s *ReconcileServiceImpl) creatorBySlug(ctx context.Context, p *domain.Payment) (*domain.Creator, error) {
	slug := p.Metadata[domain.MetaCreatorSlug]
	creator, err := s.creatorRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get creator: %w", err))
	}
	if creator == nil {
		return nil, apperror.ErrNotFound("creator")
	}
	return creator, nil
}

// billingPeriod reads the subscription length from the payment metadata,
// falling back to the configured default.
func (s *ReconcileServiceImpl) billingPeriod(p *domain.Payment) time.Duration {
	if v := p.Metadata[domain.MetaBillingPeriod]; v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		s.log.Warn().
			Str("payment_id", p.ID.String()).
			Str("billing_period", v).
			Msg("unparseable billing period, using default")
	}
	return s.cfg.DefaultPeriod
}

// Run drives RunOnce on a fixed interval until the context is canceled.
func (s *ReconcileServiceImpl) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("reconcile poller started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconcile poller stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("reconcile run failed")
			}
		}
	}
}
