package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, beneficiary_type, beneficiary_id, amount_cents, destination, status, created_at, paid_at`

// Create inserts a new payout request within a transaction.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error {
	query := `INSERT INTO payout_requests (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		req.ID, req.BeneficiaryType, req.BeneficiaryID, req.AmountCents,
		req.Destination, req.Status, req.CreatedAt, req.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// GetByID fetches a payout request.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return scanPayout(r.pool.QueryRow(ctx, query, id))
}

// HasPending reports whether the beneficiary has an unresolved request.
func (r *PayoutRepo) HasPending(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM payout_requests
		WHERE beneficiary_type = $1 AND beneficiary_id = $2 AND status = 'PENDING')`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, bt, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending payout: %w", err)
	}
	return exists, nil
}

// GetLatestByBeneficiary returns the most recently created request for the
// beneficiary regardless of outcome, or nil if none exists.
func (r *PayoutRepo) GetLatestByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests
		WHERE beneficiary_type = $1 AND beneficiary_id = $2
		ORDER BY created_at DESC LIMIT 1`
	return scanPayout(r.pool.QueryRow(ctx, query, bt, id))
}

// Resolve marks a request PAID or REJECTED. Only PENDING rows transition;
// resolving an already-resolved request is rejected.
func (r *PayoutRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, paidAt *time.Time) error {
	query := `UPDATE payout_requests SET status = $1, paid_at = $2 WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, status, paidAt, id)
	if err != nil {
		return fmt.Errorf("resolve payout request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout request not pending: %s", id)
	}
	return nil
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	p := &domain.PayoutRequest{}
	err := row.Scan(
		&p.ID, &p.BeneficiaryType, &p.BeneficiaryID, &p.AmountCents,
		&p.Destination, &p.Status, &p.CreatedAt, &p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payout request: %w", err)
	}
	return p, nil
}
