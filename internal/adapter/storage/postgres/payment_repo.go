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

// PaymentRepo implements ports.PaymentRepository. The metadata bag is
// stored as JSONB; pgx marshals the map both ways.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, purpose, amount_cents, currency, provider, provider_ref, status, metadata, created_at`

// Create inserts a new payment attempt.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Purpose, p.AmountCents, p.Currency,
		p.Provider, p.ProviderRef, p.Status, p.Metadata, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderRef fetches a payment by its provider-assigned reference.
func (r *PaymentRepo) GetByProviderRef(ctx context.Context, provider, providerRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider = $1 AND provider_ref = $2`
	return scanPayment(r.pool.QueryRow(ctx, query, provider, providerRef))
}

// GetByIDForUpdate locks the payment row. This MUST be called within a
// transaction; the already-completed check happens under this lock.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(tx.QueryRow(ctx, query, id))
}

// UpdateStatus writes a new status and the merged metadata bag.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, metadata domain.Metadata) error {
	query := `UPDATE payments SET status = $1, metadata = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, metadata, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// ListPending returns PENDING payments created after since, oldest first.
func (r *PaymentRepo) ListPending(ctx context.Context, since time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = 'PENDING' AND created_at > $1
		ORDER BY created_at ASC LIMIT $2`
	return r.queryPayments(ctx, query, since, limit)
}

// ListPendingBefore returns PENDING payments created before cutoff, oldest
// first. Used by the expiry sweep.
func (r *PaymentRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`
	return r.queryPayments(ctx, query, cutoff, limit)
}

func (r *PaymentRepo) queryPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p := domain.Payment{}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Purpose, &p.AmountCents, &p.Currency,
			&p.Provider, &p.ProviderRef, &p.Status, &p.Metadata, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Purpose, &p.AmountCents, &p.Currency,
		&p.Provider, &p.ProviderRef, &p.Status, &p.Metadata, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
