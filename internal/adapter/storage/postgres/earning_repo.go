package postgres

import (
	"context"
	"fmt"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EarningRepo implements ports.EarningRepository. Rows are created once and
// never mutated; their existence per origin is the distribution idempotency
// guard.
type EarningRepo struct {
	pool Pool
}

// NewEarningRepo creates a new EarningRepo.
func NewEarningRepo(pool Pool) *EarningRepo {
	return &EarningRepo{pool: pool}
}

// Create inserts one earning record within a transaction.
func (r *EarningRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.EarningRecord) error {
	query := `INSERT INTO earning_records (id, beneficiary_type, beneficiary_id, role, sale_type,
		gross_cents, net_cents, origin_type, origin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.BeneficiaryType, rec.BeneficiaryID, rec.Role, rec.SaleType,
		rec.GrossCents, rec.NetCents, rec.OriginType, rec.OriginID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert earning record: %w", err)
	}
	return nil
}

// ExistsByOrigin reports whether any earning record references the origin.
// Runs inside the distribution transaction so the check-then-create pair is
// serialized against concurrent distributors.
func (r *EarningRepo) ExistsByOrigin(ctx context.Context, tx pgx.Tx, origin domain.Origin) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM earning_records WHERE origin_type = $1 AND origin_id = $2)`

	var exists bool
	if err := tx.QueryRow(ctx, query, origin.Type, origin.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check earning exists: %w", err)
	}
	return exists, nil
}

// ListByBeneficiary returns a beneficiary's earning records, newest first.
func (r *EarningRepo) ListByBeneficiary(ctx context.Context, bt domain.BeneficiaryType, id uuid.UUID) ([]domain.EarningRecord, error) {
	query := `SELECT id, beneficiary_type, beneficiary_id, role, sale_type,
		gross_cents, net_cents, origin_type, origin_id, created_at
		FROM earning_records WHERE beneficiary_type = $1 AND beneficiary_id = $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, bt, id)
	if err != nil {
		return nil, fmt.Errorf("list earning records: %w", err)
	}
	defer rows.Close()

	var records []domain.EarningRecord
	for rows.Next() {
		rec := domain.EarningRecord{}
		err := rows.Scan(
			&rec.ID, &rec.BeneficiaryType, &rec.BeneficiaryID, &rec.Role, &rec.SaleType,
			&rec.GrossCents, &rec.NetCents, &rec.OriginType, &rec.OriginID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan earning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earning records: %w", err)
	}
	return records, nil
}
