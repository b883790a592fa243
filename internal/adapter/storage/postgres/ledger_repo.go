package postgres

import (
	"context"
	"fmt"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are append-only;
// there is no update or delete path.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts one immutable ledger entry within a transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, wallet_id, kind, paid_delta, bonus_delta,
		paid_balance, bonus_balance, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Kind, e.PaidDelta, e.BonusDelta,
		e.PaidBalance, e.BonusBalance, e.RefType, e.RefID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// ListByWallet returns all entries for a wallet, oldest first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT id, wallet_id, kind, paid_delta, bonus_delta,
		paid_balance, bonus_balance, ref_type, ref_id, created_at
		FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.Kind, &e.PaidDelta, &e.BonusDelta,
			&e.PaidBalance, &e.BonusBalance, &e.RefType, &e.RefID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumDeltas reproduces the wallet balances by summing the full log.
func (r *LedgerRepo) SumDeltas(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	query := `SELECT COALESCE(SUM(paid_delta), 0), COALESCE(SUM(bonus_delta), 0)
		FROM ledger_entries WHERE wallet_id = $1`

	var paid, bonus int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&paid, &bonus); err != nil {
		return 0, 0, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return paid, bonus, nil
}
