package postgres

import (
	"context"
	"fmt"
	"time"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UnlockRepo implements ports.UnlockRepository. Unlocks are permanent;
// re-marking an existing unlock is a no-op (completion replays must not
// fail here).
type UnlockRepo struct {
	pool Pool
}

// NewUnlockRepo creates a new UnlockRepo.
func NewUnlockRepo(pool Pool) *UnlockRepo {
	return &UnlockRepo{pool: pool}
}

// MarkUnlocked records that the user unlocked the referenced content.
func (r *UnlockRepo) MarkUnlocked(ctx context.Context, tx pgx.Tx, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) error {
	query := `INSERT INTO content_unlocks (user_id, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, ref_type, ref_id) DO NOTHING`

	if _, err := tx.Exec(ctx, query, userID, refType, refID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark unlocked: %w", err)
	}
	return nil
}

// IsUnlocked reports whether the user already unlocked the content.
func (r *UnlockRepo) IsUnlocked(ctx context.Context, userID uuid.UUID, refType domain.LedgerRefType, refID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM content_unlocks
		WHERE user_id = $1 AND ref_type = $2 AND ref_id = $3)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, refType, refID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return exists, nil
}
