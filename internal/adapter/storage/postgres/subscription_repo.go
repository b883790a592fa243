package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepo implements ports.SubscriptionRepository. Renewal extends
// from the current expiry when the subscription is still active, otherwise
// from now.
type SubscriptionRepo struct {
	pool Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepo.
func NewSubscriptionRepo(pool Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// CreateOrRenew upserts the user's subscription to a creator with the given
// billing period.
func (r *SubscriptionRepo) CreateOrRenew(ctx context.Context, tx pgx.Tx, userID, creatorID uuid.UUID, period time.Duration) error {
	now := time.Now().UTC()
	query := `INSERT INTO subscriptions (user_id, creator_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, creator_id) DO UPDATE SET
			expires_at = GREATEST(subscriptions.expires_at, $4) + make_interval(secs => $5),
			updated_at = $4`

	_, err := tx.Exec(ctx, query, userID, creatorID, now.Add(period), now, period.Seconds())
	if err != nil {
		return fmt.Errorf("create or renew subscription: %w", err)
	}
	return nil
}
