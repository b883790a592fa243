package postgres

import (
	"context"
	"errors"
	"fmt"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreatorRepo implements ports.CreatorRepository over the profile tables.
// Profile configuration is written by the (external) profile service; this
// subsystem only reads it, plus owns the pending payout balance columns.
type CreatorRepo struct {
	pool Pool
}

// NewCreatorRepo creates a new CreatorRepo.
func NewCreatorRepo(pool Pool) *CreatorRepo {
	return &CreatorRepo{pool: pool}
}

const creatorColumns = `id, slug, platform_fee_pct, agency_id, agency_managed, pending_cents, payout_wallet`

// GetBySlug fetches a creator by slug.
func (r *CreatorRepo) GetBySlug(ctx context.Context, slug string) (*domain.Creator, error) {
	query := `SELECT ` + creatorColumns + ` FROM creators WHERE slug = $1`
	return scanCreator(r.pool.QueryRow(ctx, query, slug))
}

// GetCreator fetches a creator by id.
func (r *CreatorRepo) GetCreator(ctx context.Context, id uuid.UUID) (*domain.Creator, error) {
	query := `SELECT ` + creatorColumns + ` FROM creators WHERE id = $1`
	return scanCreator(r.pool.QueryRow(ctx, query, id))
}

// GetAgency fetches an agency by id.
func (r *CreatorRepo) GetAgency(ctx context.Context, id uuid.UUID) (*domain.Agency, error) {
	query := `SELECT id, name, revenue_share_pct, pending_cents, payout_wallet FROM agencies WHERE id = $1`

	a := &domain.Agency{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.RevenueSharePct, &a.PendingCents, &a.PayoutWallet,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}
	return a, nil
}

// GetChatter fetches a chatter by id.
func (r *CreatorRepo) GetChatter(ctx context.Context, id uuid.UUID) (*domain.Chatter, error) {
	query := `SELECT id, agency_id, commission_pct, pending_cents, payout_wallet FROM chatters WHERE id = $1`

	c := &domain.Chatter{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.AgencyID, &c.CommissionPct, &c.PendingCents, &c.PayoutWallet,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chatter: %w", err)
	}
	return c, nil
}

// GetPersona fetches an AI persona by id.
func (r *CreatorRepo) GetPersona(ctx context.Context, id uuid.UUID) (*domain.AIPersona, error) {
	query := `SELECT id, creator_id, agency_id, commission_pct FROM ai_personas WHERE id = $1`

	p := &domain.AIPersona{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.CreatorID, &p.AgencyID, &p.CommissionPct,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get persona: %w", err)
	}
	return p, nil
}

// AddPending adjusts a beneficiary's pending payout balance within a
// transaction. The balance check constraint rejects drops below zero.
func (r *CreatorRepo) AddPending(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, deltaCents int64) error {
	table, err := beneficiaryTable(bt)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET pending_cents = pending_cents + $1 WHERE id = $2`, table)

	tag, err := tx.Exec(ctx, query, deltaCents, id)
	if err != nil {
		return fmt.Errorf("add pending balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("beneficiary not found: %s %s", bt, id)
	}
	return nil
}

// GetPendingForUpdate locks the beneficiary row and returns its pending
// balance. This MUST be called within a transaction.
func (r *CreatorRepo) GetPendingForUpdate(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID) (int64, error) {
	table, err := beneficiaryTable(bt)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT pending_cents FROM %s WHERE id = $1 FOR UPDATE`, table)

	var pending int64
	if err := tx.QueryRow(ctx, query, id).Scan(&pending); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("beneficiary not found: %s %s", bt, id)
		}
		return 0, fmt.Errorf("get pending balance: %w", err)
	}
	return pending, nil
}

// UpdatePayoutWallet records the destination wallet on file.
func (r *CreatorRepo) UpdatePayoutWallet(ctx context.Context, tx pgx.Tx, bt domain.BeneficiaryType, id uuid.UUID, wallet string) error {
	table, err := beneficiaryTable(bt)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET payout_wallet = $1 WHERE id = $2`, table)

	if _, err := tx.Exec(ctx, query, wallet, id); err != nil {
		return fmt.Errorf("update payout wallet: %w", err)
	}
	return nil
}

func beneficiaryTable(bt domain.BeneficiaryType) (string, error) {
	switch bt {
	case domain.BeneficiaryCreator:
		return "creators", nil
	case domain.BeneficiaryAgency:
		return "agencies", nil
	case domain.BeneficiaryChatter:
		return "chatters", nil
	default:
		return "", fmt.Errorf("unknown beneficiary type: %s", bt)
	}
}

func scanCreator(row pgx.Row) (*domain.Creator, error) {
	c := &domain.Creator{}
	err := row.Scan(
		&c.ID, &c.Slug, &c.PlatformFeePct, &c.AgencyID, &c.AgencyManaged,
		&c.PendingCents, &c.PayoutWallet,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan creator: %w", err)
	}
	return c, nil
}
