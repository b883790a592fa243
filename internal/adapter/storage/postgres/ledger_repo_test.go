package postgres

import (
	"context"
	"testing"
	"time"

	"creator-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(walletID uuid.UUID) *domain.LedgerEntry {
	refType := domain.RefMedia
	refID := uuid.New()
	return &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         domain.KindSpendMedia,
		PaidDelta:    -700,
		BonusDelta:   -500,
		PaidBalance:  300,
		BonusBalance: 0,
		RefType:      &refType,
		RefID:        &refID,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func ledgerColumns() []string {
	return []string{"id", "wallet_id", "kind", "paid_delta", "bonus_delta",
		"paid_balance", "bonus_balance", "ref_type", "ref_id", "created_at"}
}

func ledgerRow(e *domain.LedgerEntry) *pgxmock.Rows {
	return pgxmock.NewRows(ledgerColumns()).AddRow(
		e.ID, e.WalletID, e.Kind, e.PaidDelta, e.BonusDelta,
		e.PaidBalance, e.BonusBalance, e.RefType, e.RefID, e.CreatedAt,
	)
}

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.WalletID, e.Kind, e.PaidDelta, e.BonusDelta,
			e.PaidBalance, e.BonusBalance, e.RefType, e.RefID, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	e := newTestEntry(walletID)

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE wallet_id").
		WithArgs(walletID).
		WillReturnRows(ledgerRow(e))

	entries, err := repo.ListByWallet(context.Background(), walletID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.Equal(t, int64(-700), entries[0].PaidDelta)
	assert.Equal(t, int64(-500), entries[0].BonusDelta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByWallet_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE wallet_id").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(ledgerColumns()))

	entries, err := repo.ListByWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_SumDeltas(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"paid", "bonus"}).AddRow(int64(300), int64(0)))

	paid, bonus, err := repo.SumDeltas(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), paid)
	assert.Equal(t, int64(0), bonus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
