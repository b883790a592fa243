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

func newTestEarning(beneficiaryID uuid.UUID) *domain.EarningRecord {
	return &domain.EarningRecord{
		ID:              uuid.New(),
		BeneficiaryType: domain.BeneficiaryCreator,
		BeneficiaryID:   beneficiaryID,
		Role:            domain.RoleCreatorShare,
		SaleType:        domain.SaleTip,
		GrossCents:      1000,
		NetCents:        800,
		OriginType:      domain.OriginPayment,
		OriginID:        uuid.New(),
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestEarningRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEarningRepo(mock)
	rec := newTestEarning(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO earning_records").
		WithArgs(rec.ID, rec.BeneficiaryType, rec.BeneficiaryID, rec.Role, rec.SaleType,
			rec.GrossCents, rec.NetCents, rec.OriginType, rec.OriginID, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEarningRepo_ExistsByOrigin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEarningRepo(mock)
	origin := domain.Origin{Type: domain.OriginPayment, ID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(origin.Type, origin.ID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	exists, err := repo.ExistsByOrigin(context.Background(), tx, origin)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEarningRepo_ListByBeneficiary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEarningRepo(mock)
	rec := newTestEarning(uuid.New())

	columns := []string{"id", "beneficiary_type", "beneficiary_id", "role", "sale_type",
		"gross_cents", "net_cents", "origin_type", "origin_id", "created_at"}
	mock.ExpectQuery("SELECT .+ FROM earning_records WHERE beneficiary_type").
		WithArgs(rec.BeneficiaryType, rec.BeneficiaryID).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			rec.ID, rec.BeneficiaryType, rec.BeneficiaryID, rec.Role, rec.SaleType,
			rec.GrossCents, rec.NetCents, rec.OriginType, rec.OriginID, rec.CreatedAt,
		))

	records, err := repo.ListByBeneficiary(context.Background(), domain.BeneficiaryCreator, rec.BeneficiaryID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(800), records[0].NetCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
