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

func newTestPayment(userID uuid.UUID) *domain.Payment {
	return &domain.Payment{
		ID:          uuid.New(),
		UserID:      userID,
		Purpose:     domain.PurposeCredits,
		AmountCents: 5000,
		Currency:    "USD",
		Provider:    "coingate",
		ProviderRef: "cg-1001",
		Status:      domain.PaymentPending,
		Metadata:    domain.Metadata{domain.MetaCheckoutNonce: "nonce-1"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func paymentTestColumns() []string {
	return []string{"id", "user_id", "purpose", "amount_cents", "currency",
		"provider", "provider_ref", "status", "metadata", "created_at"}
}

func paymentRow(p *domain.Payment) *pgxmock.Rows {
	return pgxmock.NewRows(paymentTestColumns()).AddRow(
		p.ID, p.UserID, p.Purpose, p.AmountCents, p.Currency,
		p.Provider, p.ProviderRef, p.Status, p.Metadata, p.CreatedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment(uuid.New())

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.UserID, p.Purpose, p.AmountCents, p.Currency,
			p.Provider, p.ProviderRef, p.Status, p.Metadata, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, "nonce-1", result.Metadata[domain.MetaCheckoutNonce])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(paymentTestColumns()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByProviderRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM payments WHERE provider").
		WithArgs(p.Provider, p.ProviderRef).
		WillReturnRows(paymentRow(p))

	result, err := repo.GetByProviderRef(context.Background(), "coingate", "cg-1001")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM payments WHERE id .+ FOR UPDATE").
		WithArgs(p.ID).
		WillReturnRows(paymentRow(p))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()
	metadata := domain.Metadata{domain.MetaProcessedBy: "webhook"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentCompleted, metadata, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.PaymentCompleted, metadata)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(domain.PaymentFailed, domain.Metadata(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.PaymentFailed, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payment not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_ListPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	p := newTestPayment(uuid.New())
	since := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(since, 20).
		WillReturnRows(paymentRow(p))

	payments, err := repo.ListPending(context.Background(), since, 20)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, p.ID, payments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_ListPendingBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(cutoff, 20).
		WillReturnRows(pgxmock.NewRows(paymentTestColumns()))

	payments, err := repo.ListPendingBefore(context.Background(), cutoff, 20)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
