package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creator-ledger/internal/adapter/http/dto"
	"creator-ledger/internal/adapter/http/middleware"
	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/internal/core/ports/mocks"
	"creator-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedContext(t *testing.T, method, path string, userID uuid.UUID, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		c.Set(middleware.CtxUserID, userID)
	}
	return c, w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data field: %s", w.Body.String())
	return data
}

// --- Wallet Handler Tests ---

func TestGetWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(ledgerSvc, nil)

	userID := uuid.New()
	ledgerSvc.EXPECT().GetWallet(gomock.Any(), userID).Return(&domain.Wallet{
		UserID:     userID,
		PaidCents:  1200,
		BonusCents: 300,
	}, nil)

	c, w := authedContext(t, http.MethodGet, "/api/v1/wallet", userID, nil)
	h.GetWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(1200), data["paid_cents"])
	assert.Equal(t, float64(300), data["bonus_cents"])
	assert.Equal(t, float64(1500), data["total_cents"])
}

func TestGetWallet_Unauthenticated(t *testing.T) {
	h := NewWalletHandler(nil, nil)
	c, w := authedContext(t, http.MethodGet, "/api/v1/wallet", uuid.Nil, nil)
	h.GetWallet(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSpend_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spendSvc := mocks.NewMockSpendService(ctrl)
	h := NewWalletHandler(nil, spendSvc)

	userID := uuid.New()
	mediaID := uuid.New()
	refType := domain.RefMedia

	spendSvc.EXPECT().Spend(gomock.Any(), ports.SpendInput{
		UserID:      userID,
		CreatorSlug: "luna",
		AmountCents: 800,
		Kind:        domain.KindSpendMedia,
		RefType:     domain.RefMedia,
		RefID:       mediaID,
	}).Return(&domain.LedgerEntry{
		ID:          uuid.New(),
		Kind:        domain.KindSpendMedia,
		PaidDelta:   -500,
		BonusDelta:  -300,
		PaidBalance: 700,
		RefType:     &refType,
		RefID:       &mediaID,
		CreatedAt:   time.Now().UTC(),
	}, nil)

	c, w := authedContext(t, http.MethodPost, "/api/v1/wallet/spend", userID, dto.SpendRequest{
		CreatorSlug: "luna",
		AmountCents: 800,
		Kind:        "SPEND_MEDIA_UNLOCK",
		RefType:     "MEDIA",
		RefID:       mediaID.String(),
	})
	h.Spend(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(-500), data["paid_delta"])
	assert.Equal(t, float64(-300), data["bonus_delta"])
	assert.Equal(t, "MEDIA", data["ref_type"])
}

func TestSpend_InsufficientCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spendSvc := mocks.NewMockSpendService(ctrl)
	h := NewWalletHandler(nil, spendSvc)

	userID := uuid.New()
	spendSvc.EXPECT().Spend(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientCredits())

	c, w := authedContext(t, http.MethodPost, "/api/v1/wallet/spend", userID, dto.SpendRequest{
		CreatorSlug: "luna",
		AmountCents: 99999,
		Kind:        "SPEND_PPV",
		RefType:     "MESSAGE",
		RefID:       uuid.New().String(),
	})
	h.Spend(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "LED_001")
}

func TestSpend_BothAttributionsRejected(t *testing.T) {
	h := NewWalletHandler(nil, nil)
	userID := uuid.New()
	chatter := uuid.New().String()
	persona := uuid.New().String()

	c, w := authedContext(t, http.MethodPost, "/api/v1/wallet/spend", userID, dto.SpendRequest{
		CreatorSlug: "luna",
		AmountCents: 100,
		Kind:        "SPEND_TIP",
		RefType:     "MESSAGE",
		RefID:       uuid.New().String(),
		ChatterID:   &chatter,
		PersonaID:   &persona,
	})
	h.Spend(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_001")
}

func TestSpend_InvalidKindRejectedByBinding(t *testing.T) {
	h := NewWalletHandler(nil, nil)
	userID := uuid.New()

	c, w := authedContext(t, http.MethodPost, "/api/v1/wallet/spend", userID, dto.SpendRequest{
		CreatorSlug: "luna",
		AmountCents: 100,
		Kind:        "PURCHASE",
		RefType:     "MEDIA",
		RefID:       uuid.New().String(),
	})
	h.Spend(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Payment Handler Tests ---

func TestCreateCheckout_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	paymentSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(paymentSvc)

	userID := uuid.New()
	paymentID := uuid.New()
	paymentSvc.EXPECT().CreatePending(gomock.Any(), ports.CreatePaymentInput{
		UserID:      userID,
		Purpose:     domain.PurposeCredits,
		AmountCents: 2500,
		Currency:    "USD",
		Provider:    "coingate",
		Metadata:    domain.Metadata{},
	}).Return(&domain.Payment{
		ID:          paymentID,
		UserID:      userID,
		Purpose:     domain.PurposeCredits,
		AmountCents: 2500,
		Currency:    "USD",
		Provider:    "coingate",
		Status:      domain.PaymentPending,
		Metadata:    domain.Metadata{domain.MetaPayURL: "https://pay.example/x"},
		CreatedAt:   time.Now().UTC(),
	}, nil)

	c, w := authedContext(t, http.MethodPost, "/api/v1/payments", userID, dto.CheckoutRequest{
		Purpose:     "CREDITS",
		AmountCents: 2500,
		Currency:    "USD",
		Provider:    "coingate",
	})
	h.CreateCheckout(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, paymentID.String(), data["id"])
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, "https://pay.example/x", data["pay_url"])
}

func TestCreateCheckout_AttributionStoredInMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	paymentSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(paymentSvc)

	userID := uuid.New()
	chatterID := uuid.New()
	paymentSvc.EXPECT().CreatePending(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in ports.CreatePaymentInput) (*domain.Payment, error) {
			assert.Equal(t, chatterID.String(), in.Metadata[domain.MetaChatterID])
			return &domain.Payment{
				ID:        uuid.New(),
				UserID:    userID,
				Status:    domain.PaymentPending,
				Metadata:  in.Metadata,
				CreatedAt: time.Now().UTC(),
			}, nil
		})

	c, w := authedContext(t, http.MethodPost, "/api/v1/payments", userID, dto.CheckoutRequest{
		Purpose:     "TIP",
		AmountCents: 500,
		Currency:    "USD",
		Provider:    "coingate",
		CreatorSlug: "luna",
		ChatterID:   chatterID.String(),
	})
	h.CreateCheckout(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateCheckout_BothAttributionsRejected(t *testing.T) {
	h := NewPaymentHandler(nil)
	userID := uuid.New()

	c, w := authedContext(t, http.MethodPost, "/api/v1/payments", userID, dto.CheckoutRequest{
		Purpose:     "TIP",
		AmountCents: 500,
		Currency:    "USD",
		Provider:    "coingate",
		CreatorSlug: "luna",
		ChatterID:   uuid.New().String(),
		PersonaID:   uuid.New().String(),
	})
	h.CreateCheckout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_001")
}

func TestCreateCheckout_TipNeedsCreator(t *testing.T) {
	h := NewPaymentHandler(nil)
	userID := uuid.New()

	c, w := authedContext(t, http.MethodPost, "/api/v1/payments", userID, dto.CheckoutRequest{
		Purpose:     "TIP",
		AmountCents: 500,
		Currency:    "USD",
		Provider:    "coingate",
	})
	h.CreateCheckout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "creator_slug")
}

func TestCreateCheckout_MediaNeedsTargetRef(t *testing.T) {
	h := NewPaymentHandler(nil)
	userID := uuid.New()

	c, w := authedContext(t, http.MethodPost, "/api/v1/payments", userID, dto.CheckoutRequest{
		Purpose:     "MEDIA_PURCHASE",
		AmountCents: 500,
		Currency:    "USD",
		Provider:    "coingate",
		CreatorSlug: "luna",
	})
	h.CreateCheckout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "target_ref")
}

func TestGetPayment_OtherUsersPaymentHidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	paymentSvc := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(paymentSvc)

	paymentID := uuid.New()
	paymentSvc.EXPECT().GetPayment(gomock.Any(), paymentID).Return(&domain.Payment{
		ID:     paymentID,
		UserID: uuid.New(), // someone else
	}, nil)

	c, w := authedContext(t, http.MethodGet, "/api/v1/payments/"+paymentID.String(), uuid.New(), nil)
	c.Params = gin.Params{{Key: "id", Value: paymentID.String()}}
	h.GetPayment(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_001")
}

// --- Webhook Handler Tests ---

func TestWebhookReceive_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockProviderRegistry(ctrl)
	provider := mocks.NewMockPaymentProvider(ctrl)
	reconcileSvc := mocks.NewMockReconcileService(ctrl)
	h := NewWebhookHandler(registry, reconcileSvc, zerolog.Nop())

	body := []byte(`{"id":"cg-1","status":"paid"}`)
	cb := &ports.ProviderCallback{ProviderRef: "cg-1", RawStatus: "paid", Body: body}

	registry.EXPECT().Get("coingate").Return(provider, nil)
	provider.EXPECT().ParseCallback(gomock.Any(), body).Return(cb, nil)
	reconcileSvc.EXPECT().HandleCallback(gomock.Any(), "coingate", cb).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/coingate", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "provider", Value: "coingate"}}
	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookReceive_UnknownProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockProviderRegistry(ctrl)
	h := NewWebhookHandler(registry, nil, zerolog.Nop())

	registry.EXPECT().Get("bogus").Return(nil, apperror.ErrUnknownProvider("bogus"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/bogus", bytes.NewReader(nil))
	c.Params = gin.Params{{Key: "provider", Value: "bogus"}}
	h.Receive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_003")
}

func TestWebhookReceive_VerificationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockProviderRegistry(ctrl)
	provider := mocks.NewMockPaymentProvider(ctrl)
	reconcileSvc := mocks.NewMockReconcileService(ctrl)
	h := NewWebhookHandler(registry, reconcileSvc, zerolog.Nop())

	body := []byte(`{"id":"cg-1"}`)
	cb := &ports.ProviderCallback{ProviderRef: "cg-1", Body: body}

	registry.EXPECT().Get("coingate").Return(provider, nil)
	provider.EXPECT().ParseCallback(gomock.Any(), body).Return(cb, nil)
	reconcileSvc.EXPECT().HandleCallback(gomock.Any(), "coingate", cb).Return(apperror.ErrProviderVerificationFailed())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/coingate", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "provider", Value: "coingate"}}
	h.Receive(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_001")
}

// --- Admin Handler Tests ---

func TestRunReconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reconcileSvc := mocks.NewMockReconcileService(ctrl)
	h := NewAdminHandler(reconcileSvc, nil)

	reconcileSvc.EXPECT().RunOnce(gomock.Any()).Return(&ports.ReconcileSummary{
		Checked: 5, Completed: 2, Errors: 1, Expired: 1,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/internal/reconcile/run", nil)
	h.RunReconcile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(5), data["checked"])
	assert.Equal(t, float64(2), data["completed"])
}

func TestRequestPayout_GateErrorPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payoutSvc := mocks.NewMockPayoutService(ctrl)
	h := NewAdminHandler(nil, payoutSvc)

	beneficiaryID := uuid.New()
	payoutSvc.EXPECT().RequestPayout(gomock.Any(), ports.PayoutInput{
		BeneficiaryType: domain.BeneficiaryCreator,
		BeneficiaryID:   beneficiaryID,
	}).Return(nil, apperror.ErrPayoutBelowMinimum(10000))

	c, w := authedContext(t, http.MethodPost, "/api/v1/internal/payouts", uuid.Nil, dto.PayoutRequestBody{
		BeneficiaryType: "CREATOR",
		BeneficiaryID:   beneficiaryID.String(),
	})
	h.RequestPayout(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PTO_001")
}

func TestRequestPayout_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payoutSvc := mocks.NewMockPayoutService(ctrl)
	h := NewAdminHandler(nil, payoutSvc)

	beneficiaryID := uuid.New()
	payoutSvc.EXPECT().RequestPayout(gomock.Any(), gomock.Any()).Return(&domain.PayoutRequest{
		ID:              uuid.New(),
		BeneficiaryType: domain.BeneficiaryAgency,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     32000,
		Destination:     "agency-wallet",
		Status:          domain.PayoutPending,
		CreatedAt:       time.Now().UTC(),
	}, nil)

	c, w := authedContext(t, http.MethodPost, "/api/v1/internal/payouts", uuid.Nil, dto.PayoutRequestBody{
		BeneficiaryType: "AGENCY",
		BeneficiaryID:   beneficiaryID.String(),
		Destination:     "agency-wallet",
	})
	h.RequestPayout(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, w)
	assert.Equal(t, float64(32000), data["amount_cents"])
	assert.Equal(t, "PENDING", data["status"])
}

func TestResolvePayout_PaidReturnsPaidAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payoutSvc := mocks.NewMockPayoutService(ctrl)
	h := NewAdminHandler(nil, payoutSvc)

	reqID := uuid.New()
	paidAt := time.Now().UTC()
	payoutSvc.EXPECT().ResolvePayout(gomock.Any(), reqID, domain.PayoutPaid).Return(&domain.PayoutRequest{
		ID:              reqID,
		BeneficiaryType: domain.BeneficiaryCreator,
		BeneficiaryID:   uuid.New(),
		AmountCents:     25000,
		Destination:     "creator-wallet",
		Status:          domain.PayoutPaid,
		CreatedAt:       paidAt.Add(-time.Hour),
		PaidAt:          &paidAt,
	}, nil)

	c, w := authedContext(t, http.MethodPost, "/api/v1/internal/payouts/"+reqID.String()+"/resolve", uuid.Nil, dto.PayoutResolveBody{
		Status: "PAID",
	})
	c.Params = gin.Params{{Key: "id", Value: reqID.String()}}
	h.ResolvePayout(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataField(t, w)
	assert.Equal(t, "PAID", data["status"])
	assert.NotEmpty(t, data["paid_at"])
}

func TestResolvePayout_InvalidStatusRejectedByBinding(t *testing.T) {
	h := NewAdminHandler(nil, nil)

	reqID := uuid.New()
	c, w := authedContext(t, http.MethodPost, "/api/v1/internal/payouts/"+reqID.String()+"/resolve", uuid.Nil, dto.PayoutResolveBody{
		Status: "APPROVED",
	})
	c.Params = gin.Params{{Key: "id", Value: reqID.String()}}
	h.ResolvePayout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VAL_001")
}
