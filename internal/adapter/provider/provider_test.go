package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
)

type fakeHTTPClient struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
	}, nil
}

func TestRegistry(t *testing.T) {
	cg := NewCoinGateProvider(CoinGateConfig{}, &fakeHTTPClient{})
	np := NewNOWPaymentsProvider(NOWPaymentsConfig{}, &fakeHTTPClient{})
	reg := NewRegistry(cg, np)

	t.Run("resolves registered providers", func(t *testing.T) {
		p, err := reg.Get("coingate")
		require.NoError(t, err)
		assert.Equal(t, "coingate", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := reg.Get("paypal")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "PAY_003", appErr.Code)
	})

	t.Run("names are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"coingate", "nowpayments"}, reg.Names())
	})
}

func TestCoinGateParseCallback(t *testing.T) {
	p := NewCoinGateProvider(CoinGateConfig{}, &fakeHTTPClient{})

	t.Run("form encoded body", func(t *testing.T) {
		cb, err := p.ParseCallback(http.Header{}, []byte("id=12345&status=paid&token=abc"))
		require.NoError(t, err)
		assert.Equal(t, "12345", cb.ProviderRef)
		assert.Equal(t, "paid", cb.RawStatus)
		assert.Equal(t, "abc", cb.Token)
	})

	t.Run("json body", func(t *testing.T) {
		cb, err := p.ParseCallback(http.Header{}, []byte(`{"id":777,"status":"confirming","token":"xyz"}`))
		require.NoError(t, err)
		assert.Equal(t, "777", cb.ProviderRef)
		assert.Equal(t, "confirming", cb.RawStatus)
	})

	t.Run("missing order id", func(t *testing.T) {
		_, err := p.ParseCallback(http.Header{}, []byte("status=paid"))
		require.Error(t, err)
	})
}

func TestCoinGateVerifyCallback(t *testing.T) {
	p := NewCoinGateProvider(CoinGateConfig{}, &fakeHTTPClient{})
	pay := &domain.Payment{
		Metadata: domain.Metadata{domain.MetaCheckoutNonce: "nonce-1"},
	}

	t.Run("matching token", func(t *testing.T) {
		err := p.VerifyCallback(callbackWithToken("nonce-1"), pay)
		assert.NoError(t, err)
	})

	t.Run("wrong token", func(t *testing.T) {
		err := p.VerifyCallback(callbackWithToken("nonce-2"), pay)
		assertVerificationFailed(t, err)
	})

	t.Run("no stored nonce", func(t *testing.T) {
		err := p.VerifyCallback(callbackWithToken("nonce-1"), &domain.Payment{Metadata: domain.Metadata{}})
		assertVerificationFailed(t, err)
	})

	t.Run("empty token", func(t *testing.T) {
		err := p.VerifyCallback(callbackWithToken(""), pay)
		assertVerificationFailed(t, err)
	})
}

func TestCoinGateGetStatus(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusOK, body: `{"id":42,"status":"paid"}`}
	p := NewCoinGateProvider(CoinGateConfig{BaseURL: "https://api.test", APIKey: "key"}, client)

	raw, err := p.GetStatus(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "paid", raw)
	assert.Equal(t, "https://api.test/v2/orders/42", client.lastReq.URL.String())
	assert.Equal(t, "Token key", client.lastReq.Header.Get("Authorization"))
}

func TestCoinGateCreateCheckout(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusOK, body: `{"id":9001,"status":"new","payment_url":"https://pay.test/9001"}`}
	p := NewCoinGateProvider(CoinGateConfig{BaseURL: "https://api.test", APIKey: "key"}, client)

	pay := &domain.Payment{ID: uuid.New(), AmountCents: 2599, Currency: "USD"}
	res, err := p.CreateCheckout(context.Background(), pay)
	require.NoError(t, err)
	assert.Equal(t, "9001", res.ProviderRef)
	assert.Equal(t, "https://pay.test/9001", res.PayURL)
	assert.NotEmpty(t, res.Nonce)

	// The nonce in the checkout request must match the one returned.
	raw, _ := io.ReadAll(client.lastReq.Body)
	var sent coingateOrderRequest
	require.NoError(t, json.Unmarshal(raw, &sent))
	assert.Equal(t, res.Nonce, sent.Token)
	assert.Equal(t, "25.99", sent.PriceAmount)
}

func TestCoinGateMapStatus(t *testing.T) {
	p := NewCoinGateProvider(CoinGateConfig{}, &fakeHTTPClient{})

	cases := map[string]domain.PaymentStatus{
		"new":        domain.PaymentPending,
		"confirming": domain.PaymentPending,
		"paid":       domain.PaymentCompleted,
		"invalid":    domain.PaymentFailed,
		"canceled":   domain.PaymentFailed,
		"expired":    domain.PaymentExpired,
		"weird":      domain.PaymentPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, p.MapStatus(raw), "raw status %q", raw)
	}
}

func TestNOWPaymentsVerifyCallback(t *testing.T) {
	secret := "ipn-secret"
	p := NewNOWPaymentsProvider(NOWPaymentsConfig{IPNSecret: secret}, &fakeHTTPClient{})

	// Keys deliberately out of order; the signature covers the sorted form.
	body := []byte(`{"payment_status":"finished","payment_id":555}`)
	sorted, err := sortedJSON(body)
	require.NoError(t, err)
	sig := signHMACSHA512([]byte(secret), sorted)

	header := http.Header{}
	header.Set(nowpaymentsSigHeader, sig)

	cb, err := p.ParseCallback(header, body)
	require.NoError(t, err)
	assert.Equal(t, "555", cb.ProviderRef)
	assert.Equal(t, "finished", cb.RawStatus)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, p.VerifyCallback(cb, nil))
	})

	t.Run("tampered body", func(t *testing.T) {
		tampered := *cb
		tampered.Body = []byte(`{"payment_status":"finished","payment_id":556}`)
		assertVerificationFailed(t, p.VerifyCallback(&tampered, nil))
	})

	t.Run("missing signature", func(t *testing.T) {
		unsigned := *cb
		unsigned.Token = ""
		assertVerificationFailed(t, p.VerifyCallback(&unsigned, nil))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewNOWPaymentsProvider(NOWPaymentsConfig{IPNSecret: "other"}, &fakeHTTPClient{})
		assertVerificationFailed(t, other.VerifyCallback(cb, nil))
	})
}

func TestNOWPaymentsGetStatus(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusOK, body: `{"payment_id":555,"payment_status":"partially_paid"}`}
	p := NewNOWPaymentsProvider(NOWPaymentsConfig{BaseURL: "https://api.test", APIKey: "key"}, client)

	raw, err := p.GetStatus(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", raw)
	assert.Equal(t, "key", client.lastReq.Header.Get("x-api-key"))
}

func TestNOWPaymentsMapStatus(t *testing.T) {
	p := NewNOWPaymentsProvider(NOWPaymentsConfig{}, &fakeHTTPClient{})

	cases := map[string]domain.PaymentStatus{
		"waiting":        domain.PaymentPending,
		"confirmed":      domain.PaymentPending,
		"partially_paid": domain.PaymentPartiallyPaid,
		"finished":       domain.PaymentCompleted,
		"failed":         domain.PaymentFailed,
		"refunded":       domain.PaymentFailed,
		"expired":        domain.PaymentExpired,
		"weird":          domain.PaymentPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, p.MapStatus(raw), "raw status %q", raw)
	}
}

func TestStripeParseCallback(t *testing.T) {
	p := NewStripeProvider(StripeConfig{APIKey: "sk_test", WebhookSecret: "whsec"})

	body := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","status":"succeeded"}}}`)
	header := http.Header{}
	header.Set(stripeSigHeader, "t=1,v1=deadbeef")

	cb, err := p.ParseCallback(header, body)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", cb.ProviderRef)
	assert.Equal(t, "succeeded", cb.RawStatus)
	assert.Equal(t, "t=1,v1=deadbeef", cb.Token)

	t.Run("missing intent id", func(t *testing.T) {
		_, err := p.ParseCallback(header, []byte(`{"type":"ping","data":{"object":{}}}`))
		require.Error(t, err)
	})

	t.Run("bogus signature rejected", func(t *testing.T) {
		assertVerificationFailed(t, p.VerifyCallback(cb, nil))
	})
}

func TestStripeMapStatus(t *testing.T) {
	p := NewStripeProvider(StripeConfig{})

	cases := map[string]domain.PaymentStatus{
		"requires_payment_method": domain.PaymentPending,
		"processing":              domain.PaymentPending,
		"succeeded":               domain.PaymentCompleted,
		"canceled":                domain.PaymentFailed,
		"weird":                   domain.PaymentPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, p.MapStatus(raw), "raw status %q", raw)
	}
}

func callbackWithToken(token string) *ports.ProviderCallback {
	return &ports.ProviderCallback{Token: token}
}

func assertVerificationFailed(t *testing.T, err error) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SEC_001", appErr.Code)
}
