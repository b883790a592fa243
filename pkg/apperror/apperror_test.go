package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_001", "Insufficient credits", http.StatusPaymentRequired),
			expected: "[LED_001] Insufficient credits",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("LED_001", "plain", http.StatusBadRequest).Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientCredits", ErrInsufficientCredits(), "LED_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "LED_002", 400},
		{"BonusNotAllowed", ErrBonusNotAllowed(), "LED_003", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"PaymentNotFound", ErrPaymentNotFound(), "PAY_001", 404},
		{"IllegalStatusTransition", ErrIllegalStatusTransition("COMPLETED", "FAILED"), "PAY_002", 409},
		{"UnknownProvider", ErrUnknownProvider("acme"), "PAY_003", 400},
		{"ProviderVerificationFailed", ErrProviderVerificationFailed(), "SEC_001", 401},
		{"RateLimited", ErrRateLimited(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestIllegalStatusTransition_Message(t *testing.T) {
	err := ErrIllegalStatusTransition("FAILED", "COMPLETED")
	assert.Contains(t, err.Message, "FAILED")
	assert.Contains(t, err.Message, "COMPLETED")
}

func TestPayoutErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"BelowMinimum", ErrPayoutBelowMinimum(10000), "PTO_001", 422},
		{"AlreadyPending", ErrPayoutAlreadyPending(), "PTO_002", 409},
		{"CooldownActive", ErrPayoutCooldownActive(), "PTO_003", 429},
		{"AgencyManaged", ErrPayoutAgencyManaged(), "PTO_004", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	sysErr := InternalError(inner)
	assert.Equal(t, "SYS_001", sysErr.Code)
	assert.Equal(t, 500, sysErr.HTTPStatus)
	assert.True(t, errors.Is(sysErr, inner))

	nf := ErrNotFound("Wallet")
	assert.Equal(t, "SYS_404", nf.Code)
	assert.Contains(t, nf.Message, "Wallet")
}
