package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInsufficientCredits() *AppError {
	return New("LED_001", "Insufficient credits", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrBonusNotAllowed() *AppError {
	return New("LED_003", "Bonus credits are only spendable on media unlocks", http.StatusBadRequest)
}

// ---- Payments (PAY) ----

func ErrPaymentNotFound() *AppError {
	return New("PAY_001", "Payment not found", http.StatusNotFound)
}

func ErrIllegalStatusTransition(from, to string) *AppError {
	return New("PAY_002", fmt.Sprintf("Illegal payment status transition %s -> %s", from, to), http.StatusConflict)
}

func ErrUnknownProvider(name string) *AppError {
	return New("PAY_003", fmt.Sprintf("Unknown payment provider %q", name), http.StatusBadRequest)
}

// ---- Webhook provenance (SEC) ----

func ErrProviderVerificationFailed() *AppError {
	return New("SEC_001", "Provider callback verification failed", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrReconcileSecretMismatch() *AppError {
	return New("SEC_003", "Reconciliation trigger secret mismatch", http.StatusUnauthorized)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimited() *AppError {
	return New("RATE_001", "Too many payment attempts, try again later", http.StatusTooManyRequests)
}

// ---- Payouts (PTO) ----

func ErrPayoutBelowMinimum(minimum int64) *AppError {
	return New("PTO_001", fmt.Sprintf("Pending balance below payout minimum of %d", minimum), http.StatusUnprocessableEntity)
}

func ErrPayoutAlreadyPending() *AppError {
	return New("PTO_002", "A payout request is already pending", http.StatusConflict)
}

func ErrPayoutCooldownActive() *AppError {
	return New("PTO_003", "Payout cooldown has not elapsed", http.StatusTooManyRequests)
}

func ErrPayoutAgencyManaged() *AppError {
	return New("PTO_004", "Payouts for agency-managed creators are requested by the agency", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

func ErrNotFound(entity string) *AppError {
	return New("SYS_404", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
