package handler

import (
	"time"

	"creator-ledger/internal/adapter/http/dto"
	"creator-ledger/internal/adapter/http/middleware"
	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
	"creator-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeFormat = time.RFC3339

// PaymentHandler handles checkout creation and payment queries.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreateCheckout handles POST /api/v1/payments.
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	purpose := domain.PaymentPurpose(req.Purpose)
	meta := domain.Metadata{}
	if req.CreatorSlug != "" {
		meta[domain.MetaCreatorSlug] = req.CreatorSlug
	}
	if req.TargetRef != "" {
		meta[domain.MetaTargetRef] = req.TargetRef
	}
	if req.BillingPeriod != "" {
		meta[domain.MetaBillingPeriod] = req.BillingPeriod
	}
	if req.ChatterID != "" && req.PersonaID != "" {
		response.Error(c, apperror.Validation("a sale is attributed to a chatter or a persona, not both"))
		return
	}
	if req.ChatterID != "" {
		meta[domain.MetaChatterID] = req.ChatterID
	}
	if req.PersonaID != "" {
		meta[domain.MetaPersonaID] = req.PersonaID
	}

	// Everything except a credits top-up needs a creator to route revenue to.
	if purpose != domain.PurposeCredits && req.CreatorSlug == "" {
		response.Error(c, apperror.Validation("creator_slug is required for this purpose"))
		return
	}
	if (purpose == domain.PurposeMediaPurchase || purpose == domain.PurposePPVUnlock) && req.TargetRef == "" {
		response.Error(c, apperror.Validation("target_ref is required for this purpose"))
		return
	}

	payment, err := h.paymentSvc.CreatePending(c.Request.Context(), ports.CreatePaymentInput{
		UserID:      userID,
		Purpose:     purpose,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Metadata:    meta,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id is not a valid uuid"))
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Do not leak other users' payments.
	if payment.UserID != userID {
		response.Error(c, apperror.ErrPaymentNotFound())
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          p.ID.String(),
		Purpose:     string(p.Purpose),
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Provider:    p.Provider,
		Status:      string(p.Status),
		PayURL:      p.Metadata[domain.MetaPayURL],
		CreatedAt:   p.CreatedAt.Format(timeFormat),
	}
}
