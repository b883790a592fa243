package handler

import (
	"creator-ledger/internal/adapter/http/dto"
	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
	"creator-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler exposes platform-internal operations: manual reconcile runs
// and payout requests forwarded by the main application.
type AdminHandler struct {
	reconcileSvc ports.ReconcileService
	payoutSvc    ports.PayoutService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reconcileSvc ports.ReconcileService, payoutSvc ports.PayoutService) *AdminHandler {
	return &AdminHandler{reconcileSvc: reconcileSvc, payoutSvc: payoutSvc}
}

// RunReconcile handles POST /api/v1/internal/reconcile/run.
func (h *AdminHandler) RunReconcile(c *gin.Context) {
	summary, err := h.reconcileSvc.RunOnce(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// RequestPayout handles POST /api/v1/internal/payouts.
func (h *AdminHandler) RequestPayout(c *gin.Context) {
	var req dto.PayoutRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	beneficiaryID, err := uuid.Parse(req.BeneficiaryID)
	if err != nil {
		response.Error(c, apperror.Validation("beneficiary_id is not a valid uuid"))
		return
	}

	payout, err := h.payoutSvc.RequestPayout(c.Request.Context(), ports.PayoutInput{
		BeneficiaryType: domain.BeneficiaryType(req.BeneficiaryType),
		BeneficiaryID:   beneficiaryID,
		Destination:     req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPayoutResponse(payout))
}

// ResolvePayout handles POST /api/v1/internal/payouts/:id/resolve. This is
// the approval step: PAID consumes the requested amount from the
// beneficiary's pending balance, REJECTED releases the request without
// touching it.
func (h *AdminHandler) ResolvePayout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id is not a valid uuid"))
		return
	}

	var req dto.PayoutResolveBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payout, err := h.payoutSvc.ResolvePayout(c.Request.Context(), id, domain.PayoutStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(payout))
}

func toPayoutResponse(p *domain.PayoutRequest) dto.PayoutResponse {
	out := dto.PayoutResponse{
		ID:              p.ID.String(),
		BeneficiaryType: string(p.BeneficiaryType),
		BeneficiaryID:   p.BeneficiaryID.String(),
		AmountCents:     p.AmountCents,
		Destination:     p.Destination,
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt.Format(timeFormat),
	}
	if p.PaidAt != nil {
		out.PaidAt = p.PaidAt.Format(timeFormat)
	}
	return out
}
