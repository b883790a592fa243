package handler

import (
	"creator-ledger/internal/adapter/http/dto"
	"creator-ledger/internal/adapter/http/middleware"
	"creator-ledger/internal/core/domain"
	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
	"creator-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet and spend endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
	spendSvc  ports.SpendService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, spendSvc ports.SpendService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc, spendSvc: spendSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		UserID:     wallet.UserID.String(),
		PaidCents:  wallet.PaidCents,
		BonusCents: wallet.BonusCents,
		TotalCents: wallet.Total(),
	})
}

// CheckReplay handles GET /api/v1/wallet/replay.
func (h *WalletHandler) CheckReplay(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	consistent, err := h.ledgerSvc.CheckReplay(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReplayCheckResponse{Consistent: consistent})
}

// Spend handles POST /api/v1/wallet/spend.
func (h *WalletHandler) Spend(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	refID, err := uuid.Parse(req.RefID)
	if err != nil {
		response.Error(c, apperror.Validation("ref_id is not a valid uuid"))
		return
	}

	attribution, err := parseAttribution(req.ChatterID, req.PersonaID)
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.spendSvc.Spend(c.Request.Context(), ports.SpendInput{
		UserID:      userID,
		CreatorSlug: req.CreatorSlug,
		AmountCents: req.AmountCents,
		Kind:        domain.TransactionKind(req.Kind),
		RefType:     domain.LedgerRefType(req.RefType),
		RefID:       refID,
		Attribution: attribution,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLedgerEntryResponse(entry))
}

func parseAttribution(chatterID, personaID *string) (domain.Attribution, error) {
	var attr domain.Attribution
	if chatterID != nil && personaID != nil {
		return attr, apperror.Validation("at most one of chatter_id and persona_id may be set")
	}
	if chatterID != nil {
		id, err := uuid.Parse(*chatterID)
		if err != nil {
			return attr, apperror.Validation("chatter_id is not a valid uuid")
		}
		attr.ChatterID = &id
	}
	if personaID != nil {
		id, err := uuid.Parse(*personaID)
		if err != nil {
			return attr, apperror.Validation("persona_id is not a valid uuid")
		}
		attr.PersonaID = &id
	}
	return attr, nil
}

func toLedgerEntryResponse(e *domain.LedgerEntry) dto.LedgerEntryResponse {
	resp := dto.LedgerEntryResponse{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		PaidDelta:    e.PaidDelta,
		BonusDelta:   e.BonusDelta,
		PaidBalance:  e.PaidBalance,
		BonusBalance: e.BonusBalance,
		CreatedAt:    e.CreatedAt.Format(timeFormat),
	}
	if e.RefType != nil {
		resp.RefType = string(*e.RefType)
	}
	if e.RefID != nil {
		resp.RefID = e.RefID.String()
	}
	return resp
}
