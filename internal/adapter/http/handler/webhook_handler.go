package handler

import (
	"io"
	"net/http"

	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
	"creator-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives provider payment notifications.
type WebhookHandler struct {
	registry     ports.ProviderRegistry
	reconcileSvc ports.ReconcileService
	log          zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(registry ports.ProviderRegistry, reconcileSvc ports.ReconcileService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{registry: registry, reconcileSvc: reconcileSvc, log: log}
}

// Receive handles POST /webhooks/:provider. The provider adapter parses the
// raw delivery; verification and status re-fetch happen in the reconcile
// pipeline.
func (h *WebhookHandler) Receive(c *gin.Context) {
	providerName := c.Param("provider")
	provider, err := h.registry.Get(providerName)
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	cb, err := provider.ParseCallback(c.Request.Header, body)
	if err != nil {
		h.log.Warn().Err(err).Str("provider", providerName).Msg("unparseable webhook delivery")
		response.Error(c, err)
		return
	}

	if err := h.reconcileSvc.HandleCallback(c.Request.Context(), providerName, cb); err != nil {
		response.Error(c, err)
		return
	}

	// Providers only need an acknowledgement, not a body.
	c.Status(http.StatusOK)
}
