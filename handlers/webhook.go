package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homely/services/webhook"
	"homely/utils"
)

// WebhookHandler terminates the payment gateway's event deliveries.
type WebhookHandler struct {
	Ingestor *webhook.Ingestor
	Logger   *zap.Logger
}

func NewWebhookHandler(ingestor *webhook.Ingestor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Ingestor: ingestor, Logger: logger}
}

// GatewayWebhookHandler accepts one signed event payload. Idempotent no-ops
// and stale events are acknowledged with 200 so the gateway stops
// redelivering; transient failures answer 500 so it retries.
func (h *WebhookHandler) GatewayWebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read payload", err.Error())
		return
	}

	result, err := h.Ingestor.Ingest(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			utils.JSONError(c, http.StatusBadRequest, "invalid signature", "")
			return
		}
		h.Logger.Error("Webhook ingestion failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "ingestion failed", "transient failure, retry")
		return
	}

	c.JSON(http.StatusOK, result)
}
