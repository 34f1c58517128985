package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ChetanXpro/yesbroker/internal/service"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives property verification callbacks.
type WebhookHandler struct {
	Webhooks *service.WebhookService
}

func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{Webhooks: webhooks}
}

type verificationPayload struct {
	Status          string      `json:"status"`
	TransactionHash string      `json:"transactionHash"`
	PropertyID      json.Number `json:"propertyId"`
}

// PropertyVerification handles POST /webhook/property-verification.
func (h *WebhookHandler) PropertyVerification(c *gin.Context) {
	if err := h.Webhooks.Authorize(c.GetHeader(webhookSecretHeader)); err != nil {
		respondServiceError(c, err)
		return
	}

	var req verificationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields: status, propertyId")
		return
	}

	var propertyID int64
	if req.PropertyID != "" {
		id, err := strconv.ParseInt(req.PropertyID.String(), 10, 64)
		if err != nil {
			badRequest(c, "Invalid propertyId")
			return
		}
		propertyID = id
	}

	record, message, err := h.Webhooks.Apply(c.Request.Context(), service.WebhookInput{
		Status:          req.Status,
		TransactionHash: req.TransactionHash,
		PropertyID:      propertyID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": record})
}
