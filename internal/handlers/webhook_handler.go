package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/services"
	"github.com/staylane/reservation-backend/internal/utils"
)

// WebhookHandler receives payment gateway callbacks
type WebhookHandler struct {
	webhookService *services.WebhookService
	logger         *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *services.WebhookService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// ============================================================================
// PAYMENT WEBHOOK - POST /api/v1/payments/webhook
// ============================================================================

// PaymentWebhook handles PayMongo webhook callbacks
// @Summary Payment webhook callback
// @Description Verifies the Paymongo-Signature header, records the event and reconciles the payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param Paymongo-Signature header string true "t=<unix>,te=<hex>,li=<hex>"
// @Success 200 {object} models.WebhookAck "Received (processed, ignored or failed)"
// @Failure 400 {object} models.WebhookAck "Missing header/secret or malformed event"
// @Failure 401 {object} models.WebhookAck "Invalid signature"
// @Router /payments/webhook [post]
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	// Raw bytes: the signature covers the body exactly as sent
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, models.WebhookAck{Received: false, Error: "failed to read request body"})
		return
	}

	ack, err := h.webhookService.Handle(c.Request.Context(), &services.WebhookDelivery{
		Body:      body,
		Signature: c.GetHeader(services.SignatureHeaderName),
		Headers:   c.Request.Header,
		SourceIP:  utils.GetRealIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			status = svcErr.Kind.HTTPStatus()
			message = svcErr.Message
		}
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("Webhook delivery could not be recorded")
		}
		c.JSON(status, models.WebhookAck{Received: false, Error: message})
		return
	}

	c.JSON(http.StatusOK, ack)
}
