package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/middleware"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/services"
)

// OperatorHandler serves the operator console: login, webhook review queue
// and payment audit trail.
type OperatorHandler struct {
	authService    *services.OperatorAuthService
	webhookService *services.WebhookService
	auditService   *services.AuditService
	logger         *logrus.Logger
}

// NewOperatorHandler creates a new OperatorHandler
func NewOperatorHandler(
	authService *services.OperatorAuthService,
	webhookService *services.WebhookService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *OperatorHandler {
	return &OperatorHandler{
		authService:    authService,
		webhookService: webhookService,
		auditService:   auditService,
		logger:         logger,
	}
}

// Login handles POST /api/v1/operator/login
func (h *OperatorHandler) Login(c *gin.Context) {
	var req models.OperatorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListWebhookEvents handles GET /api/v1/operator/webhook-events?status=&limit=&offset=
func (h *OperatorHandler) ListWebhookEvents(c *gin.Context) {
	status := c.Query("status")
	switch models.WebhookEventStatus(status) {
	case "", models.WebhookStatusProcessing, models.WebhookStatusProcessed,
		models.WebhookStatusIgnored, models.WebhookStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "ValidationError", Details: "Unknown status filter"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.webhookService.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
		"limit":  limit,
		"offset": offset,
	})
}

// ReprocessWebhookEvent handles POST /api/v1/operator/webhook-events/:event_id/reprocess
func (h *OperatorHandler) ReprocessWebhookEvent(c *gin.Context) {
	opCtx, _ := middleware.GetOperatorContext(c)
	eventID := c.Param("event_id")

	event, err := h.webhookService.Reprocess(c.Request.Context(), eventID, opCtx.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListReservationAudits handles GET /api/v1/operator/reservations/:id/audits
func (h *OperatorHandler) ListReservationAudits(c *gin.Context) {
	reservationID, ok := reservationIDParam(c)
	if !ok {
		return
	}

	audits, err := h.auditService.ListForReservation(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservation_id": reservationID,
		"audits":         audits,
	})
}
