package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/services"
	"github.com/staylane/reservation-backend/internal/utils"
)

// BookingHandler handles the public booking endpoints used by the booking widget
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// ============================================================================
// CREATE BOOKING - POST /api/v1/bookings
// ============================================================================

// CreateBooking validates a booking, writes the reservation and returns the checkout URL
// @Summary Create booking
// @Description Validates the stay against the room type, creates guest, reservation and room, then opens a hosted checkout session
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 200 {object} models.BookingConfirmation
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 429 {object} map[string]interface{} "Rate limited"
// @Failure 500 {object} models.ErrorResponse "Reservation or payment session failed"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid booking request")
		badRequest(c, err)
		return
	}

	rc := models.RequestContext{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	confirmation, err := h.bookingService.CreateBooking(c.Request.Context(), &req, rc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

// ============================================================================
// PAYMENT STATUS - GET /api/v1/bookings/:id/payment-status
// ============================================================================

// GetPaymentStatus returns the payment projection polled after the checkout redirect
// @Summary Get payment status
// @Tags Bookings
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} models.PaymentStatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bookings/{id}/payment-status [get]
func (h *BookingHandler) GetPaymentStatus(c *gin.Context) {
	reservationID, ok := reservationIDParam(c)
	if !ok {
		return
	}

	status, err := h.bookingService.GetPaymentStatus(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ============================================================================
// RETRY PAYMENT SESSION - POST /api/v1/bookings/:id/payment-session
// ============================================================================

// RetryPaymentSession returns a usable checkout session for a reservation awaiting payment
// @Summary Retry payment session
// @Tags Bookings
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} models.BookingConfirmation
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Reservation no longer awaiting payment"
// @Router /bookings/{id}/payment-session [post]
func (h *BookingHandler) RetryPaymentSession(c *gin.Context) {
	reservationID, ok := reservationIDParam(c)
	if !ok {
		return
	}

	confirmation, err := h.bookingService.RetryPaymentSession(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

// reservationIDParam reads :id and rejects anything that is not a UUID
func reservationIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "ValidationError",
			Details: "Invalid reservation ID",
		})
		return "", false
	}
	return id, true
}
