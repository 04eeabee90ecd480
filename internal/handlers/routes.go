package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/staylane/reservation-backend/internal/middleware"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/pkg/jwt"
)

// Routes bundles what RegisterRoutes mounts
type Routes struct {
	Booking  *BookingHandler
	Webhook  *WebhookHandler
	Operator *OperatorHandler
	JWT      *jwt.Service

	// BookingLimiter guards booking creation only. Status polling and
	// session retries are driven by the widget and must not share its bucket.
	BookingLimiter gin.HandlerFunc
}

// RegisterRoutes mounts the /api/v1 surface
func RegisterRoutes(router *gin.Engine, r Routes) {
	limiter := r.BookingLimiter
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}

	v1 := router.Group("/api/v1")
	{
		// Public booking flow
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", limiter, r.Booking.CreateBooking)
			bookings.GET("/:id/payment-status", r.Booking.GetPaymentStatus)
			bookings.POST("/:id/payment-session", r.Booking.RetryPaymentSession)
		}

		// Gateway callbacks (signature verified, never rate limited)
		v1.POST("/payments/webhook", r.Webhook.PaymentWebhook)

		v1.POST("/operator/login", r.Operator.Login)

		operator := v1.Group("/operator")
		operator.Use(middleware.AuthMiddleware(r.JWT))
		operator.Use(middleware.RequireRole(models.OperatorRole))
		{
			operator.GET("/webhook-events", r.Operator.ListWebhookEvents)
			operator.POST("/webhook-events/:event_id/reprocess", r.Operator.ReprocessWebhookEvent)
			operator.GET("/reservations/:id/audits", r.Operator.ListReservationAudits)
		}
	}
}
