package services

import (
	"context"
	"time"

	"github.com/staylane/reservation-backend/internal/models"
)

// Storage dependencies of the services. Implemented by the repositories in
// internal/database; tests substitute in-memory fixtures.

// CatalogStore reads business units and room types
type CatalogStore interface {
	GetBusinessUnit(ctx context.Context, id string) (*models.BusinessUnit, error)
	GetRoomType(ctx context.Context, id string) (*models.RoomType, error)
}

// ReservationStore persists reservations
type ReservationStore interface {
	CreateWithGuest(ctx context.Context, guest *models.Guest, reservation *models.Reservation, room *models.ReservationRoom) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	GetWithDetails(ctx context.Context, id string) (*models.Reservation, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id, reason string, failedAt time.Time) (bool, error)
}

// PaymentStore persists payments, checkout sessions and provider detail
type PaymentStore interface {
	CreateCheckout(ctx context.Context, payment *models.Payment, session *models.CheckoutSession, items []models.PaymentLineItem, providerReference string) error
	CountByReservation(ctx context.Context, reservationID string) (int, error)
	GetLatestByReservation(ctx context.Context, reservationID string) (*models.Payment, error)
	GetSessionByPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error)
	FindByProviderIDs(ctx context.Context, providerIDs []string) (*models.Payment, error)
	FindByReservationAndProviderIDs(ctx context.Context, reservationID string, providerIDs []string) (*models.Payment, error)
	CreateIfAbsent(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	MarkSucceeded(ctx context.Context, id string, amount float64, method *string, at time.Time) error
	MarkFailed(ctx context.Context, id string, code *string, message string, at time.Time) (bool, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	UpsertProviderPayment(ctx context.Context, pp *models.ProviderPayment) error
	UpsertProviderCard(ctx context.Context, card *models.ProviderCard) error
	UpsertSessionPaid(ctx context.Context, session *models.CheckoutSession) error
}

// WebhookEventStore persists inbound gateway callbacks
type WebhookEventStore interface {
	GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	Upsert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error)
	BeginReprocess(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	Finalize(ctx context.Context, eventID string, status models.WebhookEventStatus, errorMessage *string, at time.Time) error
	List(ctx context.Context, status string, limit, offset int) ([]models.WebhookEvent, error)
}

// AuditStore writes and reads the payment audit trail
type AuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	ListByReservation(ctx context.Context, reservationID string) ([]models.PaymentAudit, error)
}
