package services

import (
	"context"

	"github.com/staylane/reservation-backend/internal/models"
)

// AuditService reads the payment audit trail for the operator console
type AuditService struct {
	audits       AuditStore
	reservations ReservationStore
}

// NewAuditService creates a new audit service
func NewAuditService(audits AuditStore, reservations ReservationStore) *AuditService {
	return &AuditService{
		audits:       audits,
		reservations: reservations,
	}
}

// ListForReservation returns the audit entries of a reservation, oldest first
func (s *AuditService) ListForReservation(ctx context.Context, reservationID string) ([]models.PaymentAudit, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load reservation", err)
	}
	if reservation == nil {
		return nil, newError(KindReservationNotFound, "Reservation not found", nil)
	}

	entries, err := s.audits.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to list payment audits", err)
	}
	if entries == nil {
		entries = []models.PaymentAudit{}
	}
	return entries, nil
}
