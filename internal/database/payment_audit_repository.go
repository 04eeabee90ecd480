package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, reservation_id, payment_id, provider_payment_id, webhook_event_id,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, request_payload, response_payload, error_message,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.ReservationID, audit.PaymentID, audit.ProviderPaymentID, audit.WebhookEventID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.RequestPayload, audit.ResponsePayload, audit.ErrorMessage,
		audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":     audit.EventType,
			"reservation_id": audit.ReservationID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
	}).Debug("Payment audit logged")

	return nil
}

// ListByReservation returns the audit trail of a reservation, oldest first
func (r *PaymentAuditRepository) ListByReservation(ctx context.Context, reservationID string) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, reservation_id, payment_id, provider_payment_id, webhook_event_id,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, request_payload, response_payload, error_message,
			created_at
		FROM payment_audits
		WHERE reservation_id = $1
		ORDER BY created_at ASC`

	audits := []models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, reservationID); err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}
