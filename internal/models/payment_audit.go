package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventSessionCreated         PaymentEventType = "checkout_session_created"
	PaymentEventSessionReused          PaymentEventType = "checkout_session_reused"
	PaymentEventGatewayError           PaymentEventType = "gateway_error"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventProcessing             PaymentEventType = "payment_processing"
	PaymentEventReservationConfirmed   PaymentEventType = "reservation_confirmed"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventManualReprocess        PaymentEventType = "manual_reprocess"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend  PaymentEventSource = "backend"
	PaymentSourceWebhook  PaymentEventSource = "paymongo_webhook"
	PaymentSourceAPI      PaymentEventSource = "paymongo_api"
	PaymentSourceOperator PaymentEventSource = "operator"
)

// PaymentAudit is an immutable audit log entry for payment events
type PaymentAudit struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ReservationID     *string   `json:"reservation_id,omitempty" db:"reservation_id"`
	PaymentID         *string   `json:"payment_id,omitempty" db:"payment_id"`
	ProviderPaymentID *string   `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	WebhookEventID    *string   `json:"webhook_event_id,omitempty" db:"webhook_event_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus   *string `json:"payment_status,omitempty" db:"payment_status"`
	RequestPayload  JSONB   `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB   `json:"response_payload,omitempty" db:"response_payload"`
	ErrorMessage    *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetReservation sets the reservation the entry belongs to
func (pa *PaymentAudit) SetReservation(reservationID string) *PaymentAudit {
	if reservationID != "" {
		pa.ReservationID = &reservationID
	}
	return pa
}

// SetPayment sets our payment row and the gateway's identifier
func (pa *PaymentAudit) SetPayment(paymentID, providerPaymentID string) *PaymentAudit {
	if paymentID != "" {
		pa.PaymentID = &paymentID
	}
	if providerPaymentID != "" {
		pa.ProviderPaymentID = &providerPaymentID
	}
	return pa
}

// SetWebhookEvent links the entry to the gateway event id
func (pa *PaymentAudit) SetWebhookEvent(eventID string) *PaymentAudit {
	if eventID != "" {
		pa.WebhookEventID = &eventID
	}
	return pa
}

// SetAmounts sets and verifies amounts - returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	// Compare with tolerance for floating point
	match := math.Abs(expected-received) < 0.01
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus sets the payment status after the event
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetPayloads stores request/response bodies for debugging
func (pa *PaymentAudit) SetPayloads(request, response JSONB) *PaymentAudit {
	pa.RequestPayload = request
	pa.ResponsePayload = response
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}
