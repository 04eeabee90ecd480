package services

import (
	"encoding/json"
	"fmt"

	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/pkg/validator"
)

// Gateway event types handled by the reconciliation handlers
const (
	EventCheckoutSessionPaid     = "checkout_session.payment.paid"
	EventCheckoutSessionFailed   = "checkout_session.payment.failed"
	EventPaymentFailed           = "payment.failed"
	EventPaymentPaid             = "payment.paid"
	EventPaymentProcessing       = "payment.processing"
	EventPaymentIntentSucceeded  = "payment_intent.succeeded"
	EventPaymentIntentProcessing = "payment_intent.processing"
)

// WebhookEnvelope is the outer shape of every PayMongo webhook:
// {"data":{"id":"evt_…","type":"event","attributes":{"type":…,"data":{resource}}}}
type WebhookEnvelope struct {
	Data *WebhookEventData `json:"data" validate:"required"`
}

// WebhookEventData is the event object
type WebhookEventData struct {
	ID         string                  `json:"id" validate:"required"`
	Type       string                  `json:"type" validate:"required,eq=event"`
	Attributes *WebhookEventAttributes `json:"attributes" validate:"required"`
}

// WebhookEventAttributes carries the event type and the affected resource
type WebhookEventAttributes struct {
	Type      string           `json:"type" validate:"required"`
	Livemode  bool             `json:"livemode"`
	Data      *WebhookResource `json:"data" validate:"required"`
	CreatedAt int64            `json:"created_at"`
}

// WebhookResource is the resource the event is about. Attributes are decoded
// per resource type by the handler that needs them.
type WebhookResource struct {
	ID         string          `json:"id" validate:"required"`
	Type       string          `json:"type" validate:"required"`
	Attributes json.RawMessage `json:"attributes" validate:"required"`
}

// ParseWebhookEnvelope decodes and structurally validates a webhook body
func ParseWebhookEnvelope(body []byte) (*WebhookEnvelope, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validator.Struct(&envelope); err != nil {
		return nil, fmt.Errorf("invalid webhook envelope: %w", err)
	}
	if string(envelope.Data.Attributes.Data.Attributes) == "null" {
		return nil, fmt.Errorf("invalid webhook envelope: resource attributes are null")
	}
	return &envelope, nil
}

// EventID returns the gateway event id
func (e *WebhookEnvelope) EventID() string {
	return e.Data.ID
}

// EventType returns the gateway event type, e.g. checkout_session.payment.paid
func (e *WebhookEnvelope) EventType() string {
	return e.Data.Attributes.Type
}

// Resource returns the resource the event is about
func (e *WebhookEnvelope) Resource() *WebhookResource {
	return e.Data.Attributes.Data
}

// ============================================================================
// RESOURCE ATTRIBUTES
// ============================================================================

// PayMongoBilling is billing detail entered on the checkout page
type PayMongoBilling struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PayMongoLineItem is a checkout line item in minor units
type PayMongoLineItem struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
}

// PayMongoPaymentError is the last error recorded on a payment intent
type PayMongoPaymentError struct {
	FailedCode    string `json:"failed_code"`
	FailedMessage string `json:"failed_message"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

// Reason returns the most specific human-readable message
func (e *PayMongoPaymentError) Reason() string {
	if e == nil {
		return ""
	}
	if e.FailedMessage != "" {
		return e.FailedMessage
	}
	return e.Message
}

// ReasonCode returns the failure code, if any
func (e *PayMongoPaymentError) ReasonCode() string {
	if e == nil {
		return ""
	}
	if e.FailedCode != "" {
		return e.FailedCode
	}
	return e.Code
}

// PaymentIntentAttributes is the payment intent resource
type PaymentIntentAttributes struct {
	Amount           int64                 `json:"amount"`
	Currency         string                `json:"currency"`
	Status           string                `json:"status"`
	LastPaymentError *PayMongoPaymentError `json:"last_payment_error"`
	Metadata         models.JSONB          `json:"metadata"`
	Payments         []PayMongoPayment     `json:"payments"`
}

// PayMongoPaymentIntent is a nested payment intent
type PayMongoPaymentIntent struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Attributes PaymentIntentAttributes `json:"attributes"`
}

// PayMongoSource is the payment method used. Only card metadata is ever present, never a PAN.
type PayMongoSource struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Brand    string `json:"brand"`
	Country  string `json:"country"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	Funding  string `json:"funding"`
}

// PaymentAttributes is the payment resource
type PaymentAttributes struct {
	Amount          int64            `json:"amount"`
	Currency        string           `json:"currency"`
	Status          string           `json:"status"`
	Description     string           `json:"description"`
	PaymentIntentID string           `json:"payment_intent_id"`
	Billing         *PayMongoBilling `json:"billing"`
	Source          *PayMongoSource  `json:"source"`
	FailedCode      string           `json:"failed_code"`
	FailedMessage   string           `json:"failed_message"`
	Metadata        models.JSONB     `json:"metadata"`
	PaidAt          int64            `json:"paid_at"`
}

// PayMongoPayment is a nested payment
type PayMongoPayment struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes PaymentAttributes `json:"attributes"`
}

// CheckoutSessionAttributes is the checkout session resource
type CheckoutSessionAttributes struct {
	Billing           *PayMongoBilling       `json:"billing"`
	CheckoutURL       string                 `json:"checkout_url"`
	SuccessURL        string                 `json:"success_url"`
	CancelURL         string                 `json:"cancel_url"`
	LineItems         []PayMongoLineItem     `json:"line_items"`
	Metadata          models.JSONB           `json:"metadata"`
	PaymentIntent     *PayMongoPaymentIntent `json:"payment_intent"`
	Payments          []PayMongoPayment      `json:"payments"`
	PaymentMethodUsed string                 `json:"payment_method_used"`
	ReferenceNumber   string                 `json:"reference_number"`
	Status            string                 `json:"status"`
	PaidAt            int64                  `json:"paid_at"`
}

// LineItemsTotal sums amount*quantity over the line items, in minor units
func (a *CheckoutSessionAttributes) LineItemsTotal() int64 {
	var total int64
	for _, item := range a.LineItems {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += item.Amount * int64(qty)
	}
	return total
}

// ProviderIDs returns the identifiers a payment row may be stored under,
// most specific first: the payment intent id (nested object, else the one
// carried on the session's payments), then the session id.
func (a *CheckoutSessionAttributes) ProviderIDs(sessionID string) []string {
	ids := make([]string, 0, 2+len(a.Payments))
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if a.PaymentIntent != nil {
		add(a.PaymentIntent.ID)
	}
	for i := range a.Payments {
		add(a.Payments[i].Attributes.PaymentIntentID)
	}
	add(sessionID)
	return ids
}

// PaidPayment returns the first paid payment of the session, or the first payment
func (a *CheckoutSessionAttributes) PaidPayment() *PayMongoPayment {
	for i := range a.Payments {
		if a.Payments[i].Attributes.Status == "paid" {
			return &a.Payments[i]
		}
	}
	if len(a.Payments) > 0 {
		return &a.Payments[0]
	}
	return nil
}

// decodeAttributes decodes the resource attributes into v
func decodeAttributes(resource *WebhookResource, v interface{}) error {
	if err := json.Unmarshal(resource.Attributes, v); err != nil {
		return fmt.Errorf("failed to decode %s attributes: %w", resource.Type, err)
	}
	return nil
}
