package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
)

const unknownFailureReason = "Unknown reason"

// ReconciliationService applies gateway payment outcomes to payments,
// checkout sessions and reservations. Every update is an idempotent,
// single-row write so duplicate and out-of-order deliveries converge.
type ReconciliationService struct {
	reservations ReservationStore
	payments     PaymentStore
	audits       AuditStore
	publisher    EventPublisher
	logger       *logrus.Logger
	now          func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	reservations ReservationStore,
	payments PaymentStore,
	audits AuditStore,
	publisher EventPublisher,
	logger *logrus.Logger,
) *ReconciliationService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ReconciliationService{
		reservations: reservations,
		payments:     payments,
		audits:       audits,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Dispatch routes an event to its handler and returns the final webhook status:
// processed when a handler ran, ignored when the event type is not actionable.
// A handler error is returned as a ReconciliationFailed error.
func (s *ReconciliationService) Dispatch(ctx context.Context, eventID string, envelope *WebhookEnvelope) (models.WebhookEventStatus, error) {
	resource := envelope.Resource()

	var err error
	switch envelope.EventType() {
	case EventCheckoutSessionPaid:
		err = s.HandleCheckoutSessionPaid(ctx, eventID, resource)
	case EventCheckoutSessionFailed, EventPaymentFailed:
		err = s.HandleCheckoutSessionFailed(ctx, eventID, resource)
	case EventPaymentIntentSucceeded, EventPaymentPaid:
		err = s.HandlePaymentIntentSucceeded(ctx, eventID, resource)
	case EventPaymentIntentProcessing, EventPaymentProcessing:
		var handled bool
		handled, err = s.HandlePaymentProcessing(ctx, eventID, resource)
		if err == nil && !handled {
			return models.WebhookStatusIgnored, nil
		}
	default:
		s.logger.WithFields(logrus.Fields{
			"event_id":   eventID,
			"event_type": envelope.EventType(),
		}).Info("Webhook event type not handled, ignoring")
		return models.WebhookStatusIgnored, nil
	}

	if err != nil {
		return models.WebhookStatusFailed, newError(KindReconciliationFailed, err.Error(), err)
	}
	return models.WebhookStatusProcessed, nil
}

// ============================================================================
// CHECKOUT SESSION PAID
// ============================================================================

// HandleCheckoutSessionPaid marks the payment SUCCEEDED, records method and
// card detail, marks the checkout session paid and confirms the reservation.
func (s *ReconciliationService) HandleCheckoutSessionPaid(ctx context.Context, eventID string, resource *WebhookResource) error {
	var attrs CheckoutSessionAttributes
	if err := decodeAttributes(resource, &attrs); err != nil {
		return err
	}

	reservationID := attrs.Metadata.String("reservation_id")
	if reservationID == "" {
		return fmt.Errorf("checkout session %s has no reservation_id metadata", resource.ID)
	}

	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return fmt.Errorf("reservation %s not found", reservationID)
	}

	now := s.now()
	providerIDs := attrs.ProviderIDs(resource.ID)

	payment, err := s.payments.FindByReservationAndProviderIDs(ctx, reservation.ID, providerIDs)
	if err != nil {
		return err
	}
	if payment == nil {
		payment, err = s.payments.CreateIfAbsent(ctx, newWebhookPayment(reservation, &attrs, providerIDs[0]))
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"reservation_id":      reservation.ID,
			"provider_payment_id": payment.ProviderPaymentID,
		}).Warn("Payment row missing for paid checkout session, created from webhook")
	}

	amount := FromMinorUnits(attrs.LineItemsTotal())
	if amount == 0 {
		amount = payment.Amount
	}

	paid := attrs.PaidPayment()
	method := paymentMethodType(&attrs, paid)
	var methodPtr *string
	if method != "" {
		methodPtr = &method
	}

	if err := s.payments.MarkSucceeded(ctx, payment.ID, amount, methodPtr, now); err != nil {
		return err
	}

	if paid != nil || method != "" {
		if err := s.recordProviderPayment(ctx, payment, &attrs, paid, method); err != nil {
			return err
		}
	}

	paidAt := now
	if attrs.PaidAt > 0 {
		paidAt = time.Unix(attrs.PaidAt, 0)
	}
	session := &models.CheckoutSession{
		ID:          uuid.New().String(),
		PaymentID:   payment.ID,
		SessionID:   resource.ID,
		CheckoutURL: attrs.CheckoutURL,
		SuccessURL:  attrs.SuccessURL,
		CancelURL:   attrs.CancelURL,
		Status:      models.CheckoutSessionPaid,
		ExpiresAt:   now,
		PaidAt:      &paidAt,
	}
	if err := s.payments.UpsertSessionPaid(ctx, session); err != nil {
		return err
	}

	if _, err := s.reservations.MarkPaid(ctx, reservation.ID, now); err != nil {
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceWebhook).
		SetReservation(reservation.ID).
		SetPayment(payment.ID, payment.ProviderPaymentID).
		SetWebhookEvent(eventID).
		SetPaymentStatus(string(models.PaymentStatusSucceeded))
	if !audit.SetAmounts(reservation.TotalAmount, amount, reservation.Currency) {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": reservation.ID,
			"expected":       reservation.TotalAmount,
			"received":       amount,
		}).Warn("Paid amount differs from reservation total")
		s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceWebhook).
			SetReservation(reservation.ID).
			SetPayment(payment.ID, payment.ProviderPaymentID).
			SetWebhookEvent(eventID).
			SetError(fmt.Sprintf("expected %.2f, received %.2f", reservation.TotalAmount, amount)))
	}
	s.logAudit(ctx, audit)

	s.logger.WithFields(logrus.Fields{
		"event_id":            eventID,
		"reservation_id":      reservation.ID,
		"payment_id":          payment.ID,
		"provider_payment_id": payment.ProviderPaymentID,
		"amount":              amount,
		"method":              method,
	}).Info("Checkout session paid, reservation confirmed")

	s.publish(ctx, &ReservationEvent{
		Type:               EventReservationConfirmed,
		ReservationID:      reservation.ID,
		ConfirmationNumber: reservation.ConfirmationNumber,
		PaymentID:          payment.ID,
		ProviderPaymentID:  payment.ProviderPaymentID,
		Amount:             amount,
		Currency:           reservation.Currency,
		OccurredAt:         now,
	})
	return nil
}

// recordProviderPayment stores the method detail and, for cards, brand/last4/expiry
func (s *ReconciliationService) recordProviderPayment(
	ctx context.Context,
	payment *models.Payment,
	attrs *CheckoutSessionAttributes,
	paid *PayMongoPayment,
	method string,
) error {
	pp := &models.ProviderPayment{
		ID:                uuid.New().String(),
		PaymentID:         payment.ID,
		Provider:          models.PaymentProviderPayMongo,
		ProviderPaymentID: payment.ProviderPaymentID,
		PaymentMethodType: method,
		Metadata:          models.JSONB{},
	}
	if paid != nil {
		pp.ProviderPaymentID = paid.ID
		pp.Metadata["status"] = paid.Attributes.Status
		pp.Metadata["amount"] = paid.Attributes.Amount
		if paid.Attributes.Currency != "" {
			pp.Metadata["currency"] = paid.Attributes.Currency
		}
	}
	if attrs.ReferenceNumber != "" {
		pp.Metadata["reference_number"] = attrs.ReferenceNumber
	}

	billing := attrs.Billing
	if billing == nil && paid != nil {
		billing = paid.Attributes.Billing
	}
	if billing != nil {
		pp.BillingName = stringPtr(billing.Name)
		pp.BillingEmail = stringPtr(billing.Email)
		pp.BillingPhone = stringPtr(billing.Phone)
	}

	if err := s.payments.UpsertProviderPayment(ctx, pp); err != nil {
		return err
	}

	if paid == nil || paid.Attributes.Source == nil || paid.Attributes.Source.Type != "card" {
		return nil
	}

	src := paid.Attributes.Source
	card := &models.ProviderCard{
		ID:                uuid.New().String(),
		ProviderPaymentID: pp.ID,
		Brand:             stringPtr(src.Brand),
		Last4:             stringPtr(src.Last4),
		ExpMonth:          intPtr(src.ExpMonth),
		ExpYear:           intPtr(src.ExpYear),
		Country:           stringPtr(src.Country),
		Funding:           stringPtr(src.Funding),
	}
	return s.payments.UpsertProviderCard(ctx, card)
}

// ============================================================================
// CHECKOUT SESSION FAILED
// ============================================================================

// HandleCheckoutSessionFailed records the failure on the payment and cancels
// the reservation unless it has already been paid.
func (s *ReconciliationService) HandleCheckoutSessionFailed(ctx context.Context, eventID string, resource *WebhookResource) error {
	var (
		metadata    models.JSONB
		providerIDs []string
		reason      string
		code        string
	)

	switch resource.Type {
	case "payment":
		var attrs PaymentAttributes
		if err := decodeAttributes(resource, &attrs); err != nil {
			return err
		}
		metadata = attrs.Metadata
		if attrs.PaymentIntentID != "" {
			providerIDs = append(providerIDs, attrs.PaymentIntentID)
		}
		providerIDs = append(providerIDs, resource.ID)
		reason = attrs.FailedMessage
		code = attrs.FailedCode
	default:
		var attrs CheckoutSessionAttributes
		if err := decodeAttributes(resource, &attrs); err != nil {
			return err
		}
		metadata = attrs.Metadata
		providerIDs = attrs.ProviderIDs(resource.ID)
		if attrs.PaymentIntent != nil {
			reason = attrs.PaymentIntent.Attributes.LastPaymentError.Reason()
			code = attrs.PaymentIntent.Attributes.LastPaymentError.ReasonCode()
		}
	}

	if reason == "" {
		reason = unknownFailureReason
	}

	reservationID := metadata.String("reservation_id")
	var payment *models.Payment
	var err error
	if reservationID == "" {
		// Payment resources do not always echo the session metadata
		payment, err = s.payments.FindByProviderIDs(ctx, providerIDs)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("%s %s has no reservation_id metadata and no matching payment", resource.Type, resource.ID)
		}
		reservationID = payment.ReservationID
	}

	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return fmt.Errorf("reservation %s not found", reservationID)
	}

	if payment == nil {
		payment, err = s.payments.FindByReservationAndProviderIDs(ctx, reservation.ID, providerIDs)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("no payment for reservation %s matches %v", reservation.ID, providerIDs)
		}
	}

	now := s.now()
	var codePtr *string
	if code != "" {
		codePtr = &code
	}

	paymentFailed, err := s.payments.MarkFailed(ctx, payment.ID, codePtr, reason, now)
	if err != nil {
		return err
	}

	cancellation := fmt.Sprintf("Payment failed: %s", reason)
	reservationFailed, err := s.reservations.MarkPaymentFailed(ctx, reservation.ID, cancellation, now)
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"event_id":       eventID,
		"reservation_id": reservation.ID,
		"payment_id":     payment.ID,
		"reason":         reason,
	}
	if !paymentFailed || !reservationFailed {
		// Success arrived first; a late failure must not undo it
		s.logger.WithFields(fields).Warn("Payment failure received after success, keeping paid state")
	} else {
		s.logger.WithFields(fields).Info("Checkout payment failed, reservation cancelled")
	}

	s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceWebhook).
		SetReservation(reservation.ID).
		SetPayment(payment.ID, payment.ProviderPaymentID).
		SetWebhookEvent(eventID).
		SetPaymentStatus(string(models.PaymentStatusFailed)).
		SetError(reason))

	if reservationFailed {
		s.publish(ctx, &ReservationEvent{
			Type:               EventReservationPaymentFailed,
			ReservationID:      reservation.ID,
			ConfirmationNumber: reservation.ConfirmationNumber,
			PaymentID:          payment.ID,
			ProviderPaymentID:  payment.ProviderPaymentID,
			Reason:             reason,
			OccurredAt:         now,
		})
	}
	return nil
}

// ============================================================================
// PAYMENT INTENT SUCCEEDED
// ============================================================================

// HandlePaymentIntentSucceeded reconciles a payment intent (or payment) success
// independently of its checkout session. The payment is located by provider id alone.
func (s *ReconciliationService) HandlePaymentIntentSucceeded(ctx context.Context, eventID string, resource *WebhookResource) error {
	providerIDs, received, method, err := intentReferences(resource)
	if err != nil {
		return err
	}

	payment, err := s.payments.FindByProviderIDs(ctx, providerIDs)
	if err != nil {
		return err
	}
	if payment == nil {
		return fmt.Errorf("no payment matches %v", providerIDs)
	}

	amount := payment.Amount
	if received > 0 {
		amount = FromMinorUnits(received)
	}
	var methodPtr *string
	if method != "" {
		methodPtr = &method
	}

	now := s.now()
	if err := s.payments.MarkSucceeded(ctx, payment.ID, amount, methodPtr, now); err != nil {
		return err
	}
	if _, err := s.reservations.MarkPaid(ctx, payment.ReservationID, now); err != nil {
		return err
	}

	s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceWebhook).
		SetReservation(payment.ReservationID).
		SetPayment(payment.ID, payment.ProviderPaymentID).
		SetWebhookEvent(eventID).
		SetPaymentStatus(string(models.PaymentStatusSucceeded)))

	s.logger.WithFields(logrus.Fields{
		"event_id":       eventID,
		"reservation_id": payment.ReservationID,
		"payment_id":     payment.ID,
		"amount":         amount,
	}).Info("Payment intent succeeded, reservation confirmed")

	s.publish(ctx, &ReservationEvent{
		Type:              EventReservationConfirmed,
		ReservationID:     payment.ReservationID,
		PaymentID:         payment.ID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Amount:            amount,
		Currency:          payment.Currency,
		OccurredAt:        now,
	})
	return nil
}

// HandlePaymentProcessing moves a PENDING payment to PROCESSING. Unknown
// payments are not an error: the event is informational.
func (s *ReconciliationService) HandlePaymentProcessing(ctx context.Context, eventID string, resource *WebhookResource) (bool, error) {
	providerIDs, _, _, err := intentReferences(resource)
	if err != nil {
		return false, err
	}

	payment, err := s.payments.FindByProviderIDs(ctx, providerIDs)
	if err != nil {
		return false, err
	}
	if payment == nil {
		return false, nil
	}

	moved, err := s.payments.MarkProcessing(ctx, payment.ID)
	if err != nil {
		return false, err
	}
	if moved {
		s.logAudit(ctx, models.NewPaymentAudit(models.PaymentEventProcessing, models.PaymentSourceWebhook).
			SetReservation(payment.ReservationID).
			SetPayment(payment.ID, payment.ProviderPaymentID).
			SetWebhookEvent(eventID).
			SetPaymentStatus(string(models.PaymentStatusProcessing)))
	}
	return true, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// intentReferences extracts provider ids (most specific first), the received
// amount in minor units and the method type from a payment_intent or payment resource.
func intentReferences(resource *WebhookResource) ([]string, int64, string, error) {
	switch resource.Type {
	case "payment":
		var attrs PaymentAttributes
		if err := decodeAttributes(resource, &attrs); err != nil {
			return nil, 0, "", err
		}
		ids := []string{resource.ID}
		if attrs.PaymentIntentID != "" {
			ids = []string{attrs.PaymentIntentID, resource.ID}
		}
		method := ""
		if attrs.Source != nil {
			method = attrs.Source.Type
		}
		return ids, attrs.Amount, method, nil
	default:
		var attrs PaymentIntentAttributes
		if err := decodeAttributes(resource, &attrs); err != nil {
			return nil, 0, "", err
		}
		method := ""
		for _, p := range attrs.Payments {
			if p.Attributes.Source != nil {
				method = p.Attributes.Source.Type
				break
			}
		}
		return []string{resource.ID}, attrs.Amount, method, nil
	}
}

// newWebhookPayment builds the payment row for a paid session whose payment
// was never stored, e.g. when the initiator crashed after the gateway call.
func newWebhookPayment(reservation *models.Reservation, attrs *CheckoutSessionAttributes, providerPaymentID string) *models.Payment {
	payment := &models.Payment{
		ID:                uuid.New().String(),
		ReservationID:     reservation.ID,
		Amount:            FromMinorUnits(attrs.LineItemsTotal()),
		Currency:          reservation.Currency,
		Status:            models.PaymentStatusPending,
		Provider:          models.PaymentProviderPayMongo,
		ProviderPaymentID: providerPaymentID,
		RoomTotal:         reservation.Subtotal,
		TaxTotal:          reservation.Taxes,
		FeeTotal:          reservation.ServiceFee,
	}
	if payment.Amount == 0 {
		payment.Amount = reservation.TotalAmount
	}
	if attrs.Billing != nil {
		payment.GuestName = attrs.Billing.Name
		payment.GuestEmail = attrs.Billing.Email
		payment.GuestPhone = stringPtr(attrs.Billing.Phone)
	}
	return payment
}

// paymentMethodType prefers the method reported on the session, then the payment source
func paymentMethodType(attrs *CheckoutSessionAttributes, paid *PayMongoPayment) string {
	if attrs.PaymentMethodUsed != "" {
		return attrs.PaymentMethodUsed
	}
	if paid != nil && paid.Attributes.Source != nil {
		return paid.Attributes.Source.Type
	}
	return ""
}

func (s *ReconciliationService) logAudit(ctx context.Context, audit *models.PaymentAudit) {
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Warn("Failed to write payment audit")
	}
}

// publish is best effort: the reconciled state is already durable
func (s *ReconciliationService) publish(ctx context.Context, event *ReservationEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":     event.Type,
			"reservation_id": event.ReservationID,
		}).Warn("Failed to publish reservation event")
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
