package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/utils"
)

// SignatureVerifier checks webhook signatures
type SignatureVerifier interface {
	HasWebhookSecret() bool
	VerifySignature(header string, body []byte) error
}

// EventDispatcher applies a verified event and reports its final status
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventID string, envelope *WebhookEnvelope) (models.WebhookEventStatus, error)
}

// WebhookDelivery is one inbound webhook request as read at the HTTP boundary
type WebhookDelivery struct {
	Body      []byte
	Signature string
	Headers   http.Header
	SourceIP  string
	UserAgent string
}

// WebhookService verifies, de-duplicates, records and dispatches gateway webhooks
type WebhookService struct {
	verifier   SignatureVerifier
	events     WebhookEventStore
	dispatcher EventDispatcher
	audits     AuditStore
	logger     *logrus.Logger
	now        func() time.Time
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	verifier SignatureVerifier,
	events WebhookEventStore,
	dispatcher EventDispatcher,
	audits AuditStore,
	logger *logrus.Logger,
) *WebhookService {
	return &WebhookService{
		verifier:   verifier,
		events:     events,
		dispatcher: dispatcher,
		audits:     audits,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle runs one delivery through the receiver state machine.
// A returned error means the delivery was rejected before anything was
// recorded; once the signature is verified and the event is stored the
// result is always an acknowledgment, even when reconciliation failed.
func (s *WebhookService) Handle(ctx context.Context, d *WebhookDelivery) (*models.WebhookAck, error) {
	// 1. Body, signature header and secret must all be present
	if len(d.Body) == 0 {
		return nil, newError(KindConfigurationError, "Missing request body", nil)
	}
	if strings.TrimSpace(d.Signature) == "" {
		return nil, newError(KindConfigurationError, "Missing signature header", nil)
	}
	if !s.verifier.HasWebhookSecret() {
		s.logger.Error("Webhook secret not configured, rejecting delivery")
		return nil, newError(KindConfigurationError, "Webhook secret not configured", nil)
	}

	// 2. Signature
	if err := s.verifier.VerifySignature(d.Signature, d.Body); err != nil {
		s.logger.WithFields(logrus.Fields{
			"source_ip": d.SourceIP,
			"error":     err.Error(),
		}).Warn("Webhook signature verification failed")
		return nil, newError(KindInvalidSignature, "Invalid signature", err)
	}

	// 3. Envelope
	envelope, err := ParseWebhookEnvelope(d.Body)
	if err != nil {
		s.logger.WithError(err).Warn("Malformed webhook payload")
		return nil, newError(KindMalformedEvent, "Malformed webhook event", err)
	}

	eventID := envelope.EventID()
	log := s.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"event_type": envelope.EventType(),
	})

	// 4. Already processed: acknowledge without side effects
	existing, err := s.events.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to read webhook event", err)
	}
	if existing != nil && existing.Status == models.WebhookStatusProcessed {
		log.Info("Webhook event already processed, acknowledging")
		return processedAck(true), nil
	}

	// 5. Record (or re-open) the event
	stored, err := s.events.Upsert(ctx, s.newWebhookEvent(envelope, d))
	if err != nil {
		return nil, newError(KindInternal, "Failed to record webhook event", err)
	}
	if stored == nil {
		// Another delivery finished or still holds the event
		current, err := s.events.GetByEventID(ctx, eventID)
		if err == nil && current != nil && current.Status == models.WebhookStatusProcessed {
			log.Info("Webhook event processed concurrently, acknowledging")
			return processedAck(true), nil
		}
		log.Info("Webhook event in flight on another delivery, acknowledging without dispatch")
		return processedAck(false), nil
	}

	// 6-7. Dispatch and finalize
	status, dispatchErr := s.dispatch(ctx, envelope)
	s.finalize(ctx, eventID, status, dispatchErr)

	switch status {
	case models.WebhookStatusProcessed:
		log.WithField("retry_count", stored.RetryCount).Info("Webhook event processed")
		return processedAck(true), nil
	case models.WebhookStatusIgnored:
		return processedAck(false), nil
	default:
		log.WithError(dispatchErr).Error("Webhook reconciliation failed, event stored for operator review")
		ack := processedAck(false)
		ack.Error = dispatchErr.Error()
		return ack, nil
	}
}

// Reprocess re-runs reconciliation for a stored, unprocessed event. The
// signature was verified when the event was first received.
func (s *WebhookService) Reprocess(ctx context.Context, eventID, operator string) (*models.WebhookEvent, error) {
	existing, err := s.events.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to read webhook event", err)
	}
	if existing == nil {
		return nil, newError(KindWebhookNotFound, "Webhook event not found", nil)
	}
	if existing.Status == models.WebhookStatusProcessed {
		return nil, newError(KindAlreadyProcessed, "Webhook event already processed", nil)
	}

	event, err := s.events.BeginReprocess(ctx, eventID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to reopen webhook event", err)
	}
	if event == nil {
		if existing.Status == models.WebhookStatusProcessing {
			return nil, newError(KindAlreadyProcessed, "Webhook event is being processed", nil)
		}
		return nil, newError(KindAlreadyProcessed, "Webhook event already processed", nil)
	}

	envelope, err := ParseWebhookEnvelope([]byte(event.Payload))
	if err != nil {
		s.finalize(ctx, eventID, models.WebhookStatusFailed, err)
		return nil, newError(KindMalformedEvent, "Stored webhook payload is malformed", err)
	}

	status, dispatchErr := s.dispatch(ctx, envelope)
	s.finalize(ctx, eventID, status, dispatchErr)

	audit := models.NewPaymentAudit(models.PaymentEventManualReprocess, models.PaymentSourceOperator).
		SetWebhookEvent(eventID).
		SetPayloads(models.JSONB{"operator": operator, "event_type": event.EventType}, models.JSONB{"status": string(status)})
	if dispatchErr != nil {
		audit.SetError(dispatchErr.Error())
	}
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Warn("Failed to write reprocess audit")
	}

	s.logger.WithFields(logrus.Fields{
		"event_id": eventID,
		"operator": operator,
		"status":   status,
	}).Info("Webhook event reprocessed")

	updated, err := s.events.GetByEventID(ctx, eventID)
	if err != nil || updated == nil {
		event.Status = status
		return event, nil
	}
	return updated, nil
}

// List returns stored events for operator review
func (s *WebhookService) List(ctx context.Context, status string, limit, offset int) ([]models.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	events, err := s.events.List(ctx, status, limit, offset)
	if err != nil {
		return nil, newError(KindInternal, "Failed to list webhook events", err)
	}
	return events, nil
}

// dispatch runs the handler and converts a panic into a failed status so a
// handler bug never takes the process down.
func (s *WebhookService) dispatch(ctx context.Context, envelope *WebhookEnvelope) (status models.WebhookEventStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Webhook handler panicked")
			status = models.WebhookStatusFailed
			err = newError(KindReconciliationFailed, "handler panic", nil)
		}
	}()
	return s.dispatcher.Dispatch(ctx, envelope.EventID(), envelope)
}

func (s *WebhookService) finalize(ctx context.Context, eventID string, status models.WebhookEventStatus, dispatchErr error) {
	var msg *string
	if dispatchErr != nil {
		m := dispatchErr.Error()
		msg = &m
	}
	if err := s.events.Finalize(ctx, eventID, status, msg, s.now()); err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("Failed to finalize webhook event")
	}
}

func (s *WebhookService) newWebhookEvent(envelope *WebhookEnvelope, d *WebhookDelivery) *models.WebhookEvent {
	resource := envelope.Resource()
	event := &models.WebhookEvent{
		ID:           uuid.New().String(),
		EventID:      envelope.EventID(),
		EventType:    envelope.EventType(),
		ResourceType: stringPtr(resource.Type),
		ResourceID:   stringPtr(resource.ID),
		Payload:      string(d.Body),
		Headers:      headersJSON(d.Headers),
		Signature:    d.Signature,
		Livemode:     envelope.Data.Attributes.Livemode,
		Status:       models.WebhookStatusProcessing,
		SourceIP:     stringPtr(d.SourceIP),
	}
	if d.UserAgent != "" {
		summary := utils.ParseUserAgent(d.UserAgent).String()
		event.UserAgent = &summary
	}
	return event
}

// headersJSON keeps request headers except the signature
func headersJSON(h http.Header) models.JSONB {
	if len(h) == 0 {
		return nil
	}
	out := models.JSONB{}
	for key, values := range h {
		if strings.EqualFold(key, SignatureHeaderName) || strings.EqualFold(key, "Authorization") {
			continue
		}
		out[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}

func processedAck(processed bool) *models.WebhookAck {
	return &models.WebhookAck{Received: true, Processed: &processed}
}
