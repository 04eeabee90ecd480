package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
)

// Reservation event types published after reconciliation
const (
	EventReservationConfirmed     = "reservation.confirmed"
	EventReservationPaymentFailed = "reservation.payment_failed"
)

// ReservationEvent is the message body published to the broker
type ReservationEvent struct {
	Type               string    `json:"type"`
	ReservationID      string    `json:"reservation_id"`
	ConfirmationNumber string    `json:"confirmation_number,omitempty"`
	PaymentID          string    `json:"payment_id,omitempty"`
	ProviderPaymentID  string    `json:"provider_payment_id,omitempty"`
	Amount             float64   `json:"amount,omitempty"`
	Currency           string    `json:"currency,omitempty"`
	Reason             string    `json:"reason,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// EventPublisher delivers reservation events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *ReservationEvent) error
	Close() error
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish discards the event
func (NoopPublisher) Publish(ctx context.Context, event *ReservationEvent) error { return nil }

// Close is a no-op
func (NoopPublisher) Close() error { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable RabbitMQ queue.
// The connection is opened lazily and re-dialed after the broker drops it.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the queue
func NewAMQPPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:    cfg.URL,
		queue:  cfg.Queue,
		logger: logger,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// Publish sends the event as a persistent message
func (p *AMQPPublisher) Publish(ctx context.Context, event *ReservationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.logger.Warn("Broker connection lost, reconnecting")
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type":     event.Type,
		"reservation_id": event.ReservationID,
		"queue":          p.queue,
	}).Debug("Reservation event published")
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewEventPublisher returns an AMQP publisher when a broker URL is configured
// and reachable, otherwise a NoopPublisher.
func NewEventPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) EventPublisher {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL not set, reservation events will not be published")
		return NoopPublisher{}
	}

	publisher, err := NewAMQPPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Broker unavailable, reservation events will not be published")
		return NoopPublisher{}
	}

	logger.WithField("queue", cfg.Queue).Info("Reservation event publisher connected")
	return publisher
}
