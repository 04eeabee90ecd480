package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/staylane/reservation-backend/internal/models"
)

const webhookEventColumns = `
	id, event_id, event_type, resource_type, resource_id, payload, headers,
	signature, livemode, status, retry_count, error_message,
	source_ip, user_agent, processed_at, created_at, updated_at`

// WebhookProcessingLease is how long a processing row belongs to the delivery
// that claimed it. After that the delivery is presumed dead and a redelivery
// or manual reprocess may take the row over.
const WebhookProcessingLease = 5 * time.Minute

// reopenableWebhook matches rows a new delivery may claim: settled without
// success, or stuck in processing past the lease.
const reopenableWebhook = `(webhook_events.status IN ('failed', 'ignored')
			OR (webhook_events.status = 'processing'
				AND webhook_events.updated_at < NOW() - make_interval(secs => $%d)))`

// WebhookEventRepository stores inbound gateway callbacks
type WebhookEventRepository struct {
	db *sqlx.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// GetByEventID returns the event with the gateway's event id, or nil
func (r *WebhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE event_id = $1`

	var event models.WebhookEvent
	err := r.db.GetContext(ctx, &event, query, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &event, nil
}

// Upsert records a delivery in status processing. A redelivery of a failed or
// ignored event, or of one whose processing lease expired, bumps retry_count.
// Returns nil when the event is processed or another delivery holds it, in
// which case nothing is written.
func (r *WebhookEventRepository) Upsert(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error) {
	query := `
		INSERT INTO webhook_events (
			id, event_id, event_type, resource_type, resource_id, payload, headers,
			signature, livemode, status, retry_count, source_ip, user_agent,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'processing', 0, $10, $11, NOW(), NOW())
		ON CONFLICT (event_id) DO UPDATE SET
			retry_count = webhook_events.retry_count + 1,
			status = 'processing',
			signature = EXCLUDED.signature,
			headers = EXCLUDED.headers,
			updated_at = NOW()
		WHERE ` + fmt.Sprintf(reopenableWebhook, 12) + `
		RETURNING ` + webhookEventColumns

	var stored models.WebhookEvent
	err := r.db.QueryRowxContext(ctx, query,
		event.ID, event.EventID, event.EventType, event.ResourceType, event.ResourceID,
		event.Payload, event.Headers, event.Signature, event.Livemode,
		event.SourceIP, event.UserAgent, WebhookProcessingLease.Seconds(),
	).StructScan(&stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert webhook event: %w", err)
	}
	return &stored, nil
}

// BeginReprocess moves a failed or ignored event back to processing for a
// manual retry. Returns nil if the event does not exist, is processed, or is
// held by an in-flight delivery.
func (r *WebhookEventRepository) BeginReprocess(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	query := `
		UPDATE webhook_events SET
			retry_count = retry_count + 1,
			status = 'processing',
			updated_at = NOW()
		WHERE event_id = $1 AND ` + fmt.Sprintf(reopenableWebhook, 2) + `
		RETURNING ` + webhookEventColumns

	var stored models.WebhookEvent
	err := r.db.QueryRowxContext(ctx, query, eventID, WebhookProcessingLease.Seconds()).StructScan(&stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to begin webhook reprocess: %w", err)
	}
	return &stored, nil
}

// Finalize sets the outcome of processing
func (r *WebhookEventRepository) Finalize(ctx context.Context, eventID string, status models.WebhookEventStatus, errorMessage *string, at time.Time) error {
	query := `
		UPDATE webhook_events SET
			status = $2,
			error_message = $3,
			processed_at = $4,
			updated_at = NOW()
		WHERE event_id = $1`

	_, err := r.db.ExecContext(ctx, query, eventID, status, errorMessage, at)
	if err != nil {
		return fmt.Errorf("failed to finalize webhook event: %w", err)
	}
	return nil
}

// List returns events, newest first, optionally filtered by status
func (r *WebhookEventRepository) List(ctx context.Context, status string, limit, offset int) ([]models.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + `
		FROM webhook_events
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	events := []models.WebhookEvent{}
	if err := r.db.SelectContext(ctx, &events, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return events, nil
}
